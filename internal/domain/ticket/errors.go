package ticket

import (
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

var (
	ErrTicketNotFound    = apperrors.NewNotFoundError("ticket not found")
	ErrAlreadyInQueue    = apperrors.NewConflictError("player already has an active ticket").WithReason(apperrors.ReasonAlreadyInQueue)
	ErrStale             = apperrors.NewConflictError("stale mutation_seq").WithReason(apperrors.ReasonStale)
	ErrTicketNotActive   = apperrors.NewConflictError("ticket is not active").WithReason(apperrors.ReasonTicketNotActive)
	ErrNotProposing      = apperrors.NewConflictError("ticket has no open proposal").WithReason(apperrors.ReasonProposalNotFound)
	ErrProposalNotFound  = apperrors.NewNotFoundError("proposal not found").WithReason(apperrors.ReasonProposalNotFound)
	ErrMatchNotFound     = apperrors.NewNotFoundError("match not found")
	ErrNoPlayers         = apperrors.NewValidationError("at least one player is required")
	ErrDuplicatePlayer   = apperrors.NewValidationError("a player appears twice in the roster")
	ErrEnqueueKeyMissing = apperrors.NewValidationError("enqueue_key is required")
)
