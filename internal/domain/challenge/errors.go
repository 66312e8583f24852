package challenge

import (
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

var (
	ErrChallengeNotFound = apperrors.NewNotFoundError("challenge not found")
	ErrSelfChallenge     = apperrors.NewValidationError("cannot challenge yourself")
	ErrNotRecipient      = apperrors.NewForbiddenError("only the challenged player can answer").WithReason(apperrors.ReasonNotRecipient)
	ErrNotChallenger     = apperrors.NewForbiddenError("only the challenger can cancel")
	ErrExpired           = apperrors.NewConflictError("challenge has expired").WithReason(apperrors.ReasonChallengeExpired)
	ErrNotPending        = apperrors.NewConflictError("challenge is no longer pending").WithReason(apperrors.ReasonNotPending)
)
