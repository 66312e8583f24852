package game

import (
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

var (
	ErrGameNotFound        = apperrors.NewNotFoundError("game not found")
	ErrNotInProgress       = apperrors.NewValidationError("not in progress").WithReason(apperrors.ReasonNotInProgress)
	ErrNotAPlayer          = apperrors.NewForbiddenError("you are not a player in this game").WithReason(apperrors.ReasonNotAPlayer)
	ErrNotYourTurn         = apperrors.NewValidationError("not your turn").WithReason(apperrors.ReasonNotYourTurn)
	ErrIllegalMove         = apperrors.NewValidationError("illegal move").WithReason(apperrors.ReasonIllegalMove)
	ErrTakebackNotAllowed  = apperrors.NewForbiddenError("takebacks are not allowed in rated games").WithReason(apperrors.ReasonTakebackNotAllowed)
	ErrBoardEditNotAllowed = apperrors.NewForbiddenError("board edits are not allowed in rated games").WithReason(apperrors.ReasonBoardEditNotAllowed)
	ErrRatedLocked         = apperrors.NewConflictError("rated status cannot change after the game has started").WithReason(apperrors.ReasonRatedLocked)
	ErrInvalidFEN          = apperrors.NewValidationError("invalid FEN").WithReason(apperrors.ReasonInvalidFEN)
	ErrGameFull            = apperrors.NewConflictError("game is not open for joining").WithReason(apperrors.ReasonGameFull)
	ErrCannotJoinOwnGame   = apperrors.NewValidationError("you are already seated in this game")
	ErrAlreadyStarted      = apperrors.NewConflictError("game has already started")
	ErrCreatorOnly         = apperrors.NewForbiddenError("only the game creator can do this").WithReason(apperrors.ReasonNotAPlayer)
	ErrNothingToTakeBack   = apperrors.NewValidationError("no moves to take back")
	ErrNoDrawOffer         = apperrors.NewValidationError("no draw offer from the opponent")
	ErrBotDeclinesDraw     = apperrors.NewValidationError("bots do not accept draw offers")
)
