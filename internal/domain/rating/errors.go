package rating

import (
	"github.com/chessforge/gamecore/internal/shared/errors"
)

var (
	ErrPoolNotFound       = errors.NewNotFoundError("rating pool not found")
	ErrRatingNotFound     = errors.NewNotFoundError("rating not found")
	ErrIngestionInFlight  = errors.NewConflictError("processing in progress").WithReason(errors.ReasonInFlight)
	ErrInvalidResult      = errors.NewValidationError("result must be white_win, black_win or draw")
	ErrSamePlayer         = errors.NewValidationError("white and black must be different players")
	ErrBackfillNotFound   = errors.NewNotFoundError("backfill job not found")
	ErrBackfillRunning    = errors.NewConflictError("a backfill job is already running")
	ErrDuplicateIngestion = errors.NewConflictError("game result already ingested")
	ErrNotRanked          = errors.NewNotFoundError("user not found in leaderboard")
)
