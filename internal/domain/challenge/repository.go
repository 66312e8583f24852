package challenge

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c *Challenge) error
	GetByID(ctx context.Context, challengeID string) (*Challenge, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, challengeID string) (*Challenge, error)
	Update(ctx context.Context, c *Challenge) error
	// ListIncoming returns the user's pending challenges, newest first.
	ListIncoming(ctx context.Context, userID string, limit int) ([]*Challenge, error)
	// ExpirePending marks every pending challenge whose deadline is at or
	// before now as expired and returns how many rows changed.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}
