// Package ratelimit implements a sliding-window limiter over a Redis sorted
// set of request timestamps.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or rejects one request against key.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error)
	Reset(ctx context.Context, key string) error
}

// MoveSubmissionKey scopes the move limit to a user.
func MoveSubmissionKey(userID string) string {
	return fmt.Sprintf("rate_limit:user:%s:move_submission", userID)
}

// IPKey scopes the general limit to a client address.
func IPKey(ip string) string {
	return fmt.Sprintf("rate_limit:ip:%s", ip)
}
