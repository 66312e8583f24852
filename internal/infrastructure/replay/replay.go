// Package replay guards move submission against duplicated requests.
//
// A submission reserves move:replay:{game}:{signature} with SET NX before it
// is applied. Once the move commits, the serialized response replaces the
// reservation so a replay within the TTL receives the same body.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

const (
	keyPrefix   = "move:replay:"
	pendingMark = "1"

	DefaultTTL = time.Hour
)

// ErrInFlight is returned while the original submission is still being applied.
var ErrInFlight = apperrors.NewConflictError("move submission already in progress").WithReason(apperrors.ReasonInFlight)

// Outcome describes a reservation attempt.
type Outcome struct {
	// Fresh is true when the caller owns the reservation and must apply the move.
	Fresh bool
	// Response holds the stored body of a completed earlier submission.
	Response []byte
}

type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func Key(gameID, signature string) string {
	return keyPrefix + gameID + ":" + signature
}

// Reserve claims the signature for this submission.
func (s *Store) Reserve(ctx context.Context, gameID, signature string) (*Outcome, error) {
	key := Key(gameID, signature)

	ok, err := s.client.SetNX(ctx, key, pendingMark, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve move signature: %w", err)
	}
	if ok {
		return &Outcome{Fresh: true}, nil
	}

	stored, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return s.Reserve(ctx, gameID, signature)
		}
		return nil, fmt.Errorf("failed to read move signature: %w", err)
	}
	if string(stored) == pendingMark {
		return nil, ErrInFlight
	}
	return &Outcome{Response: stored}, nil
}

// Complete stores the response for the reserved signature.
func (s *Store) Complete(ctx context.Context, gameID, signature string, response []byte) error {
	if err := s.client.Set(ctx, Key(gameID, signature), response, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store move response: %w", err)
	}
	return nil
}

// Release drops a reservation whose submission failed so the client may retry.
func (s *Store) Release(ctx context.Context, gameID, signature string) error {
	if err := s.client.Del(ctx, Key(gameID, signature)).Err(); err != nil {
		return fmt.Errorf("failed to release move signature: %w", err)
	}
	return nil
}
