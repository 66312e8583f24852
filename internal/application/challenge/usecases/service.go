// Package usecases implements direct challenges: one player invites a named
// opponent, who accepts or declines before the invitation lapses. Accepting
// creates the game through the same creator matchmaking uses.
package usecases

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/chessforge/gamecore/internal/domain/challenge"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/db"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	maxTxAttempts            = 3
	defaultGameCreateTimeout = 5 * time.Second
	defaultIncomingLimit     = 50
)

type transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// GameCreator starts a game with both seats filled.
type GameCreator interface {
	CreateMatchedGame(ctx context.Context, req clients.MatchedGameRequest) (string, error)
}

// RatingLookup reads a player's current rating for a time control. A player
// without a rating yields nil.
type RatingLookup interface {
	CurrentRating(ctx context.Context, userID string, initialMS int64, variant string) (*int, error)
}

// Dependencies are shared by every challenge use case. Ratings is optional.
type Dependencies struct {
	Challenges        challenge.Repository
	TxMgr             transactor
	Games             GameCreator
	Ratings           RatingLookup
	TTL               time.Duration
	GameCreateTimeout time.Duration
	Clock             biztime.Clock
	Coin              func() bool
	Logger            logger.Interface
}

type service struct {
	Dependencies
}

func newService(d Dependencies) *service {
	if d.Clock == nil {
		d.Clock = biztime.SystemClock
	}
	if d.TTL <= 0 {
		d.TTL = challenge.DefaultTTL
	}
	if d.GameCreateTimeout <= 0 {
		d.GameCreateTimeout = defaultGameCreateTimeout
	}
	if d.Coin == nil {
		d.Coin = func() bool { return rand.IntN(2) == 0 }
	}
	return &service{Dependencies: d}
}

func (s *service) now() time.Time {
	return s.Clock.Now()
}

// mutate loads challengeID FOR UPDATE, applies fn and saves the result.
// Deadlocks and serialization failures rerun the transaction.
func (s *service) mutate(ctx context.Context, challengeID string, fn func(c *challenge.Challenge, now time.Time) error) (*challenge.Challenge, error) {
	var saved *challenge.Challenge
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.TxMgr.RunInTransaction(ctx, func(ctx context.Context) error {
			c, err := s.Challenges.GetForUpdate(ctx, challengeID)
			if err != nil {
				return err
			}
			if err := fn(c, s.now()); err != nil {
				return err
			}
			if err := s.Challenges.Update(ctx, c); err != nil {
				return err
			}
			saved = c
			return nil
		})
		if err != nil && !db.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			s.Logger.Warnw("retrying challenge transaction", "challenge_id", challengeID, "error", err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTxAttempts),
	)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ChallengeView is the API shape of a challenge.
type ChallengeView struct {
	ID              string    `json:"challenge_id"`
	ChallengerID    string    `json:"challenger_user_id"`
	OpponentID      string    `json:"opponent_user_id"`
	TimeControl     string    `json:"time_control"`
	Variant         string    `json:"variant"`
	Rated           bool      `json:"rated"`
	ColorPreference string    `json:"preferred_color"`
	Status          string    `json:"status"`
	GameID          string    `json:"game_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func toView(c *challenge.Challenge) *ChallengeView {
	return &ChallengeView{
		ID:              c.ID,
		ChallengerID:    c.ChallengerID,
		OpponentID:      c.OpponentID,
		TimeControl:     c.TimeControl,
		Variant:         c.Variant,
		Rated:           c.Rated,
		ColorPreference: string(c.ColorPreference),
		Status:          string(c.Status),
		GameID:          c.GameID,
		CreatedAt:       c.CreatedAt,
		ExpiresAt:       c.ExpiresAt,
	}
}
