package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/challenge"
)

type DeclineChallengeUseCase struct {
	*service
}

func NewDeclineChallengeUseCase(d Dependencies) *DeclineChallengeUseCase {
	return &DeclineChallengeUseCase{service: newService(d)}
}

func (uc *DeclineChallengeUseCase) Execute(ctx context.Context, challengeID, userID string) (*ChallengeView, error) {
	c, err := uc.mutate(ctx, challengeID, func(c *challenge.Challenge, now time.Time) error {
		return c.Decline(userID, now)
	})
	if err != nil {
		return nil, err
	}
	uc.Logger.Infow("challenge declined", "challenge_id", c.ID, "user_id", userID)
	return toView(c), nil
}

type CancelChallengeUseCase struct {
	*service
}

func NewCancelChallengeUseCase(d Dependencies) *CancelChallengeUseCase {
	return &CancelChallengeUseCase{service: newService(d)}
}

func (uc *CancelChallengeUseCase) Execute(ctx context.Context, challengeID, userID string) (*ChallengeView, error) {
	c, err := uc.mutate(ctx, challengeID, func(c *challenge.Challenge, now time.Time) error {
		return c.Cancel(userID, now)
	})
	if err != nil {
		return nil, err
	}
	uc.Logger.Infow("challenge cancelled", "challenge_id", c.ID, "user_id", userID)
	return toView(c), nil
}

type GetChallengeUseCase struct {
	*service
}

func NewGetChallengeUseCase(d Dependencies) *GetChallengeUseCase {
	return &GetChallengeUseCase{service: newService(d)}
}

// Execute returns the challenge to either of its players.
func (uc *GetChallengeUseCase) Execute(ctx context.Context, challengeID, userID string) (*ChallengeView, error) {
	c, err := uc.Challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.ChallengerID != userID && c.OpponentID != userID {
		return nil, challenge.ErrChallengeNotFound
	}
	return toView(c), nil
}
