package usecases

import (
	"context"
)

type ExpireChallengesUseCase struct {
	*service
}

func NewExpireChallengesUseCase(d Dependencies) *ExpireChallengesUseCase {
	return &ExpireChallengesUseCase{service: newService(d)}
}

// Execute marks every lapsed pending challenge as expired.
func (uc *ExpireChallengesUseCase) Execute(ctx context.Context) (int, error) {
	n, err := uc.Challenges.ExpirePending(ctx, uc.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.Logger.Infow("expired challenges", "count", n)
	}
	return int(n), nil
}
