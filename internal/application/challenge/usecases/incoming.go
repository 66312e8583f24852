package usecases

import (
	"context"
)

type ListIncomingChallengesUseCase struct {
	*service
	limit int
}

func NewListIncomingChallengesUseCase(d Dependencies) *ListIncomingChallengesUseCase {
	return &ListIncomingChallengesUseCase{service: newService(d), limit: defaultIncomingLimit}
}

// Execute lists the user's pending challenges that can still be answered.
// Rows past their deadline stay pending until the sweep runs but are not
// shown.
func (uc *ListIncomingChallengesUseCase) Execute(ctx context.Context, userID string) ([]*ChallengeView, error) {
	rows, err := uc.Challenges.ListIncoming(ctx, userID, uc.limit)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	out := make([]*ChallengeView, 0, len(rows))
	for _, c := range rows {
		if c.IsExpired(now) {
			continue
		}
		out = append(out, toView(c))
	}
	return out, nil
}
