package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/challenge"
	gamevo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

type CreateChallengeCommand struct {
	ChallengerID    string
	OpponentID      string
	TimeControl     string
	Variant         string
	Rated           bool
	ColorPreference string
}

type CreateChallengeUseCase struct {
	*service
}

func NewCreateChallengeUseCase(d Dependencies) *CreateChallengeUseCase {
	return &CreateChallengeUseCase{service: newService(d)}
}

func (uc *CreateChallengeUseCase) Execute(ctx context.Context, cmd CreateChallengeCommand) (*ChallengeView, error) {
	pref, _ := gamevo.NewColorPreference(cmd.ColorPreference)
	c, err := challenge.New(challenge.Params{
		ChallengerID:    cmd.ChallengerID,
		OpponentID:      cmd.OpponentID,
		TimeControl:     cmd.TimeControl,
		Variant:         cmd.Variant,
		Rated:           cmd.Rated,
		ColorPreference: pref,
		TTL:             uc.TTL,
		Now:             uc.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := uc.Challenges.Create(ctx, c); err != nil {
		return nil, err
	}
	uc.Logger.Infow("challenge created",
		"challenge_id", c.ID,
		"challenger_id", c.ChallengerID,
		"opponent_id", c.OpponentID,
		"time_control", c.TimeControl,
	)
	return toView(c), nil
}
