package challenge

import (
	"github.com/chessforge/gamecore/internal/application/challenge/usecases"
)

type CreateChallengeRequest struct {
	OpponentID      string `json:"opponent_user_id" binding:"required"`
	TimeControl     string `json:"time_control" binding:"required,time_control"`
	Variant         string `json:"variant"`
	Rated           bool   `json:"rated"`
	ColorPreference string `json:"preferred_color" binding:"omitempty,oneof=white black random"`
}

func (r CreateChallengeRequest) toCommand(challengerID string) usecases.CreateChallengeCommand {
	return usecases.CreateChallengeCommand{
		ChallengerID:    challengerID,
		OpponentID:      r.OpponentID,
		TimeControl:     r.TimeControl,
		Variant:         r.Variant,
		Rated:           r.Rated,
		ColorPreference: r.ColorPreference,
	}
}
