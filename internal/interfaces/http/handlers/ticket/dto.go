package ticket

import (
	"time"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/application/ticket/usecases"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
)

type PlayerRequest struct {
	PlayerID  string         `json:"player_id" binding:"required"`
	MMR       int            `json:"mmr" binding:"min=0,max=4000"`
	RD        float64        `json:"rating_deviation" binding:"min=0"`
	Platform  string         `json:"platform"`
	InputType string         `json:"input_type"`
	Metadata  map[string]any `json:"metadata"`
}

type ConstraintsRequest struct {
	TimeControl string `json:"time_control" binding:"required,time_control"`
	Mode        string `json:"mode" binding:"omitempty,oneof=rated casual"`
	Variant     string `json:"variant"`
	Region      string `json:"region"`
}

type EnqueueRequest struct {
	EnqueueKey      string             `json:"enqueue_key" binding:"required,max=128"`
	MutationSeq     int64              `json:"mutation_seq" binding:"min=0"`
	Constraints     ConstraintsRequest `json:"constraints" binding:"required"`
	Players         []PlayerRequest    `json:"players" binding:"required,min=1,dive"`
	SoftConstraints map[string]any     `json:"soft_constraints"`
	WideningConfig  vo.WideningConfig  `json:"widening_config"`
	SearchParams    map[string]any     `json:"search_params"`
}

func (r EnqueueRequest) ToCommand() usecases.EnqueueCommand {
	players := make([]usecases.PlayerInput, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, usecases.PlayerInput{
			PlayerID:  p.PlayerID,
			MMR:       p.MMR,
			RD:        p.RD,
			Platform:  p.Platform,
			InputType: p.InputType,
			Metadata:  p.Metadata,
		})
	}
	return usecases.EnqueueCommand{
		EnqueueKey:   r.EnqueueKey,
		MutationSeq:  r.MutationSeq,
		TimeControl:  r.Constraints.TimeControl,
		Mode:         r.Constraints.Mode,
		Variant:      r.Constraints.Variant,
		Region:       r.Constraints.Region,
		Players:      players,
		Soft:         r.SoftConstraints,
		Widening:     r.WideningConfig,
		SearchParams: r.SearchParams,
	}
}

type HeartbeatRequest struct {
	At *time.Time `json:"at"`
}

type UpdateTicketRequest struct {
	MutationSeq     int64          `json:"mutation_seq" binding:"min=0"`
	SoftConstraints map[string]any `json:"soft_constraints"`
	WideningStage   *int           `json:"widening_stage" binding:"omitempty,min=0"`
}

// ProposalResponse is returned by accept and decline.
type ProposalResponse struct {
	Ticket *dto.TicketDTO        `json:"ticket"`
	Match  *usecases.MatchResult `json:"match,omitempty"`
}
