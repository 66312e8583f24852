package dto

import (
	"time"

	"github.com/chessforge/gamecore/internal/domain/ticket"
)

type TicketPlayerDTO struct {
	PlayerID  string         `json:"player_id"`
	MMR       int            `json:"mmr"`
	RD        float64        `json:"rating_deviation"`
	Platform  string         `json:"platform,omitempty"`
	InputType string         `json:"input_type,omitempty"`
	Status    string         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TicketDTO struct {
	TicketID           string            `json:"ticket_id"`
	EnqueueKey         string            `json:"enqueue_key"`
	IdempotencyKey     string            `json:"idempotency_key"`
	MutationSeq        int64             `json:"mutation_seq"`
	PoolKey            string            `json:"pool_key"`
	Status             string            `json:"status"`
	Type               string            `json:"type"`
	WideningStage      int               `json:"widening_stage"`
	HardConstraints    map[string]string `json:"hard_constraints"`
	SoftConstraints    map[string]any    `json:"soft_constraints"`
	SearchParams       map[string]any    `json:"search_params,omitempty"`
	LastHeartbeatAt    *time.Time        `json:"last_heartbeat_at"`
	HeartbeatTimeoutAt *time.Time        `json:"heartbeat_timeout_at"`
	ProposalID         *string           `json:"proposal_id"`
	ProposalTimeoutAt  *time.Time        `json:"proposal_timeout_at"`
	MatchID            *string           `json:"match_id"`
	Players            []TicketPlayerDTO `json:"players"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func ToTicketDTO(t *ticket.Ticket) *TicketDTO {
	if t == nil {
		return nil
	}
	hard := t.Hard()
	players := make([]TicketPlayerDTO, 0, t.Size())
	for _, p := range t.Players() {
		players = append(players, TicketPlayerDTO{
			PlayerID:  p.PlayerID,
			MMR:       p.MMR,
			RD:        p.RD,
			Platform:  p.Platform,
			InputType: p.InputType,
			Status:    p.Status.String(),
			Metadata:  p.Metadata,
		})
	}
	return &TicketDTO{
		TicketID:       t.ID(),
		EnqueueKey:     t.EnqueueKey(),
		IdempotencyKey: t.IdempotencyKey(),
		MutationSeq:    t.MutationSeq(),
		PoolKey:        t.PoolKey(),
		Status:         t.Status().String(),
		Type:           string(t.Type()),
		WideningStage:  t.WideningStage(),
		HardConstraints: map[string]string{
			"time_control": hard.TimeControl,
			"mode":         hard.Mode,
			"variant":      hard.Variant,
			"region":       hard.Region,
		},
		SoftConstraints:    t.Soft(),
		SearchParams:       t.SearchParams(),
		LastHeartbeatAt:    t.LastHeartbeatAt(),
		HeartbeatTimeoutAt: t.HeartbeatTimeoutAt(),
		ProposalID:         optional(t.ProposalID()),
		ProposalTimeoutAt:  t.ProposalTimeoutAt(),
		MatchID:            optional(t.MatchID()),
		Players:            players,
		CreatedAt:          t.CreatedAt(),
		UpdatedAt:          t.UpdatedAt(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
