package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
)

// ticketPlayerNamespace seeds the deterministic ids of match_ticket_players rows.
var ticketPlayerNamespace = uuid.MustParse("5b0f3c6e-8d7a-4f43-9e0c-2f6a51d7b9a4")

// TicketMapper handles the conversion between matchmaking tickets and persistence models.
type TicketMapper interface {
	// ToModel converts a ticket, including its players, to persistence models.
	ToModel(t *ticket.Ticket) (*models.TicketModel, error)

	// ToDomain converts a ticket model with preloaded players to a domain entity.
	ToDomain(model *models.TicketModel) (*ticket.Ticket, error)

	MatchToModel(m *ticket.MatchRecord) (*models.MatchRecordModel, error)
	MatchToDomain(model *models.MatchRecordModel) (*ticket.MatchRecord, error)
}

type ticketMapper struct{}

func NewTicketMapper() TicketMapper {
	return &ticketMapper{}
}

// TicketPlayerRowID derives the row id for a player's seat on a ticket.
func TicketPlayerRowID(ticketID, playerID string) string {
	return uuid.NewSHA1(ticketPlayerNamespace, []byte(ticketID+"/"+playerID)).String()
}

func (m *ticketMapper) ToModel(t *ticket.Ticket) (*models.TicketModel, error) {
	s := t.State()

	hard, err := marshalJSON(s.Hard)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraints: %w", err)
	}
	soft, err := marshalJSON(s.Soft)
	if err != nil {
		return nil, fmt.Errorf("failed to encode soft constraints: %w", err)
	}
	widening, err := marshalJSON(s.Widening)
	if err != nil {
		return nil, fmt.Errorf("failed to encode widening config: %w", err)
	}
	search, err := marshalJSON(s.SearchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search params: %w", err)
	}

	model := &models.TicketModel{
		ID:                 s.ID,
		EnqueueKey:         s.EnqueueKey,
		IdempotencyKey:     t.IdempotencyKey(),
		PoolKey:            s.PoolKey,
		Status:             s.Status.String(),
		Type:               string(s.Type),
		Constraints:        hard,
		SoftConstraints:    soft,
		WideningConfig:     widening,
		SearchParams:       search,
		MutationSeq:        s.MutationSeq,
		WideningStage:      s.WideningStage,
		LeaderPlayerID:     t.Leader().PlayerID,
		LastHeartbeatAt:    s.LastHeartbeatAt,
		HeartbeatTimeoutAt: s.HeartbeatTimeoutAt,
		ProposalID:         optional(s.ProposalID),
		ProposalTimeoutAt:  s.ProposalTimeoutAt,
		AcceptedAt:         s.AcceptedAt,
		MatchID:            optional(s.MatchID),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}

	model.Players = make([]models.TicketPlayerModel, len(s.Players))
	for i, p := range s.Players {
		meta, err := marshalJSON(p.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode player metadata: %w", err)
		}
		model.Players[i] = models.TicketPlayerModel{
			ID:         TicketPlayerRowID(s.ID, p.PlayerID),
			TicketID:   s.ID,
			PlayerID:   p.PlayerID,
			EnqueueKey: s.EnqueueKey,
			PoolKey:    s.PoolKey,
			Position:   i,
			MMR:        p.MMR,
			RD:         p.RD,
			Platform:   p.Platform,
			InputType:  p.InputType,
			Metadata:   meta,
			Status:     p.Status.String(),
			CreatedAt:  p.CreatedAt,
		}
	}
	return model, nil
}

func (m *ticketMapper) ToDomain(model *models.TicketModel) (*ticket.Ticket, error) {
	if model == nil {
		return nil, nil
	}

	s := ticket.State{
		ID:                 model.ID,
		EnqueueKey:         model.EnqueueKey,
		MutationSeq:        model.MutationSeq,
		PoolKey:            model.PoolKey,
		Status:             vo.TicketStatus(model.Status),
		Type:               vo.TicketType(model.Type),
		WideningStage:      model.WideningStage,
		LastHeartbeatAt:    utcPtr(model.LastHeartbeatAt),
		HeartbeatTimeoutAt: utcPtr(model.HeartbeatTimeoutAt),
		ProposalID:         deref(model.ProposalID),
		ProposalTimeoutAt:  utcPtr(model.ProposalTimeoutAt),
		AcceptedAt:         utcPtr(model.AcceptedAt),
		MatchID:            deref(model.MatchID),
		CreatedAt:          model.CreatedAt.UTC(),
		UpdatedAt:          model.UpdatedAt.UTC(),
	}
	if err := unmarshalJSON(model.Constraints, &s.Hard); err != nil {
		return nil, fmt.Errorf("ticket %s: bad constraints: %w", model.ID, err)
	}
	if err := unmarshalJSON(model.SoftConstraints, &s.Soft); err != nil {
		return nil, fmt.Errorf("ticket %s: bad soft constraints: %w", model.ID, err)
	}
	if err := unmarshalJSON(model.WideningConfig, &s.Widening); err != nil {
		return nil, fmt.Errorf("ticket %s: bad widening config: %w", model.ID, err)
	}
	if err := unmarshalJSON(model.SearchParams, &s.SearchParams); err != nil {
		return nil, fmt.Errorf("ticket %s: bad search params: %w", model.ID, err)
	}

	s.Players = make([]ticket.Player, len(model.Players))
	for _, p := range model.Players {
		if p.Position < 0 || p.Position >= len(model.Players) {
			return nil, fmt.Errorf("ticket %s: player %s has position %d", model.ID, p.PlayerID, p.Position)
		}
		player := ticket.Player{
			PlayerID:  p.PlayerID,
			MMR:       p.MMR,
			RD:        p.RD,
			Platform:  p.Platform,
			InputType: p.InputType,
			Status:    vo.TicketStatus(p.Status),
			CreatedAt: p.CreatedAt.UTC(),
		}
		if err := unmarshalJSON(p.Metadata, &player.Metadata); err != nil {
			return nil, fmt.Errorf("ticket %s: bad metadata for %s: %w", model.ID, p.PlayerID, err)
		}
		s.Players[p.Position] = player
	}

	return ticket.ReconstructTicket(s)
}

func (m *ticketMapper) MatchToModel(r *ticket.MatchRecord) (*models.MatchRecordModel, error) {
	ids, err := marshalJSON(r.TicketIDs)
	if err != nil {
		return nil, err
	}
	snapshot, err := marshalJSON(r.RatingSnapshot)
	if err != nil {
		return nil, err
	}
	return &models.MatchRecordModel{
		MatchID:        r.MatchID,
		GameID:         r.GameID,
		WhiteID:        r.WhiteID,
		BlackID:        r.BlackID,
		PoolKey:        r.PoolKey,
		TimeControl:    r.Hard.TimeControl,
		Mode:           r.Hard.Mode,
		Variant:        r.Hard.Variant,
		Region:         r.Region,
		TicketIDs:      ids,
		RatingSnapshot: snapshot,
		CreatedAt:      r.CreatedAt,
	}, nil
}

func (m *ticketMapper) MatchToDomain(model *models.MatchRecordModel) (*ticket.MatchRecord, error) {
	hard, err := vo.ParsePoolKey(model.PoolKey)
	if err != nil {
		hard = vo.HardConstraints{TimeControl: model.TimeControl, Mode: model.Mode, Variant: model.Variant}
	}
	r := &ticket.MatchRecord{
		MatchID:   model.MatchID,
		GameID:    model.GameID,
		WhiteID:   model.WhiteID,
		BlackID:   model.BlackID,
		PoolKey:   model.PoolKey,
		Hard:      hard,
		Region:    model.Region,
		CreatedAt: model.CreatedAt.UTC(),
	}
	if err := unmarshalJSON(model.TicketIDs, &r.TicketIDs); err != nil {
		return nil, fmt.Errorf("match %s: bad ticket ids: %w", model.MatchID, err)
	}
	if err := unmarshalJSON(model.RatingSnapshot, &r.RatingSnapshot); err != nil {
		return nil, fmt.Errorf("match %s: bad rating snapshot: %w", model.MatchID, err)
	}
	return r, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// unmarshalJSON leaves dst untouched for empty or null columns.
func unmarshalJSON(data datatypes.JSON, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}
