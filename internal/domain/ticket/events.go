package ticket

import (
	"time"

	"github.com/chessforge/gamecore/internal/domain/shared/events"
)

const EventMatchCreated = "match.created"

// MatchCreatedEvent is published on matchmaking.matches, keyed by match id.
type MatchCreatedEvent struct {
	events.BaseEvent
	MatchID        string         `json:"match_id"`
	GameID         string         `json:"game_id"`
	WhiteID        string         `json:"white_id"`
	BlackID        string         `json:"black_id"`
	PoolKey        string         `json:"pool_key"`
	TimeControl    string         `json:"time_control"`
	Mode           string         `json:"mode"`
	Variant        string         `json:"variant"`
	Region         string         `json:"region"`
	TicketIDs      []string       `json:"ticket_ids"`
	RatingSnapshot RatingSnapshot `json:"rating_snapshot"`
}

func NewMatchCreatedEvent(m *MatchRecord, occurredAt time.Time) MatchCreatedEvent {
	return MatchCreatedEvent{
		BaseEvent:      events.NewBaseEvent(EventMatchCreated, m.MatchID, occurredAt),
		MatchID:        m.MatchID,
		GameID:         m.GameID,
		WhiteID:        m.WhiteID,
		BlackID:        m.BlackID,
		PoolKey:        m.PoolKey,
		TimeControl:    m.Hard.TimeControl,
		Mode:           m.Hard.Mode,
		Variant:        m.Hard.Variant,
		Region:         m.Region,
		TicketIDs:      m.TicketIDs,
		RatingSnapshot: m.RatingSnapshot,
	}
}
