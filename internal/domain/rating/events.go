package rating

import (
	"time"

	"github.com/chessforge/gamecore/internal/domain/shared/events"
)

const EventRatingUpdated = "rating.updated"

// Change reasons recorded on audit rows.
const (
	ReasonGame            = "game"
	ReasonAdminAdjustment = "admin_adjustment"
	ReasonRecompute       = "recompute"
)

// Event is the audit row written for every rating change.
type Event struct {
	ID        string
	UserID    string
	PoolCode  string
	GameID    string
	Old       State
	New       State
	Reason    string
	CreatedAt time.Time
}

// RatingUpdatedEvent is staged in the outbox and keyed by user:pool so that
// one player's updates in a pool stay ordered.
type RatingUpdatedEvent struct {
	events.BaseEvent
	UserID       string  `json:"user_id"`
	PoolID       string  `json:"pool_id"`
	Rating       float64 `json:"rating"`
	RD           float64 `json:"rating_deviation"`
	Volatility   float64 `json:"volatility"`
	GamesPlayed  int     `json:"games_played"`
	Provisional  bool    `json:"provisional"`
	SourceGameID string  `json:"source_game_id"`
}

func NewRatingUpdatedEvent(u *UserRating, gameID string, at time.Time) *RatingUpdatedEvent {
	return &RatingUpdatedEvent{
		BaseEvent:    events.NewBaseEvent(EventRatingUpdated, OutboxAggregateID(u.UserID, u.PoolCode), at),
		UserID:       u.UserID,
		PoolID:       u.PoolCode,
		Rating:       u.State.Rating,
		RD:           u.State.RD,
		Volatility:   u.State.Volatility,
		GamesPlayed:  u.GamesPlayed,
		Provisional:  u.Provisional,
		SourceGameID: gameID,
	}
}

func (e *RatingUpdatedEvent) PartitionKey() string {
	return OutboxAggregateID(e.UserID, e.PoolID)
}

// OutboxAggregateID is the user:pool key of rating.updated.
func OutboxAggregateID(userID, poolCode string) string {
	return userID + ":" + poolCode
}
