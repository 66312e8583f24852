package game

import (
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/domain/shared/events"
)

const (
	EventGameCreated = "game.created"
	EventGameStarted = "game.started"
	EventMovePlayed  = "move.played"
	EventGameEnded   = "game.ended"
)

type GameCreatedEvent struct {
	events.BaseEvent
	CreatorID      string            `json:"creator_id"`
	WhiteID        string            `json:"white_id,omitempty"`
	BlackID        string            `json:"black_id,omitempty"`
	BotID          string            `json:"bot_id,omitempty"`
	Variant        string            `json:"variant"`
	TimeControl    vo.TimeControl    `json:"time_control"`
	Rated          bool              `json:"rated"`
	DecisionReason vo.DecisionReason `json:"decision_reason"`
}

type GameStartedEvent struct {
	events.BaseEvent
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	StartedAt time.Time `json:"started_at"`
}

type MovePlayedEvent struct {
	events.BaseEvent
	Move         Move   `json:"move"`
	FEN          string `json:"fen"`
	WhiteClockMS int64  `json:"white_clock_ms"`
	BlackClockMS int64  `json:"black_clock_ms"`
}

type GameEndedEvent struct {
	events.BaseEvent
	WhiteID     string         `json:"white_id"`
	BlackID     string         `json:"black_id"`
	BotID       string         `json:"bot_id,omitempty"`
	Result      vo.Result      `json:"result"`
	EndReason   vo.EndReason   `json:"end_reason"`
	TimeControl vo.TimeControl `json:"time_control"`
	Variant     string         `json:"variant"`
	Rated       bool           `json:"rated"`
	MoveCount   int            `json:"move_count"`
	EndedAt     time.Time      `json:"ended_at"`
}
