package game

import (
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

// State is the flat, serialisable form of a Game. Repositories, the cache and
// API responses all read it; only ReconstructGame turns it back into an aggregate.
type State struct {
	ID             string            `json:"game_id"`
	CreatorID      string            `json:"creator_id"`
	WhiteID        string            `json:"white_id,omitempty"`
	BlackID        string            `json:"black_id,omitempty"`
	BotID          string            `json:"bot_id,omitempty"`
	BotColor       vo.Color          `json:"bot_color,omitempty"`
	Status         vo.GameStatus     `json:"status"`
	Rated          bool              `json:"rated"`
	DecisionReason vo.DecisionReason `json:"decision_reason"`
	Variant        string            `json:"variant"`
	TimeControl    vo.TimeControl    `json:"time_control"`
	WhiteClockMS   int64             `json:"white_clock_ms"`
	BlackClockMS   int64             `json:"black_clock_ms"`
	SideToMove     vo.Color          `json:"side_to_move"`
	FEN            string            `json:"fen"`
	StartingFEN    string            `json:"starting_fen,omitempty"`
	IsOdds         bool              `json:"is_odds_game"`
	IsLocal        bool              `json:"is_local_game"`
	Moves          []Move            `json:"moves"`
	Result         vo.Result         `json:"result,omitempty"`
	EndReason      vo.EndReason      `json:"end_reason,omitempty"`
	DrawOfferBy    vo.Color          `json:"draw_offer_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	EndedAt        *time.Time        `json:"ended_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (g *Game) State() State {
	return State{
		ID:             g.id,
		CreatorID:      g.creatorID,
		WhiteID:        g.whiteID,
		BlackID:        g.blackID,
		BotID:          g.botID,
		BotColor:       g.botColor,
		Status:         g.status,
		Rated:          g.rated,
		DecisionReason: g.decisionReason,
		Variant:        g.variant,
		TimeControl:    g.timeControl,
		WhiteClockMS:   g.whiteClockMS,
		BlackClockMS:   g.blackClockMS,
		SideToMove:     g.sideToMove,
		FEN:            g.fen,
		StartingFEN:    g.startingFEN,
		IsOdds:         g.isOdds,
		IsLocal:        g.isLocal,
		Moves:          g.Moves(),
		Result:         g.result,
		EndReason:      g.endReason,
		DrawOfferBy:    g.drawOfferBy,
		CreatedAt:      g.createdAt,
		StartedAt:      g.startedAt,
		EndedAt:        g.endedAt,
		UpdatedAt:      g.updatedAt,
	}
}
