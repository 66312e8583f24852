package usecases

import (
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
)

// GameView is the API shape of a game: its state with both clocks read at
// the time of the response.
type GameView struct {
	game.State
	LastMove *game.Move `json:"last_move,omitempty"`
}

func ToGameView(g *game.Game, now time.Time) *GameView {
	s := g.State()
	s.WhiteClockMS, s.BlackClockMS = g.ClocksAt(now)
	return &GameView{State: s, LastMove: g.LastMove()}
}
