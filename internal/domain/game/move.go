package game

import (
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

// Move is one appended ply. Moves are never edited, only popped by takeback.
type Move struct {
	Ply        int       `json:"ply"`
	MoveNumber int       `json:"move_number"`
	Color      vo.Color  `json:"color"`
	FromSquare string    `json:"from_square"`
	ToSquare   string    `json:"to_square"`
	Promotion  string    `json:"promotion,omitempty"`
	SAN        string    `json:"san"`
	FENAfter   string    `json:"fen_after"`
	PlayedAt   time.Time `json:"played_at"`
	ElapsedMS  int64     `json:"elapsed_ms"`
}

// UCI renders the move in UCI notation.
func (m Move) UCI() string {
	return m.FromSquare + m.ToSquare + m.Promotion
}
