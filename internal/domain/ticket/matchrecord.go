package ticket

import (
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
)

type RatingSnapshot struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// MatchRecord is the durable trace of a finalized pairing.
type MatchRecord struct {
	MatchID        string
	GameID         string
	WhiteID        string
	BlackID        string
	PoolKey        string
	Hard           vo.HardConstraints
	Region         string
	TicketIDs      []string
	RatingSnapshot RatingSnapshot
	CreatedAt      time.Time
}
