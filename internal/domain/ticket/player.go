package ticket

import (
	"time"

	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
)

// Player is one seat on a ticket. Status mirrors the ticket while the
// player is still active on it.
type Player struct {
	PlayerID  string          `json:"player_id"`
	MMR       int             `json:"mmr"`
	RD        float64         `json:"rd"`
	Platform  string          `json:"platform,omitempty"`
	InputType string          `json:"input_type,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Status    vo.TicketStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// LatencyTo returns the player's reported latency to region, read from
// metadata.latency_ms.
func (p Player) LatencyTo(region string) (int, bool) {
	raw, ok := p.Metadata["latency_ms"].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := raw[region].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
