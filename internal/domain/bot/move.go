package bot

import (
	"sync"
	"time"
)

type Clocks struct {
	WhiteMS int64 `json:"white_ms"`
	BlackMS int64 `json:"black_ms"`
}

// MoveRequest asks a bot for its move in the given position.
type MoveRequest struct {
	GameID     string
	FEN        string
	MoveNumber int
	BotColor   string
	Clocks     Clocks
	Debug      bool
	Seed       *uint64
}

// RemainingMS is the bot's own clock.
func (r MoveRequest) RemainingMS() int64 {
	if r.BotColor == "black" || r.BotColor == "b" {
		return r.Clocks.BlackMS
	}
	return r.Clocks.WhiteMS
}

type ChosenReason struct {
	StyleBias string  `json:"style_bias"`
	EvalLoss  float64 `json:"eval_loss"`
}

type DebugInfo struct {
	Phase       Phase         `json:"phase,omitempty"`
	MistakeType MistakeType   `json:"mistake_type,omitempty"`
	EngineQuery *EngineQuery  `json:"engine_query,omitempty"`
	Candidates  []Candidate   `json:"candidates,omitempty"`
	Chosen      *ChosenReason `json:"chosen_reason,omitempty"`
	Notes       []string      `json:"notes,omitempty"`
}

type MoveResponse struct {
	GameID         string     `json:"game_id"`
	BotID          string     `json:"bot_id"`
	Move           string     `json:"move"`
	ThinkingTimeMS int        `json:"thinking_time_ms"`
	Debug          *DebugInfo `json:"debug_info,omitempty"`
}

// RecordedMove is one entry of the recent-moves log.
type RecordedMove struct {
	MoveResponse
	RecordedAt time.Time `json:"recorded_at"`
}

const DefaultMoveLogSize = 200

// MoveLog keeps the last N chosen moves for debugging.
type MoveLog struct {
	mu   sync.Mutex
	buf  []RecordedMove
	next int
	full bool
}

func NewMoveLog(size int) *MoveLog {
	if size <= 0 {
		size = DefaultMoveLogSize
	}
	return &MoveLog{buf: make([]RecordedMove, size)}
}

func (l *MoveLog) Record(resp MoveResponse, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = RecordedMove{MoveResponse: resp, RecordedAt: at}
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns up to limit entries, oldest first, optionally for one bot.
func (l *MoveLog) Recent(botID string, limit int) []RecordedMove {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ordered []RecordedMove
	if l.full {
		ordered = append(ordered, l.buf[l.next:]...)
	}
	ordered = append(ordered, l.buf[:l.next]...)

	out := make([]RecordedMove, 0, len(ordered))
	for _, m := range ordered {
		if botID == "" || m.BotID == botID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
