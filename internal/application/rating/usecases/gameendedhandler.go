package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/chessforge/gamecore/internal/domain/rating"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	eventGameEnded     = "game.ended"
	endReasonAbandoned = "abandoned"
)

var ErrMalformedEvent = apperrors.NewValidationError("malformed game.ended event")

type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeApplied
	OutcomeReplayed
)

type gameIngester interface {
	Execute(ctx context.Context, cmd IngestGameResultCommand) (*IngestGameResultResult, error)
}

// gameEndedPayload accepts both the live-game field names and the
// account-id aliases used by older producers.
type gameEndedPayload struct {
	EventType      string           `json:"event_type"`
	GameID         string           `json:"game_id"`
	AggregateID    string           `json:"aggregate_id"`
	WhiteID        string           `json:"white_id"`
	BlackID        string           `json:"black_id"`
	WhiteAccountID string           `json:"white_account_id"`
	BlackAccountID string           `json:"black_account_id"`
	BotID          string           `json:"bot_id"`
	Result         string           `json:"result"`
	EndReason      string           `json:"end_reason"`
	Rated          *bool            `json:"rated"`
	Variant        string           `json:"variant"`
	TimeControl    *timeControlJSON `json:"time_control"`
	EndedAt        *time.Time       `json:"ended_at"`
	OccurredAt     *time.Time       `json:"occurred_at"`
}

type timeControlJSON struct {
	InitialMS      int64 `json:"initial_ms"`
	InitialSeconds int64 `json:"initial_seconds"`
}

func (tc *timeControlJSON) initialMS() int64 {
	if tc == nil {
		return 0
	}
	if tc.InitialMS > 0 {
		return tc.InitialMS
	}
	return tc.InitialSeconds * 1000
}

// GameEndedHandler turns game.ended events from the bus into ingestions.
type GameEndedHandler struct {
	ingest gameIngester
	logger logger.Interface
}

func NewGameEndedHandler(ingest gameIngester, logger logger.Interface) *GameEndedHandler {
	return &GameEndedHandler{ingest: ingest, logger: logger}
}

// Parse decodes payload. It returns nil, nil for events that carry nothing
// to rate: other event types, bot games, unrated and abandoned games.
func (h *GameEndedHandler) Parse(payload []byte) (*IngestGameResultCommand, error) {
	var p gameEndedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if p.EventType != "" && p.EventType != eventGameEnded {
		return nil, nil
	}
	if p.BotID != "" || strings.HasPrefix(p.WhiteID, "bot-") || strings.HasPrefix(p.BlackID, "bot-") {
		return nil, nil
	}
	if p.Rated != nil && !*p.Rated {
		return nil, nil
	}
	if p.EndReason == endReasonAbandoned && p.Result == "" {
		return nil, nil
	}

	gameID := firstNonEmpty(p.GameID, p.AggregateID)
	white := firstNonEmpty(p.WhiteID, p.WhiteAccountID)
	black := firstNonEmpty(p.BlackID, p.BlackAccountID)
	if gameID == "" || white == "" || black == "" || p.Result == "" {
		return nil, ErrMalformedEvent
	}

	initial := p.TimeControl.initialMS()
	if initial <= 0 {
		return nil, ErrMalformedEvent
	}
	variant := p.Variant
	if variant == "" {
		variant = "standard"
	}

	cmd := &IngestGameResultCommand{
		GameID:      gameID,
		PoolCode:    rating.PoolCodeFor(initial, variant),
		WhiteUserID: white,
		BlackUserID: black,
		Result:      p.Result,
		Rated:       true,
	}
	switch {
	case p.EndedAt != nil:
		cmd.EndedAt = p.EndedAt.UTC()
	case p.OccurredAt != nil:
		cmd.EndedAt = p.OccurredAt.UTC()
	}
	return cmd, nil
}

// Handle ingests one event. Validation and not-found errors are permanent;
// everything else may succeed on retry.
func (h *GameEndedHandler) Handle(ctx context.Context, payload []byte) (Outcome, error) {
	cmd, err := h.Parse(payload)
	if err != nil {
		h.logger.Warnw("dropping malformed game.ended event", "error", err)
		return OutcomeIgnored, err
	}
	if cmd == nil {
		return OutcomeIgnored, nil
	}
	return h.apply(ctx, *cmd)
}

func (h *GameEndedHandler) apply(ctx context.Context, cmd IngestGameResultCommand) (Outcome, error) {
	res, err := h.ingest.Execute(ctx, cmd)
	if err != nil {
		return OutcomeIgnored, err
	}
	if res.Replayed {
		return OutcomeReplayed, nil
	}
	return OutcomeApplied, nil
}

// IsPermanent reports errors that retrying the same event cannot fix.
func IsPermanent(err error) bool {
	return apperrors.IsValidationError(err) || apperrors.IsNotFoundError(err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
