package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const BreakerBot = "bot-orchestrator"

var ErrBotNotConfigured = errors.NewNotFoundError("bot not configured").WithReason(errors.ReasonBotNotConfigured)

type botMoveRequest struct {
	GameID     string         `json:"game_id"`
	FEN        string         `json:"fen"`
	MoveNumber int            `json:"move_number"`
	BotColor   string         `json:"bot_color"`
	Clocks     bot.Clocks     `json:"clocks"`
	Debug      bool           `json:"debug,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// BotClient asks a remote bot orchestrator for moves.
type BotClient struct {
	api *jsonClient
}

func NewBotClient(baseURL string, timeout time.Duration, b *breaker.Breaker, log logger.Interface) *BotClient {
	return &BotClient{api: newJSONClient(baseURL, timeout, b, log)}
}

func (c *BotClient) RequestMove(ctx context.Context, botID string, req bot.MoveRequest) (*bot.MoveResponse, error) {
	body := botMoveRequest{
		GameID:     req.GameID,
		FEN:        req.FEN,
		MoveNumber: req.MoveNumber,
		BotColor:   req.BotColor,
		Clocks:     req.Clocks,
		Debug:      req.Debug,
	}
	if req.Seed != nil {
		body.Metadata = map[string]any{"seed": *req.Seed}
	}

	var out bot.MoveResponse
	path := fmt.Sprintf("/v1/bots/%s/move", url.PathEscape(botID))
	if err := c.api.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		if errors.IsNotFoundError(err) {
			return nil, ErrBotNotConfigured
		}
		return nil, err
	}
	return &out, nil
}
