package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const BreakerEngine = "engine-cluster"

type evaluateRequest struct {
	FEN         string `json:"fen"`
	SideToMove  string `json:"side_to_move"`
	TimeLimitMS int    `json:"time_limit_ms"`
	MaxDepth    int    `json:"max_depth"`
	MultiPV     int    `json:"multi_pv"`
}

type evaluateResponse struct {
	Candidates []bot.Candidate `json:"candidates"`
	TimeMS     int             `json:"time_ms"`
}

// EngineClient calls POST /v1/evaluate on the engine cluster.
type EngineClient struct {
	api *jsonClient
}

func NewEngineClient(baseURL string, timeout time.Duration, b *breaker.Breaker, log logger.Interface) *EngineClient {
	return &EngineClient{api: newJSONClient(baseURL, timeout, b, log)}
}

func (c *EngineClient) Evaluate(ctx context.Context, fen, sideToMove string, q bot.EngineQuery) ([]bot.Candidate, error) {
	var out evaluateResponse
	err := c.api.do(ctx, http.MethodPost, "/v1/evaluate", nil, evaluateRequest{
		FEN:         fen,
		SideToMove:  sideToMove,
		TimeLimitMS: q.TimeLimitMS,
		MaxDepth:    q.MaxDepth,
		MultiPV:     q.MultiPV,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Candidates, nil
}
