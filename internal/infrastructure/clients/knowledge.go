package clients

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const BreakerKnowledge = "chess-knowledge"

type bookResponse struct {
	Move  string `json:"move"`
	Moves []struct {
		UCI string `json:"uci"`
	} `json:"moves"`
}

type tablebaseResponse struct {
	BestMove string `json:"best_move"`
}

// KnowledgeClient reads the opening book and endgame tablebases.
type KnowledgeClient struct {
	api *jsonClient
}

func NewKnowledgeClient(baseURL string, timeout time.Duration, b *breaker.Breaker, log logger.Interface) *KnowledgeClient {
	return &KnowledgeClient{api: newJSONClient(baseURL, timeout, b, log)}
}

// BookMove returns "" when the position is out of book.
func (c *KnowledgeClient) BookMove(ctx context.Context, fen, repertoire string) (string, error) {
	q := url.Values{"fen": {fen}}
	if repertoire != "" {
		q.Set("repertoire", repertoire)
	}
	var out bookResponse
	if err := c.api.do(ctx, http.MethodGet, "/v1/openings/book", q, nil, &out); err != nil {
		if errors.IsNotFoundError(err) {
			return "", nil
		}
		return "", err
	}
	if out.Move != "" {
		return out.Move, nil
	}
	if len(out.Moves) > 0 {
		return out.Moves[0].UCI, nil
	}
	return "", nil
}

// TablebaseMove returns "" when the position is not covered.
func (c *KnowledgeClient) TablebaseMove(ctx context.Context, fen string) (string, error) {
	var out tablebaseResponse
	if err := c.api.do(ctx, http.MethodGet, "/v1/tablebase", url.Values{"fen": {fen}}, nil, &out); err != nil {
		if errors.IsNotFoundError(err) {
			return "", nil
		}
		return "", err
	}
	return out.BestMove, nil
}
