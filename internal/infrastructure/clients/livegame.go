package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const BreakerLiveGame = "live-game"

// MatchedGameRequest is the body of POST /internal/games.
type MatchedGameRequest struct {
	MatchID        string         `json:"match_id"`
	WhiteUserID    string         `json:"white_user_id"`
	BlackUserID    string         `json:"black_user_id"`
	TimeControl    string         `json:"time_control"`
	Mode           string         `json:"mode"`
	Variant        string         `json:"variant"`
	RatingSnapshot map[string]int `json:"rating_snapshot"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type matchedGameResponse struct {
	GameID string `json:"game_id"`
}

// LiveGameClient creates matchmaking games on a remote live-game service.
type LiveGameClient struct {
	api    *jsonClient
	logger logger.Interface
}

func NewLiveGameClient(baseURL string, timeout time.Duration, b *breaker.Breaker, log logger.Interface) *LiveGameClient {
	return &LiveGameClient{api: newJSONClient(baseURL, timeout, b, log), logger: log}
}

func (c *LiveGameClient) CreateMatchedGame(ctx context.Context, req MatchedGameRequest) (string, error) {
	var out matchedGameResponse
	if err := c.api.do(ctx, http.MethodPost, "/internal/games", nil, req, &out); err != nil {
		c.logger.Warnw("live-game create failed", "match_id", req.MatchID, "error", err)
		return "", err
	}
	if out.GameID == "" {
		return "", errors.NewUnavailableError("live-game returned no game_id")
	}
	c.logger.Infow("created game via live-game",
		"match_id", req.MatchID,
		"game_id", out.GameID,
		"white_user_id", req.WhiteUserID,
		"black_user_id", req.BlackUserID,
	)
	return out.GameID, nil
}
