// Package bot serves the bot orchestrator API.
package bot

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/application/bot/usecases"
	domain "github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/interfaces/http/validation"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
	"github.com/chessforge/gamecore/internal/shared/utils"
)

type moveChooser interface {
	Execute(ctx context.Context, cmd usecases.ChooseMoveCommand) (*domain.MoveResponse, error)
}

type recentMovesLister interface {
	Execute(ctx context.Context, botID string, limit int) []domain.RecordedMove
}

type MoveRequest struct {
	GameID     string         `json:"game_id" binding:"required"`
	FEN        string         `json:"fen" binding:"required,fen"`
	MoveNumber int            `json:"move_number" binding:"min=0"`
	BotColor   string         `json:"bot_color" binding:"required,oneof=w b white black"`
	Clocks     domain.Clocks  `json:"clocks"`
	Metadata   map[string]any `json:"metadata"`
	Debug      bool           `json:"debug"`
}

// seed reads metadata.seed; JSON numbers arrive as float64.
func (r MoveRequest) seed() *uint64 {
	switch v := r.Metadata["seed"].(type) {
	case float64:
		if v >= 0 {
			s := uint64(v)
			return &s
		}
	case string:
		if s, err := strconv.ParseUint(v, 10, 64); err == nil {
			return &s
		}
	}
	return nil
}

type Handler struct {
	choose moveChooser
	recent recentMovesLister
	logger logger.Interface
}

func NewHandler(choose moveChooser, recent recentMovesLister, logger logger.Interface) *Handler {
	return &Handler{choose: choose, recent: recent, logger: logger}
}

// ChooseMove handles POST /v1/bots/:bot_id/move
func (h *Handler) ChooseMove(c *gin.Context) {
	var req MoveRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp, err := h.choose.Execute(c.Request.Context(), usecases.ChooseMoveCommand{
		BotID: c.Param("bot_id"),
		Request: domain.MoveRequest{
			GameID:     req.GameID,
			FEN:        req.FEN,
			MoveNumber: req.MoveNumber,
			BotColor:   req.BotColor,
			Clocks:     req.Clocks,
			Debug:      req.Debug,
			Seed:       req.seed(),
		},
	})
	if err != nil {
		h.logger.Warnw("bot move failed", "bot_id", c.Param("bot_id"), "game_id", req.GameID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// RecentMoves handles GET /v1/bots/moves/recent?bot_id=&limit=
func (h *Handler) RecentMoves(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.ErrorResponseWithError(c, errors.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	moves := h.recent.Execute(c.Request.Context(), c.Query("bot_id"), limit)
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"moves": moves, "count": len(moves)})
}
