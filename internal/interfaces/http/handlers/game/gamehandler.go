// Package game serves the live-game REST API and the game websocket.
package game

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/application/game/usecases"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
	"github.com/chessforge/gamecore/internal/interfaces/http/validation"
	"github.com/chessforge/gamecore/internal/shared/logger"
	"github.com/chessforge/gamecore/internal/shared/utils"
)

type Handler struct {
	uc     UseCases
	logger logger.Interface
}

func NewHandler(uc UseCases, logger logger.Interface) *Handler {
	return &Handler{uc: uc, logger: logger}
}

// Create handles POST /games
func (h *Handler) Create(c *gin.Context) {
	var req CreateGameRequest
	if err := validation.BindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for create game", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	view, err := h.uc.CreateChallenge.Execute(c.Request.Context(), usecases.CreateChallengeCommand{
		CreatorID:       middleware.UserID(c),
		TimeControl:     req.input(),
		Variant:         req.Variant,
		ColorPreference: req.ColorPreference,
		Rated:           req.Rated,
		StartingFEN:     req.StartingFEN,
		IsOdds:          req.IsOdds,
		IsLocal:         req.IsLocal,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.CreatedResponse(c, view, "game created")
}

// CreateInternal handles POST /internal/games
func (h *Handler) CreateInternal(c *gin.Context) {
	var req InternalCreateGameRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	whiteRating, blackRating := req.ratings()
	view, err := h.uc.CreateGame.Execute(c.Request.Context(), usecases.CreateGameCommand{
		WhiteID:     req.WhiteID,
		BlackID:     req.BlackID,
		TimeControl: req.input(),
		Variant:     req.Variant,
		Rated:       req.rated(),
		WhiteRating: whiteRating,
		BlackRating: blackRating,
		MatchID:     req.MatchID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.CreatedResponse(c, view, "game created")
}

// CreateBotGame handles POST /games/bot
func (h *Handler) CreateBotGame(c *gin.Context) {
	var req CreateBotGameRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	view, err := h.uc.CreateBotGame.Execute(c.Request.Context(), usecases.CreateBotGameCommand{
		PlayerID:    middleware.UserID(c),
		Difficulty:  req.Difficulty,
		PlayerColor: req.PlayerColor,
		TimeControl: req.input(),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.CreatedResponse(c, view, "bot game created")
}

// Join handles POST /games/:id/join
func (h *Handler) Join(c *gin.Context) {
	var req JoinGameRequest
	if c.Request.ContentLength > 0 {
		if err := validation.BindJSON(c, &req); err != nil {
			utils.ErrorResponseWithError(c, err)
			return
		}
	}

	view, err := h.uc.Join.Execute(c.Request.Context(), usecases.JoinGameCommand{
		GameID:          c.Param("id"),
		PlayerID:        middleware.UserID(c),
		ColorPreference: req.ColorPreference,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "joined game", view)
}

// Move handles POST /games/:id/moves. A replayed submission returns the
// stored response of the original.
func (h *Handler) Move(c *gin.Context) {
	var req MoveRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.uc.Move.Execute(c.Request.Context(), usecases.PlayMoveCommand{
		GameID:      c.Param("id"),
		PlayerID:    middleware.UserID(c),
		From:        req.From,
		To:          req.To,
		Promotion:   req.Promotion,
		MoveID:      req.MoveID,
		ExpectedPly: req.ExpectedPly,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if result.Replayed {
		c.Header("X-Idempotent-Replay", "true")
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// Resign handles POST /games/:id/resign
func (h *Handler) Resign(c *gin.Context) {
	view, err := h.uc.Resign.Execute(c.Request.Context(), usecases.ResignCommand{
		GameID:   c.Param("id"),
		PlayerID: middleware.UserID(c),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "game resigned", view)
}

// Takeback handles POST /games/:id/takeback
func (h *Handler) Takeback(c *gin.Context) {
	result, err := h.uc.Takeback.Execute(c.Request.Context(), usecases.TakebackCommand{
		GameID:   c.Param("id"),
		PlayerID: middleware.UserID(c),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// SetPosition handles POST /games/:id/position
func (h *Handler) SetPosition(c *gin.Context) {
	var req SetPositionRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	view, err := h.uc.SetPosition.Execute(c.Request.Context(), usecases.SetPositionCommand{
		GameID:   c.Param("id"),
		PlayerID: middleware.UserID(c),
		FEN:      req.FEN,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// UpdateRated handles PATCH /games/:id/rated
func (h *Handler) UpdateRated(c *gin.Context) {
	var req UpdateRatedRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	view, err := h.uc.UpdateRated.Execute(c.Request.Context(), usecases.UpdateRatedCommand{
		GameID:   c.Param("id"),
		PlayerID: middleware.UserID(c),
		Rated:    *req.Rated,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// OfferDraw handles POST /games/:id/draw/offer
func (h *Handler) OfferDraw(c *gin.Context) {
	view, err := h.uc.Draw.Offer(c.Request.Context(), h.drawCommand(c))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "draw offered", view)
}

// AcceptDraw handles POST /games/:id/draw/accept
func (h *Handler) AcceptDraw(c *gin.Context) {
	view, err := h.uc.Draw.Accept(c.Request.Context(), h.drawCommand(c))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "draw agreed", view)
}

func (h *Handler) drawCommand(c *gin.Context) usecases.DrawCommand {
	return usecases.DrawCommand{GameID: c.Param("id"), PlayerID: middleware.UserID(c)}
}

// Get handles GET /games/:id
func (h *Handler) Get(c *gin.Context) {
	view, err := h.uc.Get.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// LegalMoves handles GET /games/:id/legal-moves
func (h *Handler) LegalMoves(c *gin.Context) {
	result, err := h.uc.Get.LegalMoves(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}
