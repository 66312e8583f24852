// Package challenge serves direct challenges between two named players.
package challenge

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
	"github.com/chessforge/gamecore/internal/interfaces/http/validation"
	"github.com/chessforge/gamecore/internal/shared/errors"
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

// Create handles POST /v1/challenges. The caller is always the challenger.
func (h *Handler) Create(c *gin.Context) {
	var req CreateChallengeRequest
	if err := validation.BindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for challenge", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	view, err := h.uc.Create.Execute(c.Request.Context(), req.toCommand(middleware.UserID(c)))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.CreatedResponse(c, view, "challenge sent")
}

// Incoming handles GET /v1/challenges/incoming
func (h *Handler) Incoming(c *gin.Context) {
	views, err := h.uc.Incoming.Execute(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"challenges": views})
}

// Get handles GET /v1/challenges/:challenge_id
func (h *Handler) Get(c *gin.Context) {
	h.act(c, h.uc.Get, "")
}

// Accept handles POST /v1/challenges/:challenge_id/accept
func (h *Handler) Accept(c *gin.Context) {
	h.act(c, h.uc.Accept, "challenge accepted")
}

// Decline handles POST /v1/challenges/:challenge_id/decline
func (h *Handler) Decline(c *gin.Context) {
	h.act(c, h.uc.Decline, "challenge declined")
}

// Cancel handles POST /v1/challenges/:challenge_id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.act(c, h.uc.Cancel, "challenge cancelled")
}

func (h *Handler) act(c *gin.Context, uc answerExecutor, message string) {
	challengeID := c.Param("challenge_id")
	if challengeID == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("challenge id is required"))
		return
	}
	view, err := uc.Execute(c.Request.Context(), challengeID, middleware.UserID(c))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, message, view)
}
