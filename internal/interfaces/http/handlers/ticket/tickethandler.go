// Package ticket serves the matchmaking ticket API.
package ticket

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/application/ticket/usecases"
	"github.com/chessforge/gamecore/internal/infrastructure/auth"
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

// Enqueue handles POST /tickets/enqueue. A replayed enqueue answers 200 with
// the original ticket, a new one 201.
func (h *Handler) Enqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := validation.BindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for enqueue", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	if !callerIn(c, req.playerIDs()) {
		utils.ErrorResponseWithError(c, errors.NewForbiddenError("caller is not a player of this ticket"))
		return
	}

	result, err := h.uc.Enqueue.Execute(c.Request.Context(), req.ToCommand())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if result.Replayed {
		utils.SuccessResponse(c, http.StatusOK, "ticket already queued", result.Ticket)
		return
	}
	utils.CreatedResponse(c, result.Ticket, "ticket queued")
}

// Heartbeat handles POST /tickets/:id/heartbeat
func (h *Handler) Heartbeat(c *gin.Context) {
	ticketID, ok := h.authorize(c)
	if !ok {
		return
	}
	var req HeartbeatRequest
	if c.Request.ContentLength > 0 {
		if err := validation.BindJSON(c, &req); err != nil {
			utils.ErrorResponseWithError(c, err)
			return
		}
	}
	cmd := usecases.HeartbeatCommand{TicketID: ticketID}
	if req.At != nil {
		cmd.At = *req.At
	}

	result, err := h.uc.Heartbeat.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// Cancel handles POST /tickets/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	ticketID, ok := h.authorize(c)
	if !ok {
		return
	}
	result, err := h.uc.Cancel.Execute(c.Request.Context(), usecases.CancelTicketCommand{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "ticket cancelled", result)
}

// Update handles PATCH /tickets/:id
func (h *Handler) Update(c *gin.Context) {
	ticketID, ok := h.authorize(c)
	if !ok {
		return
	}
	var req UpdateTicketRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.uc.Update.Execute(c.Request.Context(), usecases.UpdateSoftConstraintsCommand{
		TicketID:      ticketID,
		MutationSeq:   req.MutationSeq,
		Soft:          req.SoftConstraints,
		WideningStage: req.WideningStage,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// Get handles GET /tickets/:id
func (h *Handler) Get(c *gin.Context) {
	if _, ok := h.authorize(c); !ok {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", c.MustGet(ticketContextKey))
}

// Accept handles POST /tickets/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	h.respond(c, h.uc.Accept)
}

// Decline handles POST /tickets/:id/decline
func (h *Handler) Decline(c *gin.Context) {
	h.respond(c, h.uc.Decline)
}

func (h *Handler) respond(c *gin.Context, uc proposalExecutor) {
	ticketID, ok := h.authorize(c)
	if !ok {
		return
	}
	result, err := uc.Execute(c.Request.Context(), usecases.RespondProposalCommand{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", ProposalResponse{Ticket: result.Ticket, Match: result.Match})
}

const ticketContextKey = "ticket"

// authorize loads the ticket named in the path and checks the caller plays
// on it. Admin and service tokens may act on any ticket.
func (h *Handler) authorize(c *gin.Context) (string, bool) {
	ticketID := c.Param("id")
	if ticketID == "" {
		utils.ErrorResponseWithError(c, errors.NewValidationError("ticket id is required"))
		return "", false
	}
	t, err := h.uc.Get.Execute(c.Request.Context(), usecases.GetTicketQuery{TicketID: ticketID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return "", false
	}
	if !callerIn(c, ticketPlayers(t)) {
		utils.ErrorResponseWithError(c, errors.NewForbiddenError("caller is not a player of this ticket"))
		return "", false
	}
	c.Set(ticketContextKey, t)
	return ticketID, true
}

func callerIn(c *gin.Context, playerIDs []string) bool {
	role := auth.Role(c.GetString(middleware.ContextKeyRole))
	if role == auth.RoleAdmin || role == auth.RoleService {
		return true
	}
	caller := middleware.UserID(c)
	for _, id := range playerIDs {
		if id == caller {
			return true
		}
	}
	return false
}

func ticketPlayers(t *dto.TicketDTO) []string {
	ids := make([]string, 0, len(t.Players))
	for _, p := range t.Players {
		ids = append(ids, p.PlayerID)
	}
	return ids
}

func (r EnqueueRequest) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.PlayerID)
	}
	return ids
}
