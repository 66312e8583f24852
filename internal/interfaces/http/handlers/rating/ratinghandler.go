// Package rating serves the rating, leaderboard and backfill API.
package rating

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/application/rating/usecases"
	"github.com/chessforge/gamecore/internal/interfaces/http/validation"
	"github.com/chessforge/gamecore/internal/shared/biztime"
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

// IngestGameResult handles POST /v1/game-results. A result that was already
// applied answers with the stored response, status included.
func (h *Handler) IngestGameResult(c *gin.Context) {
	var req GameResultRequest
	if err := validation.BindJSON(c, &req); err != nil {
		h.logger.Warnw("invalid request body for game result", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	rated := true
	if req.Rated != nil {
		rated = *req.Rated
	}
	endedAt := biztime.NowUTC()
	if req.EndedAt != nil {
		endedAt = req.EndedAt.UTC()
	}

	result, err := h.uc.Ingest.Execute(c.Request.Context(), usecases.IngestGameResultCommand{
		GameID:      req.GameID,
		PoolCode:    req.PoolID,
		WhiteUserID: req.WhiteUserID,
		BlackUserID: req.BlackUserID,
		Result:      req.Result,
		Rated:       rated,
		EndedAt:     endedAt,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if result.Replayed {
		c.Header("X-Idempotent-Replay", "true")
	}
	utils.SuccessResponse(c, http.StatusOK, "game result applied", result)
}

// ListRatings handles GET /v1/ratings/:user_id
func (h *Handler) ListRatings(c *gin.Context) {
	views, err := h.uc.Ratings.ForUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", views)
}

// GetPoolRating handles GET /v1/ratings/:user_id/pools/:pool_id
func (h *Handler) GetPoolRating(c *gin.Context) {
	view, err := h.uc.Ratings.ForPool(c.Request.Context(), c.Param("user_id"), c.Param("pool_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// BulkRatings handles POST /v1/ratings/bulk
func (h *Handler) BulkRatings(c *gin.Context) {
	var req BulkRatingsRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	views, err := h.uc.Ratings.Bulk(c.Request.Context(), usecases.BulkRatingsCommand{
		UserIDs:  req.UserIDs,
		PoolCode: req.PoolID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", views)
}

// ListPools handles GET /v1/pools
func (h *Handler) ListPools(c *gin.Context) {
	pools, err := h.uc.Ratings.Pools(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", toPoolDTOs(pools))
}

// Leaderboard handles GET /v1/leaderboards/:pool_id?limit=&offset=
func (h *Handler) Leaderboard(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.uc.Leaderboard.Execute(c.Request.Context(), usecases.GetLeaderboardQuery{
		PoolCode: c.Param("pool_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// LeaderboardEntry handles GET /v1/leaderboards/:pool_id/user/:user_id
func (h *Handler) LeaderboardEntry(c *gin.Context) {
	row, err := h.uc.Leaderboard.Entry(c.Request.Context(), c.Param("pool_id"), c.Param("user_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", row)
}

// StartBackfill handles POST /v1/admin/backfill
func (h *Handler) StartBackfill(c *gin.Context) {
	var req StartBackfillRequest
	if err := validation.BindJSON(c, &req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	job, err := h.uc.Backfill.Start(c.Request.Context(), usecases.StartBackfillCommand{
		WindowStart: req.WindowStart.UTC(),
		WindowEnd:   req.WindowEnd.UTC(),
		PoolFilter:  req.PoolFilter,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "backfill started", toBackfillJobDTO(job))
}

// BackfillStatus handles GET /v1/admin/backfill/:job_id
func (h *Handler) BackfillStatus(c *gin.Context) {
	job, err := h.uc.Backfill.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", toBackfillJobDTO(job))
}

// CancelBackfill handles POST /v1/admin/backfill/:job_id/cancel
func (h *Handler) CancelBackfill(c *gin.Context) {
	job, err := h.uc.Backfill.Cancel(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "backfill cancelled", toBackfillJobDTO(job))
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewValidationError(name + " must be a non-negative integer")
	}
	return n, nil
}
