package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
	"github.com/chessforge/gamecore/internal/interfaces/http/routes"
	"github.com/chessforge/gamecore/internal/shared/utils"
)

const healthCheckTimeout = 2 * time.Second

// SetupRoutes configures all HTTP routes.
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.Logger(c.log))
	c.engine.Use(middleware.Metrics(c.metrics))
	c.engine.Use(c.ipRateLimiter.Limit())

	c.engine.GET("/health", c.health)
	c.engine.GET("/metrics", gin.WrapH(c.metrics.Handler()))
	c.engine.GET("/v1/breakers",
		c.authMiddleware.RequireAuth(),
		c.authMiddleware.RequireRole(auth.RoleAdmin),
		c.breakerStatus,
	)

	routes.SetupTicketRoutes(c.engine, &routes.TicketRouteConfig{
		TicketHandler:  c.hdlrs.ticket,
		AuthMiddleware: c.authMiddleware,
	})

	routes.SetupChallengeRoutes(c.engine, &routes.ChallengeRouteConfig{
		ChallengeHandler: c.hdlrs.challenge,
		AuthMiddleware:   c.authMiddleware,
	})

	routes.SetupGameRoutes(c.engine, &routes.GameRouteConfig{
		GameHandler:     c.hdlrs.game,
		WSHandler:       c.hdlrs.ws,
		AuthMiddleware:  c.authMiddleware,
		MoveRateLimiter: c.moveRateLimiter,
	})

	routes.SetupRatingRoutes(c.engine, &routes.RatingRouteConfig{
		RatingHandler:  c.hdlrs.rating,
		AuthMiddleware: c.authMiddleware,
	})

	routes.SetupBotRoutes(c.engine, &routes.BotRouteConfig{
		BotHandler:     c.hdlrs.bot,
		AuthMiddleware: c.authMiddleware,
	})
}

// health reports 503 when the database or Redis does not answer.
func (c *Container) health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "ok", "instance_id": c.instanceID}
	healthy := true

	if sqlDB, err := c.db.DB(); err != nil || sqlDB.PingContext(checkCtx) != nil {
		status["database"] = "unreachable"
		healthy = false
	}
	if err := c.redis.Ping(checkCtx).Err(); err != nil {
		status["redis"] = "unreachable"
		healthy = false
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, utils.APIResponse{Success: false, Data: status, Message: "unhealthy"})
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "healthy", status)
}

func (c *Container) breakerStatus(ctx *gin.Context) {
	utils.SuccessResponse(ctx, http.StatusOK, "", gin.H{"breakers": c.breakers.Snapshots()})
}
