// Package routes mounts the HTTP handlers on a gin engine.
package routes

import (
	"github.com/gin-gonic/gin"

	tickethandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/ticket"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
)

type TicketRouteConfig struct {
	TicketHandler  *tickethandlers.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupTicketRoutes(engine *gin.Engine, config *TicketRouteConfig) {
	tickets := engine.Group("/tickets")
	tickets.Use(config.AuthMiddleware.RequireAuth())
	{
		tickets.POST("/enqueue", config.TicketHandler.Enqueue)

		tickets.POST("/:id/heartbeat", config.TicketHandler.Heartbeat)
		tickets.POST("/:id/cancel", config.TicketHandler.Cancel)
		tickets.POST("/:id/accept", config.TicketHandler.Accept)
		tickets.POST("/:id/decline", config.TicketHandler.Decline)

		tickets.GET("/:id", config.TicketHandler.Get)
		tickets.PATCH("/:id", config.TicketHandler.Update)
	}
}
