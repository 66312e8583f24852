package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	bothandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/bot"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
)

type BotRouteConfig struct {
	BotHandler     *bothandlers.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupBotRoutes mounts the orchestrator API. Only services and admins call it.
func SetupBotRoutes(engine *gin.Engine, config *BotRouteConfig) {
	bots := engine.Group("/v1/bots")
	bots.Use(
		config.AuthMiddleware.RequireAuth(),
		config.AuthMiddleware.RequireRole(auth.RoleService, auth.RoleAdmin),
	)
	{
		bots.GET("/moves/recent", config.BotHandler.RecentMoves)
		bots.POST("/:bot_id/move", config.BotHandler.ChooseMove)
	}
}
