package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	gamehandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/game"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
)

type GameRouteConfig struct {
	GameHandler     *gamehandlers.Handler
	WSHandler       *gamehandlers.WSHandler
	AuthMiddleware  *middleware.AuthMiddleware
	MoveRateLimiter *middleware.RateLimiter
}

func SetupGameRoutes(engine *gin.Engine, config *GameRouteConfig) {
	games := engine.Group("/games")
	games.Use(config.AuthMiddleware.RequireAuth())
	{
		games.POST("", config.GameHandler.Create)
		// Must come before /:id.
		games.POST("/bot", config.GameHandler.CreateBotGame)

		games.GET("/:id", config.GameHandler.Get)
		games.GET("/:id/legal-moves", config.GameHandler.LegalMoves)
		games.POST("/:id/join", config.GameHandler.Join)
		games.POST("/:id/moves", config.MoveRateLimiter.Limit(), config.GameHandler.Move)
		games.POST("/:id/resign", config.GameHandler.Resign)
		games.POST("/:id/takeback", config.GameHandler.Takeback)
		games.POST("/:id/position", config.GameHandler.SetPosition)
		games.PATCH("/:id/rated", config.GameHandler.UpdateRated)
		games.POST("/:id/draw/offer", config.GameHandler.OfferDraw)
		games.POST("/:id/draw/accept", config.GameHandler.AcceptDraw)
	}

	internal := engine.Group("/internal")
	internal.Use(
		config.AuthMiddleware.RequireAuth(),
		config.AuthMiddleware.RequireRole(auth.RoleService, auth.RoleAdmin),
	)
	{
		internal.POST("/games", config.GameHandler.CreateInternal)
	}

	// The websocket authenticates from ?token= after the upgrade so that a
	// rejected client gets a close frame instead of an HTTP error.
	ws := engine.Group("/ws")
	{
		ws.GET("/games/:id", config.WSHandler.GameWS)
	}
}
