package routes

import (
	"github.com/gin-gonic/gin"

	challengehandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/challenge"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
)

type ChallengeRouteConfig struct {
	ChallengeHandler *challengehandlers.Handler
	AuthMiddleware   *middleware.AuthMiddleware
}

func SetupChallengeRoutes(engine *gin.Engine, config *ChallengeRouteConfig) {
	challenges := engine.Group("/v1/challenges")
	challenges.Use(config.AuthMiddleware.RequireAuth())
	{
		challenges.POST("", config.ChallengeHandler.Create)
		// Must come before /:challenge_id.
		challenges.GET("/incoming", config.ChallengeHandler.Incoming)

		challenges.GET("/:challenge_id", config.ChallengeHandler.Get)
		challenges.POST("/:challenge_id/accept", config.ChallengeHandler.Accept)
		challenges.POST("/:challenge_id/decline", config.ChallengeHandler.Decline)
		challenges.POST("/:challenge_id/cancel", config.ChallengeHandler.Cancel)
	}
}
