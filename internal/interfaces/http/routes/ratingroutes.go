package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	ratinghandlers "github.com/chessforge/gamecore/internal/interfaces/http/handlers/rating"
	"github.com/chessforge/gamecore/internal/interfaces/http/middleware"
)

type RatingRouteConfig struct {
	RatingHandler  *ratinghandlers.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRatingRoutes(engine *gin.Engine, config *RatingRouteConfig) {
	v1 := engine.Group("/v1")
	v1.Use(config.AuthMiddleware.RequireAuth())

	v1.POST("/game-results",
		config.AuthMiddleware.RequireRole(auth.RoleService, auth.RoleAdmin),
		config.RatingHandler.IngestGameResult)

	ratings := v1.Group("/ratings")
	{
		ratings.POST("/bulk", config.RatingHandler.BulkRatings)
		ratings.GET("/:user_id", config.RatingHandler.ListRatings)
		ratings.GET("/:user_id/pools/:pool_id", config.RatingHandler.GetPoolRating)
	}

	v1.GET("/pools", config.RatingHandler.ListPools)
	v1.GET("/leaderboards/:pool_id", config.RatingHandler.Leaderboard)
	v1.GET("/leaderboards/:pool_id/user/:user_id", config.RatingHandler.LeaderboardEntry)

	backfill := v1.Group("/admin/backfill")
	backfill.Use(config.AuthMiddleware.RequireRole(auth.RoleAdmin))
	{
		backfill.POST("", config.RatingHandler.StartBackfill)
		backfill.GET("/:job_id", config.RatingHandler.BackfillStatus)
		backfill.POST("/:job_id/cancel", config.RatingHandler.CancelBackfill)
	}
}
