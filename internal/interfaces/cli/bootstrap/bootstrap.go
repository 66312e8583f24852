// Package bootstrap loads configuration, logging and the database for the
// CLI commands.
package bootstrap

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/config"
	"github.com/chessforge/gamecore/internal/infrastructure/database"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// Env is the process environment every command starts from.
type Env struct {
	Name   string
	Config *config.Config
	Logger logger.Interface
}

// Load reads the configuration for env, initializes the logger and opens
// the database. The ENV variable overrides env.
func Load(env string) (*Env, error) {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = GinMode(env)

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode == gin.DebugMode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Env{Name: env, Config: cfg, Logger: logger.NewLogger()}, nil
}

// Close releases the database connection.
func (e *Env) Close() {
	if err := database.Close(); err != nil {
		e.Logger.Errorw("failed to close database", "error", err)
	}
}

func GinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return gin.ReleaseMode
	case "test", "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
