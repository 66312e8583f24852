package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

// quietPaths are polled by health checks and only logged when they fail.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// Logger writes one line per request. Resource ids from the route are logged
// under a name derived from the route prefix, e.g. game_id for /games/:id.
func Logger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if quietPaths[route] && status < 500 {
			return
		}

		args := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			args = append(args, resourceKey(route), id)
		}
		if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
			args = append(args, "request_id", requestID)
		}
		if userID := UserID(c); userID != "" {
			args = append(args, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Errorw("request failed", args...)
		case status >= 400:
			log.Warnw("request rejected", args...)
		default:
			log.Debugw("request served", args...)
		}
	}
}

func resourceKey(route string) string {
	switch {
	case strings.HasPrefix(route, "/games"), strings.HasPrefix(route, "/ws/games"):
		return "game_id"
	case strings.HasPrefix(route, "/tickets"):
		return "ticket_id"
	default:
		return "resource_id"
	}
}
