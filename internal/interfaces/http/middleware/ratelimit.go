package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/ratelimit"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
	"github.com/chessforge/gamecore/internal/shared/utils"
)

// KeyFunc picks the limiter key for a request. An empty key skips the check.
type KeyFunc func(c *gin.Context) string

// ByIP limits per client address.
func ByIP(c *gin.Context) string {
	return ratelimit.IPKey(c.ClientIP())
}

// ByMoveSubmitter limits move submissions per authenticated user.
func ByMoveSubmitter(c *gin.Context) string {
	if userID := UserID(c); userID != "" {
		return ratelimit.MoveSubmissionKey(userID)
	}
	return ""
}

// RateLimiter applies a sliding-window limit and reports it through the
// X-RateLimit-* headers. Limiter errors let the request through.
type RateLimiter struct {
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	key     KeyFunc
	logger  logger.Interface
}

func NewRateLimiter(limiter ratelimit.Limiter, limit int, window time.Duration, key KeyFunc, logger logger.Interface) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		key:     key,
		logger:  logger,
	}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.limiter == nil || rl.limit <= 0 {
			c.Next()
			return
		}
		key := rl.key(c)
		if key == "" {
			c.Next()
			return
		}

		decision, err := rl.limiter.Check(c.Request.Context(), key, rl.limit, rl.window)
		if err != nil {
			rl.logger.Warnw("rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retry := max(int(time.Until(decision.ResetAt).Seconds()), 1)
			c.Header("Retry-After", strconv.Itoa(retry))
			utils.ErrorResponseWithError(c, errors.NewRateLimitError("rate limit exceeded, please try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}
