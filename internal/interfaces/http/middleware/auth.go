package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chessforge/gamecore/internal/infrastructure/auth"
	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
	"github.com/chessforge/gamecore/internal/shared/utils"
)

// Context keys set by the auth middleware.
const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "user_role"
)

type tokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier tokenVerifier
	logger   logger.Interface
}

func NewAuthMiddleware(verifier tokenVerifier, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// RequireAuth rejects requests without a valid bearer token. The websocket
// route passes its token as ?token= instead.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("missing authorization token"))
			c.Abort()
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err, "path", c.Request.URL.Path)
			utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, string(claims.Role))
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := auth.Role(c.GetString(ContextKeyRole))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		utils.ErrorResponseWithError(c, errors.NewForbiddenError("insufficient role"))
		c.Abort()
	}
}

// TokenFromRequest reads a bearer token from the Authorization header, then
// from the token query parameter.
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// UserID returns the authenticated user, or "" on unauthenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
