package middleware

import (
	"errors"
	"net/http"
	"strings"

	"nogoon-backend/internal/privy"
	"nogoon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserContextKey is the gin context key under which the authenticated
// user is stored.
const UserContextKey = "currentUser"

// AuthMiddleware creates a Gin middleware that authenticates the bearer
// token against Privy and resolves (or creates) the local user. The 401
// bodies never say which verification check failed.
func AuthMiddleware(auth service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, privy.ErrTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			case errors.Is(err, privy.ErrTokenInvalid), errors.Is(err, privy.ErrMissingSubject):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			case errors.Is(err, privy.ErrKeyResolution):
				logger.Error("verification key unavailable", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication service unavailable"})
			default:
				logger.Error("authentication failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
			}
			c.Abort()
			return
		}

		c.Set(UserContextKey, user)
		c.Next()
	}
}
