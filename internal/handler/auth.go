package handler

import (
	"errors"
	"net/http"

	"nogoon-backend/internal/privy"
	"nogoon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler interface {
	Login(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, logger: logger}
}

type LoginRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// Login handles POST /api/v1/auth/login (and its /verify alias): verify
// the Privy access token and get-or-create the user.
func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, privy.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
		case errors.Is(err, privy.ErrTokenInvalid), errors.Is(err, privy.ErrMissingSubject):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		case errors.Is(err, privy.ErrKeyResolution):
			h.logger.Error("verification key unavailable", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication service unavailable"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"user_id":           user.UserID,
		"total_blocks_used": user.TotalBlocksUsed,
		"message":           "Authentication successful",
	})
}
