package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nogoon-backend/internal/models"
	"nogoon-backend/internal/privy"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthService struct {
	user *models.User
	err  error
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func loginRouter(svc *stubAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(svc, zap.NewNop())
	router.POST("/api/v1/auth/login", h.Login)
	return router
}

func postLogin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestLogin_Success(t *testing.T) {
	router := loginRouter(&stubAuthService{
		user: &models.User{UserID: "did:privy:u1", TotalBlocksUsed: 42},
	})

	w := postLogin(router, `{"access_token":"tok"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "did:privy:u1", body["user_id"])
	assert.Equal(t, float64(42), body["total_blocks_used"])
}

func TestLogin_MissingToken(t *testing.T) {
	router := loginRouter(&stubAuthService{})
	w := postLogin(router, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"expired token", privy.ErrTokenExpired, http.StatusUnauthorized, "Token has expired"},
		{"invalid token", privy.ErrTokenInvalid, http.StatusUnauthorized, "Invalid token"},
		{"missing subject looks like invalid token", privy.ErrMissingSubject, http.StatusUnauthorized, "Invalid token"},
		{"key resolution failure", privy.ErrKeyResolution, http.StatusInternalServerError, "Authentication service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := loginRouter(&stubAuthService{err: tt.err})
			w := postLogin(router, `{"access_token":"tok"}`)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			// The body must not reveal which verification check failed.
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}
