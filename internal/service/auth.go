package service

import (
	"context"
	"time"

	"nogoon-backend/internal/models"
	"nogoon-backend/internal/privy"
	"nogoon-backend/internal/repository"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// TokenVerifier validates a bearer token and returns its claims.
// Satisfied by *privy.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (privy.Claims, error)
}

// AuthService turns a bearer token into a persisted user: verify the
// token, resolve the identity from its claims, upsert the user row.
type AuthService interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type authService struct {
	verifier TokenVerifier
	users    repository.UserRepository
	logger   *zap.Logger
}

func NewAuthService(verifier TokenVerifier, users repository.UserRepository, logger *zap.Logger) AuthService {
	return &authService{verifier: verifier, users: users, logger: logger}
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	identity, err := privy.ExtractIdentity(claims)
	if err != nil {
		return nil, err
	}

	// Transient storage failures get a couple of backed-off retries
	// before the login fails. Token errors above are never retried.
	backoff := retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
	var user *models.User
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		u, upsertErr := s.users.Upsert(ctx, identity)
		if upsertErr != nil {
			s.logger.Warn("user upsert failed, may retry",
				zap.String("user_id", identity.UserID), zap.Error(upsertErr))
			return retry.RetryableError(upsertErr)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated", zap.String("user_id", user.UserID))
	return user, nil
}
