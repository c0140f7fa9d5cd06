package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nogoon-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrUserNotFound is returned by lookups for an unknown user id.
var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	// Upsert inserts the user for identity.UserID or, if the row already
	// exists, bumps last_login and backfills email/wallet. A present
	// stored value is never overwritten with NULL. The unique constraint
	// on user_id makes concurrent calls for the same id converge on a
	// single row.
	Upsert(ctx context.Context, identity models.Identity) (*models.User, error)
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
}

type userRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Upsert(ctx context.Context, identity models.Identity) (*models.User, error) {
	query := `INSERT INTO users (user_id, email, wallet_address, total_blocks_used, last_login)
	          VALUES ($1, $2, $3, 0, now())
	          ON CONFLICT (user_id) DO UPDATE SET
	              last_login = now(),
	              email = COALESCE(EXCLUDED.email, users.email),
	              wallet_address = COALESCE(EXCLUDED.wallet_address, users.wallet_address),
	              updated_at = now()
	          RETURNING id, user_id, email, wallet_address, total_blocks_used, created_at, updated_at, last_login`

	var user models.User
	err := r.db.QueryRowxContext(ctx, query, identity.UserID, identity.Email, identity.WalletAddress).StructScan(&user)
	if err != nil {
		return nil, fmt.Errorf("%w: upserting user %s: %v", ErrPersistence, identity.UserID, err)
	}
	return &user, nil
}

func (r *userRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	query := `SELECT id, user_id, email, wallet_address, total_blocks_used, created_at, updated_at, last_login
	          FROM users WHERE user_id = $1`
	err := r.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: loading user %s: %v", ErrPersistence, userID, err)
	}
	return &user, nil
}
