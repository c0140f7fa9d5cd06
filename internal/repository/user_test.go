package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"nogoon-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserRepoWithMock(t *testing.T) (UserRepository, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "sqlmock")
	return NewUserRepository(db, zap.NewNop()), mock, db
}

func userColumns() []string {
	return []string{"id", "user_id", "email", "wallet_address", "total_blocks_used", "created_at", "updated_at", "last_login"}
}

func TestUserUpsert_NewUser(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(userColumns()).
		AddRow(1, "did:privy:u1", "a@x.com", nil, 0, now, now, now)
	mock.ExpectQuery(`INSERT\s+INTO\s+users\s*\(user_id,\s*email,\s*wallet_address,\s*total_blocks_used,\s*last_login\)`).
		WithArgs("did:privy:u1", "a@x.com", nil).
		WillReturnRows(rows)

	email := "a@x.com"
	user, err := repo.Upsert(context.Background(), models.Identity{UserID: "did:privy:u1", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "did:privy:u1", user.UserID)
	assert.Equal(t, int64(0), user.TotalBlocksUsed)
	require.NotNil(t, user.Email)
	assert.Equal(t, "a@x.com", *user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpsert_ConflictClausePresent(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	// The statement itself must carry the race-free upsert: ON CONFLICT
	// on user_id and COALESCE so NULLs never clobber stored values.
	q := `(?s)ON\s+CONFLICT\s*\(user_id\)\s+DO\s+UPDATE.*COALESCE\(EXCLUDED\.email,\s*users\.email\).*COALESCE\(EXCLUDED\.wallet_address,\s*users\.wallet_address\)`
	rows := sqlmock.NewRows(userColumns()).
		AddRow(1, "did:privy:u1", "kept@x.com", "0xABC", 7, now, now, now)
	mock.ExpectQuery(q).
		WithArgs("did:privy:u1", nil, nil).
		WillReturnRows(rows)

	user, err := repo.Upsert(context.Background(), models.Identity{UserID: "did:privy:u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.TotalBlocksUsed)
	require.NotNil(t, user.Email)
	assert.Equal(t, "kept@x.com", *user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpsert_StorageError(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("did:privy:u1", nil, nil).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Upsert(context.Background(), models.Identity{UserID: "did:privy:u1"})
	require.ErrorIs(t, err, ErrPersistence)
	// The raw driver message stays inside the wrap for logs only.
	assert.Contains(t, err.Error(), "did:privy:u1")
}

func TestGetByUserID_Found(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(userColumns()).
		AddRow(1, "did:privy:u1", nil, nil, 3, now, now, nil)
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,.*FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("did:privy:u1").
		WillReturnRows(rows)

	user, err := repo.GetByUserID(context.Background(), "did:privy:u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.TotalBlocksUsed)
	assert.Nil(t, user.LastLogin)
}

func TestGetByUserID_NotFound(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,.*FROM\s+users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserID(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}
