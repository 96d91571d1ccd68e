package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/merchanthub/omsapi/pkg/errors"
)

var userCols = []string{"id", "email", "name", "api_key_hash", "is_active", "created_at", "updated_at"}

func TestUserGetByAPIKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db, zap.NewNop())
	now := time.Now()

	otherHash, err := bcrypt.GenerateFromPassword([]byte("someone-elses-key"), bcrypt.MinCost)
	require.NoError(t, err)
	matchHash, err := bcrypt.GenerateFromPassword([]byte("the-right-key"), bcrypt.MinCost)
	require.NoError(t, err)

	matchID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uuid.New(), "a@example.com", "A", string(otherHash), true, now, now).
			AddRow(matchID, "b@example.com", "B", string(matchHash), true, now, now))

	user, err := repo.GetByAPIKey(context.Background(), "the-right-key")
	require.NoError(t, err)
	assert.Equal(t, matchID, user.ID)
	assert.Equal(t, "b@example.com", user.Email)
}

func TestUserGetByAPIKeyRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db, zap.NewNop())
	now := time.Now()

	hash, err := bcrypt.GenerateFromPassword([]byte("stored-key"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uuid.New(), "a@example.com", "A", string(hash), true, now, now))

	_, err = repo.GetByAPIKey(context.Background(), "wrong-key")
	var unauthorized *errors.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)
}
