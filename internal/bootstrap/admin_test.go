package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"evidence-hub/internal/config"
	"evidence-hub/internal/db"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Init("sqlite3", filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestEnsureAdminCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	database := newDB(t)
	cfg := &config.Bootstrap{
		Username:  "jona",
		Email:     "jona@example.com",
		Password:  "first-Password-1",
		FirstName: "Jonalyn",
		LastName:  "Rosell",
	}

	res, err := EnsureAdmin(ctx, database, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Created, res)

	user, err := database.GetUserByUsername(ctx, "jona")
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsStaff)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Jonalyn Rosell", user.FullName())

	cfg.Password = "second-Password-2"
	res, err = EnsureAdmin(ctx, database, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Updated, res)

	_, err = security.Authenticate(ctx, database, "jona", "second-Password-2")
	assert.NoError(t, err)
	_, err = security.Authenticate(ctx, database, "jona", "first-Password-1")
	assert.ErrorIs(t, err, security.ErrInvalidCredentials)

	n, err := database.Count(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnsureAdminPromotesExistingAccount(t *testing.T) {
	ctx := context.Background()
	database := newDB(t)
	require.NoError(t, database.CreateUser(ctx, &models.User{
		Username: "jona", PasswordHash: "x", Role: models.RoleUser, IsActive: false,
	}))

	res, err := EnsureAdmin(ctx, database, &config.Bootstrap{Username: "jona", Password: "pw-pw-pw-pw"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Updated, res)

	user, err := database.GetUserByUsername(ctx, "jona")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.True(t, user.IsActive)
}

func TestEnsureAdminRequiresConfig(t *testing.T) {
	database := newDB(t)
	_, err := EnsureAdmin(context.Background(), database, nil, zap.NewNop())
	assert.Error(t, err)
	_, err = EnsureAdmin(context.Background(), database, &config.Bootstrap{Username: "x"}, zap.NewNop())
	assert.Error(t, err)
}
