package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
)

func openTestRepo(t *testing.T) (*UserRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "gatekeeper.db")
	repo, err := Open(path)
	require.NoError(t, err)
	return repo, path
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, path := openTestRepo(t)

	user := entity.NewIdentity("id-1", "user", "user@example.com", "hash", entity.NewRoleSet(entity.RoleUser), now)
	require.NoError(t, repo.Save(ctx, user))

	got, err := repo.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, []string{"USER"}, got.Roles.Names())

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, outbound.ErrUserNotFound)

	dup := entity.NewIdentity("id-2", "other", "user@example.com", "hash", entity.NewRoleSet(), now)
	assert.ErrorIs(t, repo.Save(ctx, dup), outbound.ErrUserAlreadyExists)

	require.NoError(t, repo.Save(ctx, got.WithSessionsRevokedAt(now.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, got.WithProfile("", "new@example.com", now.Add(2*time.Hour))))

	t.Run("survives reopen", func(t *testing.T) {
		require.NoError(t, repo.Close())
		reopened, err := Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { reopened.Close() })

		got, err := reopened.FindByID(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", got.Email)
		require.NotNil(t, got.RevokedBefore)
		assert.True(t, got.RevokedBefore.Equal(now.Add(time.Hour)), "stale write must not clear the revocation instant")

		_, err = reopened.FindByEmail(ctx, "user@example.com")
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)

		all, err := reopened.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestRevokeBefore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, _ := openTestRepo(t)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.Save(ctx, entity.NewIdentity("id-1", "user", "user@example.com", "old-hash", entity.NewRoleSet(entity.RoleUser), now)))
	loaded, err := repo.FindByID(ctx, "id-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loaded.WithPasswordHash("new-hash", now.Add(time.Second))))

	require.NoError(t, repo.RevokeBefore(ctx, "id-1", now.Add(time.Minute)))
	require.NoError(t, repo.RevokeBefore(ctx, "id-1", now))

	got, err := repo.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	require.NotNil(t, got.RevokedBefore)
	assert.True(t, got.RevokedBefore.Equal(now.Add(time.Minute)))

	assert.ErrorIs(t, repo.RevokeBefore(ctx, "missing", now), outbound.ErrUserNotFound)
}
