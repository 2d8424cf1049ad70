package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
)

var userColumns = []string{"id", "username", "email", "password_hash", "roles", "revoked_before", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*UserRepositoryAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepositoryAdapter(db), mock
}

func TestFindByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	revoked := created.Add(time.Hour)

	mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("id-1", "user", "user@example.com", "$2a$10$hash", "{USER}", revoked, created, created))

	identity, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", identity.ID)
	assert.Equal(t, []string{"USER"}, identity.Roles.Names())
	require.NotNil(t, identity.RevokedBefore)
	assert.True(t, identity.RevokedBefore.Equal(revoked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, outbound.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameNullRevocation(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("id-2", "admin", "admin@example.com", "$2a$10$hash", "{ADMIN,USER}", nil, created, created))

	identity, err := repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Nil(t, identity.RevokedBefore)
	assert.True(t, identity.Roles.Has(entity.RoleAdmin))
	assert.True(t, identity.Roles.Has(entity.RoleUser))
}

func TestSave(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 987654321, time.UTC)
	identity := entity.NewIdentity("id-1", "user", "user@example.com", "$2a$10$hash",
		entity.NewRoleSet(entity.RoleUser, entity.RoleAdmin), now).WithSessionsRevokedAt(now)

	t.Run("upsert keeps the later revocation instant", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`(?s)ON CONFLICT \(id\) DO UPDATE SET.*GREATEST\(users\.revoked_before, EXCLUDED\.revoked_before\)`).
			WithArgs("id-1", "user", "user@example.com", "$2a$10$hash",
				sqlmock.AnyArg(), revokedArg{want: now.Truncate(time.Millisecond)}, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), identity))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "users_email_key"})

		err := repo.Save(context.Background(), identity)
		assert.ErrorIs(t, err, outbound.ErrUserAlreadyExists)
	})

	t.Run("driver failure", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

		err := repo.Save(context.Background(), identity)
		require.Error(t, err)
		assert.NotErrorIs(t, err, outbound.ErrUserAlreadyExists)
	})
}

func TestList(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY created_at, username`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("id-1", "admin", "admin@example.com", "h", "{ADMIN,USER}", nil, created, created).
			AddRow("id-2", "user", "user@example.com", "h", "{USER}", nil, created, created))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "user", users[1].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// revokedArg matches a sql.NullTime argument holding want.
type revokedArg struct {
	want time.Time
}

func (a revokedArg) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && t.Equal(a.want)
}

func TestRevokeBefore(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 987654321, time.UTC)
	want := at.Truncate(time.Millisecond)

	t.Run("updates only the revocation instant", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`(?s)UPDATE users\s+SET revoked_before = GREATEST\(revoked_before, \$2\).*WHERE id = \$1`).
			WithArgs("id-1", revokedArg{want: want}, revokedArg{want: want}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RevokeBefore(context.Background(), "id-1", at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE users`).
			WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.RevokeBefore(context.Background(), "missing", at)
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
	})

	t.Run("driver failure", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE users`).WillReturnError(errors.New("connection reset"))

		err := repo.RevokeBefore(context.Background(), "id-1", at)
		require.Error(t, err)
		assert.NotErrorIs(t, err, outbound.ErrUserNotFound)
	})
}
