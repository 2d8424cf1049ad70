package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
)

const uniqueViolation = "23505"

const selectUser = `
		SELECT id, username, email, password_hash, roles, revoked_before, created_at, updated_at
		FROM users
	`

type UserRepositoryAdapter struct {
	db *sql.DB
}

func NewUserRepositoryAdapter(db *sql.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{
		db: db,
	}
}

var _ outbound.UserRepository = (*UserRepositoryAdapter)(nil)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentity(row rowScanner) (*entity.Identity, error) {
	var (
		identity      entity.Identity
		roles         []string
		revokedBefore sql.NullTime
	)
	err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		pq.Array(&roles),
		&revokedBefore,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	identity.Roles = entity.RoleSetFromStrings(roles)
	if revokedBefore.Valid {
		identity.RevokedBefore = entity.MergeRevokedBefore(nil, &revokedBefore.Time)
	}
	return &identity, nil
}

func (r *UserRepositoryAdapter) findOne(ctx context.Context, where string, arg string) (*entity.Identity, error) {
	identity, err := scanIdentity(r.db.QueryRowContext(ctx, selectUser+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, err
	}
	return identity, nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id string) (*entity.Identity, error) {
	if id == "" {
		return nil, outbound.ErrUserNotFound
	}
	identity, err := r.findOne(ctx, "WHERE id = $1", id)
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return identity, err
}

func (r *UserRepositoryAdapter) FindByUsername(ctx context.Context, username string) (*entity.Identity, error) {
	identity, err := r.findOne(ctx, "WHERE username = $1", username)
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return identity, err
}

func (r *UserRepositoryAdapter) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	identity, err := r.findOne(ctx, "WHERE email = $1", email)
	if err != nil && !errors.Is(err, outbound.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return identity, err
}

// Save upserts by id. revoked_before only moves forward; GREATEST ignores
// NULL so a stale write without a revocation instant keeps the stored one.
func (r *UserRepositoryAdapter) Save(ctx context.Context, identity *entity.Identity) error {
	if identity == nil {
		return fmt.Errorf("identity cannot be nil")
	}
	if identity.ID == "" || identity.Email == "" || identity.PasswordHash == "" {
		return fmt.Errorf("identity ID, email, and password hash are required")
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, roles, revoked_before, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			roles = EXCLUDED.roles,
			revoked_before = GREATEST(users.revoked_before, EXCLUDED.revoked_before),
			updated_at = EXCLUDED.updated_at
	`

	var revokedBefore sql.NullTime
	if rb := entity.MergeRevokedBefore(nil, identity.RevokedBefore); rb != nil {
		revokedBefore = sql.NullTime{Time: *rb, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		identity.ID,
		identity.Username,
		identity.Email,
		identity.PasswordHash,
		pq.Array(identity.Roles.Names()),
		revokedBefore,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *UserRepositoryAdapter) RevokeBefore(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return outbound.ErrUserNotFound
	}

	query := `
		UPDATE users
		SET revoked_before = GREATEST(revoked_before, $2), updated_at = GREATEST(updated_at, $3)
		WHERE id = $1
	`

	rb := entity.MergeRevokedBefore(nil, &at)
	result, err := r.db.ExecContext(ctx, query, id, *rb, *rb)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if affected == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryAdapter) List(ctx context.Context) ([]*entity.Identity, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+"ORDER BY created_at, username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
