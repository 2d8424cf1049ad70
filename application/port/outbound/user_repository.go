package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/fixora/gatekeeper/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository is the durable identity store.
//
// Save is an upsert keyed by ID. Implementations must merge RevokedBefore
// with entity.MergeRevokedBefore so the stored instant never moves
// backwards, and return ErrUserAlreadyExists when username or email
// collide with another identity.
//
// RevokeBefore touches only the revocation instant, merged the same way,
// and returns ErrUserNotFound for an unknown id.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Identity, error)
	FindByUsername(ctx context.Context, username string) (*entity.Identity, error)
	FindByEmail(ctx context.Context, email string) (*entity.Identity, error)
	Save(ctx context.Context, identity *entity.Identity) error
	RevokeBefore(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]*entity.Identity, error)
}
