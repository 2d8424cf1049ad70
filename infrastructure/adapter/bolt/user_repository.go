// Package bolt stores identities in an embedded bbolt file. It suits a
// single-instance deployment without PostgreSQL.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
)

const (
	dirPerm     = fs.FileMode(0o700)
	filePerm    = fs.FileMode(0o600)
	openTimeout = 5 * time.Second
)

var (
	usersBucket      = []byte("users")
	emailIndexBucket = []byte("users_by_email")
	nameIndexBucket  = []byte("users_by_username")
)

type userRecord struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"password_hash"`
	Roles         []string   `json:"roles"`
	RevokedBefore *time.Time `json:"revoked_before,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toRecord(i *entity.Identity) userRecord {
	return userRecord{
		ID:            i.ID,
		Username:      i.Username,
		Email:         i.Email,
		PasswordHash:  i.PasswordHash,
		Roles:         i.Roles.Names(),
		RevokedBefore: i.RevokedBefore,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func (r userRecord) identity() *entity.Identity {
	return &entity.Identity{
		ID:            r.ID,
		Username:      r.Username,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		Roles:         entity.RoleSetFromStrings(r.Roles),
		RevokedBefore: r.RevokedBefore,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type UserRepository struct {
	db *bbolt.DB
}

var _ outbound.UserRepository = (*UserRepository)(nil)

// Open opens or creates the database at path.
func Open(path string) (*UserRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := bbolt.Open(path, filePerm, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, emailIndexBucket, nameIndexBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	return &UserRepository{db: db}, nil
}

func (r *UserRepository) Close() error {
	return r.db.Close()
}

func getRecord(tx *bbolt.Tx, id []byte) (*userRecord, error) {
	if len(id) == 0 {
		return nil, outbound.ErrUserNotFound
	}
	raw := tx.Bucket(usersBucket).Get(id)
	if raw == nil {
		return nil, outbound.ErrUserNotFound
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	return &rec, nil
}

func (r *UserRepository) find(index []byte, key string) (*entity.Identity, error) {
	var out *entity.Identity
	err := r.db.View(func(tx *bbolt.Tx) error {
		id := []byte(key)
		if index != nil {
			id = tx.Bucket(index).Get([]byte(key))
		}
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		out = rec.identity()
		return nil
	})
	return out, err
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.Identity, error) {
	return r.find(nil, id)
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*entity.Identity, error) {
	return r.find(nameIndexBucket, username)
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	return r.find(emailIndexBucket, email)
}

// Save runs in one write transaction, so the revocation merge and the
// index checks see a consistent view.
func (r *UserRepository) Save(_ context.Context, identity *entity.Identity) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(usersBucket)
		emails := tx.Bucket(emailIndexBucket)
		names := tx.Bucket(nameIndexBucket)
		id := []byte(identity.ID)

		if owner := emails.Get([]byte(identity.Email)); owner != nil && string(owner) != identity.ID {
			return outbound.ErrUserAlreadyExists
		}
		if owner := names.Get([]byte(identity.Username)); owner != nil && string(owner) != identity.ID {
			return outbound.ErrUserAlreadyExists
		}

		rec := toRecord(identity)
		prev, err := getRecord(tx, id)
		switch {
		case err == nil:
			rec.RevokedBefore = entity.MergeRevokedBefore(prev.RevokedBefore, identity.RevokedBefore)
			rec.CreatedAt = prev.CreatedAt
			if err := emails.Delete([]byte(prev.Email)); err != nil {
				return err
			}
			if err := names.Delete([]byte(prev.Username)); err != nil {
				return err
			}
		case errors.Is(err, outbound.ErrUserNotFound):
			rec.RevokedBefore = entity.MergeRevokedBefore(nil, identity.RevokedBefore)
		default:
			return err
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding user: %w", err)
		}
		if err := users.Put(id, raw); err != nil {
			return err
		}
		if err := emails.Put([]byte(rec.Email), id); err != nil {
			return err
		}
		return names.Put([]byte(rec.Username), id)
	})
}

// RevokeBefore rewrites only the revocation instant inside one write
// transaction; indexes are untouched.
func (r *UserRepository) RevokeBefore(_ context.Context, id string, at time.Time) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, []byte(id))
		if err != nil {
			return err
		}
		rec.RevokedBefore = entity.MergeRevokedBefore(rec.RevokedBefore, &at)
		if at.After(rec.UpdatedAt) {
			rec.UpdatedAt = at
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding user: %w", err)
		}
		return tx.Bucket(usersBucket).Put([]byte(id), raw)
	})
}

func (r *UserRepository) List(_ context.Context) ([]*entity.Identity, error) {
	var out []*entity.Identity
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(_, v []byte) error {
			var rec userRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding user: %w", err)
			}
			out = append(out, rec.identity())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
