// Package memory is a process-local UserRepository for development and
// tests. Contents are lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
)

type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*entity.Identity
	byEmail    map[string]string
	byUsername map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*entity.Identity),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

var _ outbound.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byUsername[username])
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byEmail[email])
}

func (r *UserRepository) get(id string) (*entity.Identity, error) {
	identity, ok := r.byID[id]
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	return copyIdentity(identity), nil
}

func (r *UserRepository) Save(_ context.Context, identity *entity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byEmail[identity.Email]; ok && owner != identity.ID {
		return outbound.ErrUserAlreadyExists
	}
	if owner, ok := r.byUsername[identity.Username]; ok && owner != identity.ID {
		return outbound.ErrUserAlreadyExists
	}

	stored := copyIdentity(identity)
	if prev, ok := r.byID[identity.ID]; ok {
		stored.RevokedBefore = entity.MergeRevokedBefore(prev.RevokedBefore, identity.RevokedBefore)
		stored.CreatedAt = prev.CreatedAt
		delete(r.byEmail, prev.Email)
		delete(r.byUsername, prev.Username)
	} else {
		stored.RevokedBefore = entity.MergeRevokedBefore(nil, identity.RevokedBefore)
	}

	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	r.byUsername[stored.Username] = stored.ID
	return nil
}

func (r *UserRepository) RevokeBefore(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return outbound.ErrUserNotFound
	}
	stored.RevokedBefore = entity.MergeRevokedBefore(stored.RevokedBefore, &at)
	if at.After(stored.UpdatedAt) {
		stored.UpdatedAt = at
	}
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Identity, 0, len(r.byID))
	for _, identity := range r.byID {
		out = append(out, copyIdentity(identity))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func copyIdentity(in *entity.Identity) *entity.Identity {
	cp := *in
	cp.Roles = in.Roles.Clone()
	if in.RevokedBefore != nil {
		t := *in.RevokedBefore
		cp.RevokedBefore = &t
	}
	return &cp
}
