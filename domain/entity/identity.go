package entity

import (
	"time"
)

// RevocationPrecision is the granularity at which revocation instants and
// token timestamps are compared.
const RevocationPrecision = time.Millisecond

// Identity is the stored account record. Values are treated as immutable;
// the With* methods return modified copies.
type Identity struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Roles         RoleSet    `json:"-"`
	RevokedBefore *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewIdentity(id, username, email, passwordHash string, roles RoleSet, now time.Time) *Identity {
	return &Identity{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        roles.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (i *Identity) clone() *Identity {
	cp := *i
	cp.Roles = i.Roles.Clone()
	if i.RevokedBefore != nil {
		t := *i.RevokedBefore
		cp.RevokedBefore = &t
	}
	return &cp
}

// WithSessionsRevokedAt returns a copy whose revocation instant is at.
// The instant only moves forward.
func (i *Identity) WithSessionsRevokedAt(at time.Time) *Identity {
	cp := i.clone()
	cp.RevokedBefore = MergeRevokedBefore(i.RevokedBefore, &at)
	cp.UpdatedAt = at
	return cp
}

func (i *Identity) WithPasswordHash(hash string, now time.Time) *Identity {
	cp := i.clone()
	cp.PasswordHash = hash
	cp.UpdatedAt = now
	return cp
}

func (i *Identity) WithProfile(username, email string, now time.Time) *Identity {
	cp := i.clone()
	if username != "" {
		cp.Username = username
	}
	if email != "" {
		cp.Email = email
	}
	cp.UpdatedAt = now
	return cp
}

// MergeRevokedBefore returns the later of two revocation instants, truncated
// to RevocationPrecision. Stores use it so a stale write never rolls back a
// logout.
func MergeRevokedBefore(current, next *time.Time) *time.Time {
	var out *time.Time
	for _, t := range []*time.Time{current, next} {
		if t == nil {
			continue
		}
		v := t.UTC().Truncate(RevocationPrecision)
		if out == nil || v.After(*out) {
			out = &v
		}
	}
	return out
}
