package entity

import "time"

// Principal is the identity bound to a single request, together with the
// issue instant of the token that authenticated it.
type Principal struct {
	Identity      *Identity
	TokenIssuedAt time.Time
}

func (p *Principal) ID() string {
	if p == nil || p.Identity == nil {
		return ""
	}
	return p.Identity.ID
}

func (p *Principal) HasRole(role RoleName) bool {
	if p == nil || p.Identity == nil {
		return false
	}
	return p.Identity.Roles.Has(role)
}
