// Package policy holds the pure decision rules of the authentication core:
// revocation-by-timestamp and role-based authorization.
package policy

import (
	"time"

	"github.com/fixora/gatekeeper/domain/entity"
)

// SessionRevocationPolicy decides whether a token issued at a given instant
// has been invalidated by a later logout or forced invalidation.
type SessionRevocationPolicy struct{}

// IsRevoked reports true iff the identity has a revocation instant and the
// token was issued strictly before it. Both instants are compared at
// entity.RevocationPrecision.
func (SessionRevocationPolicy) IsRevoked(identity *entity.Identity, tokenIssuedAt time.Time) bool {
	if identity == nil || identity.RevokedBefore == nil {
		return false
	}
	issued := tokenIssuedAt.UTC().Truncate(entity.RevocationPrecision)
	cutoff := identity.RevokedBefore.UTC().Truncate(entity.RevocationPrecision)
	return issued.Before(cutoff)
}
