package inbound

import (
	"context"
	"time"

	"github.com/fixora/gatekeeper/domain/entity"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed bool
	// Remaining permits after this call; -1 when the limiter cannot tell.
	Remaining int
	// RetryAfter is how long until one permit is available. Zero when allowed.
	RetryAfter time.Duration
}

// RateLimiter admits or rejects one request for key. Implemented by
// infrastructure/service/ratelimit.
type RateLimiter interface {
	Admit(ctx context.Context, key string) (Decision, error)
}

// IdentityResolver turns a raw bearer token into a principal.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*entity.Principal, error)
	// Subject reads the token's subject without checking expiry, for
	// logging only. Empty when the signature does not verify.
	Subject(token string) string
}
