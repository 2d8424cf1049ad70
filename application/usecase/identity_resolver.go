package usecase

import (
	"context"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	"github.com/fixora/gatekeeper/domain/valueobject"
)

// IdentityResolver turns an access token into a principal. It never
// mutates stored state.
type IdentityResolver struct {
	users  outbound.UserRepository
	tokens outbound.TokenService
}

func NewIdentityResolver(users outbound.UserRepository, tokens outbound.TokenService) inbound.IdentityResolver {
	return &IdentityResolver{users: users, tokens: tokens}
}

// Resolve returns the principal for token, or one of TokenInvalid,
// IdentityNotFound, TokenRevoked. Callers on the request path collapse
// all of them to "anonymous".
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*entity.Principal, error) {
	return resolveToken(ctx, r.users, r.tokens, token, valueobject.AccessToken)
}

func (r *IdentityResolver) Subject(token string) string {
	subject, err := r.tokens.ExtractSubject(token)
	if err != nil {
		return ""
	}
	return subject
}
