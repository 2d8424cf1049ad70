package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/policy"
	"github.com/fixora/gatekeeper/domain/valueobject"
)

// resolveToken validates token as kind, loads its subject and applies the
// revocation policy. It returns TokenInvalid, IdentityNotFound or
// TokenRevoked; repository failures are wrapped as internal errors.
func resolveToken(
	ctx context.Context,
	users outbound.UserRepository,
	tokens outbound.TokenService,
	token string,
	kind valueobject.TokenKind,
) (*entity.Principal, error) {
	claims, err := tokens.Validate(token, kind)
	if err != nil {
		return nil, err
	}

	identity, err := users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, domainerror.ErrIdentityNotFoundFor(claims.Subject)
		}
		return nil, domainerror.ErrInternalServerError("failed to load identity", err)
	}

	if (policy.SessionRevocationPolicy{}).IsRevoked(identity, claims.IssuedAt) {
		return nil, domainerror.ErrTokenRevokedFor(identity.ID)
	}

	return &entity.Principal{Identity: identity, TokenIssuedAt: claims.IssuedAt}, nil
}

// IssueSession signs a fresh access and refresh pair for identity.
func IssueSession(tokens outbound.TokenService, identity *entity.Identity) (*inbound.AuthResponse, error) {
	access, err := tokens.IssueAccess(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := tokens.IssueRefresh(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	pair := valueobject.NewTokenPair(access, refresh)

	return &inbound.AuthResponse{
		ID:           identity.ID,
		Username:     identity.Username,
		Email:        identity.Email,
		Roles:        identity.Roles.Names(),
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		AccessTTL:    pair.Access.TTL(),
		RefreshTTL:   pair.Refresh.TTL(),
	}, nil
}
