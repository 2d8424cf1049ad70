package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/valueobject"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

type AuthUseCase struct {
	userRepository  outbound.UserRepository
	tokenService    outbound.TokenService
	passwordService outbound.PasswordService
	logger          logger.Logger
	now             func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthUseCase(
	userRepo outbound.UserRepository,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	log logger.Logger,
	now func() time.Time,
) *AuthUseCase {
	if now == nil {
		now = time.Now
	}
	return &AuthUseCase{
		userRepository:  userRepo,
		tokenService:    tokenService,
		passwordService: passwordService,
		logger:          log,
		now:             now,
	}
}

var _ inbound.AuthUseCase = (*AuthUseCase)(nil)

func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.AuthResponse, error) {
	credentials, err := valueobject.NewCredentials(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := uc.userRepository.FindByEmail(ctx, credentials.Email())
	if err != nil {
		if !errors.Is(err, outbound.ErrUserNotFound) {
			uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
				"email": credentials.Email(),
			})
			return nil, domainerror.ErrInternalServerError("failed to find user", err)
		}
		// Burn a bcrypt comparison so an unknown email costs the same as a
		// wrong password.
		_ = uc.passwordService.ComparePassword(uc.dummyPasswordHash(), credentials.Password())
		logger.LogAuthEvent(ctx, uc.logger, "login_failed", "", "", false, map[string]interface{}{
			"email":  credentials.Email(),
			"reason": "unknown_email",
		})
		return nil, domainerror.ErrInvalidCredentials
	}

	start := time.Now()
	err = uc.passwordService.ComparePassword(user.PasswordHash, credentials.Password())
	logger.LogPerformance(ctx, uc.logger, "password_verification", time.Since(start), map[string]interface{}{
		"user_id": user.ID,
	})
	if err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "login_failed", user.ID, "", false, map[string]interface{}{
			"email":  credentials.Email(),
			"reason": "invalid_password",
		})
		return nil, domainerror.ErrInvalidCredentials
	}

	resp, err := IssueSession(uc.tokenService, user)
	if err != nil {
		uc.logger.Error(ctx, "Failed to issue tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, domainerror.ErrInternalServerError("failed to issue tokens", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_success", user.ID, "", true, nil)
	return resp, nil
}

// Refresh rotates the pair. The presented refresh token stays valid until
// it expires or the identity logs out; no per-token state is kept.
func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.AuthResponse, error) {
	if req.RefreshToken == "" {
		return nil, domainerror.ErrUnauthenticated
	}

	principal, err := resolveToken(ctx, uc.userRepository, uc.tokenService, req.RefreshToken, valueobject.RefreshToken)
	if err != nil {
		if domainerror.Code(err) == domainerror.ErrCodeInternalServerError {
			uc.logger.Error(ctx, "Failed to resolve refresh token", err, nil)
			return nil, err
		}
		logger.LogAuthEvent(ctx, uc.logger, "refresh_failed", "", "", false, map[string]interface{}{
			"reason": AuditReason(err),
		})
		return nil, err
	}

	resp, err := IssueSession(uc.tokenService, principal.Identity)
	if err != nil {
		return nil, domainerror.ErrInternalServerError("failed to issue tokens", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "refresh_success", principal.ID(), "", true, nil)
	return resp, nil
}

// Logout revokes every token of the principal issued before now.
func (uc *AuthUseCase) Logout(ctx context.Context, principal *entity.Principal) error {
	if principal == nil || principal.Identity == nil {
		return domainerror.ErrUnauthenticated
	}

	if err := RevokeSessions(ctx, uc.userRepository, principal.ID(), uc.now()); err != nil {
		uc.logger.Error(ctx, "Failed to revoke sessions", err, map[string]interface{}{
			"user_id": principal.ID(),
		})
		return err
	}

	logger.LogAuthEvent(ctx, uc.logger, "logout", principal.ID(), "", true, nil)
	return nil
}

func (uc *AuthUseCase) Me(ctx context.Context, principal *entity.Principal) (*inbound.MeResponse, error) {
	if principal == nil || principal.Identity == nil {
		return nil, domainerror.ErrUnauthenticated
	}
	id := principal.Identity
	return &inbound.MeResponse{
		ID:        id.ID,
		Username:  id.Username,
		Email:     id.Email,
		Roles:     id.Roles.Names(),
		CreatedAt: id.CreatedAt,
	}, nil
}

// RevokeSessions moves the identity's revocation instant forward to at.
// Only that field is written, so a concurrent profile or password update
// is never reverted.
func RevokeSessions(ctx context.Context, users outbound.UserRepository, identityID string, at time.Time) error {
	if err := users.RevokeBefore(ctx, identityID, at); err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return domainerror.ErrIdentityNotFoundFor(identityID)
		}
		return domainerror.ErrInternalServerError("failed to revoke sessions", err)
	}
	return nil
}

func (uc *AuthUseCase) dummyPasswordHash() string {
	uc.dummyOnce.Do(func() {
		h, err := uc.passwordService.HashPassword(fmt.Sprintf("dummy-%d", uc.now().UnixNano()))
		if err == nil {
			uc.dummyHash = h
		}
	})
	return uc.dummyHash
}

// AuditReason is the log-only reason for a rejected token: the token
// service's own reason when it carries one, otherwise the error kind.
func AuditReason(err error) string {
	var reasoned interface{ AuditReason() string }
	if errors.As(err, &reasoned) {
		return reasoned.AuditReason()
	}
	switch domainerror.Code(err) {
	case domainerror.ErrCodeTokenRevoked:
		return "revoked"
	case domainerror.ErrCodeIdentityNotFound:
		return "unknown_subject"
	case domainerror.ErrCodeTokenInvalid:
		return "invalid"
	default:
		return "error"
	}
}
