package user_management

import (
	"context"
	"time"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/application/usecase"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/valueobject"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

// ChangePasswordUseCase replaces the caller's password. Every session
// issued before the change is revoked and a fresh pair is returned.
type ChangePasswordUseCase struct {
	userRepo    outbound.UserRepository
	passwordSvc outbound.PasswordService
	tokenSvc    outbound.TokenService
	logger      logger.Logger
	now         func() time.Time
}

func NewChangePasswordUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
	tokenSvc outbound.TokenService,
	log logger.Logger,
	now func() time.Time,
) *ChangePasswordUseCase {
	return &ChangePasswordUseCase{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		logger:      log,
		now:         now,
	}
}

func (uc *ChangePasswordUseCase) Execute(ctx context.Context, principal *entity.Principal, req inbound.ChangePasswordRequest) (*inbound.AuthResponse, error) {
	if principal == nil || principal.Identity == nil {
		return nil, domainerror.ErrUnauthenticated
	}
	if req.CurrentPassword == "" || req.Password == "" {
		return nil, domainerror.ErrInvalidRequest("Current and new password are required")
	}

	user, err := loadIdentity(ctx, uc.userRepo, principal.ID())
	if err != nil {
		return nil, err
	}

	if err := uc.passwordSvc.ComparePassword(user.PasswordHash, req.CurrentPassword); err != nil {
		logger.LogSecurityEvent(ctx, uc.logger, "password_change_rejected", "MEDIUM", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, domainerror.ErrCurrentPassword
	}
	if req.Password != req.PasswordConfirm {
		return nil, domainerror.ErrInvalidPassword("Passwords do not match")
	}
	if err := valueobject.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := uc.passwordSvc.HashPassword(req.Password)
	if err != nil {
		return nil, domainerror.ErrInternalServerError("failed to hash password", err)
	}

	now := uc.now()
	updated := user.WithPasswordHash(hash, now).WithSessionsRevokedAt(now)
	if err := uc.userRepo.Save(ctx, updated); err != nil {
		return nil, domainerror.ErrInternalServerError("failed to update password", err)
	}

	resp, err := usecase.IssueSession(uc.tokenSvc, updated)
	if err != nil {
		return nil, domainerror.ErrInternalServerError("failed to issue tokens", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_changed", user.ID, "", true, nil)
	return resp, nil
}
