package user_management

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/valueobject"
)

// UpdateProfileUseCase changes the caller's own username and email.
type UpdateProfileUseCase struct {
	userRepo outbound.UserRepository
	now      func() time.Time
}

func NewUpdateProfileUseCase(userRepo outbound.UserRepository, now func() time.Time) *UpdateProfileUseCase {
	return &UpdateProfileUseCase{
		userRepo: userRepo,
		now:      now,
	}
}

func (uc *UpdateProfileUseCase) Execute(ctx context.Context, principal *entity.Principal, req inbound.UpdateProfileRequest) (*entity.Identity, error) {
	if principal == nil || principal.Identity == nil {
		return nil, domainerror.ErrUnauthenticated
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if req.Username == "" && req.Email == "" {
		return nil, domainerror.ErrInvalidRequest("Nothing to update")
	}
	if req.Username != "" {
		if err := validateUsername(req.Username); err != nil {
			return nil, err
		}
	}
	if req.Email != "" {
		if err := valueobject.ValidateEmail(req.Email); err != nil {
			return nil, err
		}
	}

	user, err := loadIdentity(ctx, uc.userRepo, principal.ID())
	if err != nil {
		return nil, err
	}

	if err := ensureAvailable(ctx, uc.userRepo, user.ID, req.Username, req.Email); err != nil {
		return nil, err
	}

	updated := user.WithProfile(req.Username, req.Email, uc.now())
	if err := uc.userRepo.Save(ctx, updated); err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			return nil, domainerror.ErrAlreadyExists
		}
		return nil, domainerror.ErrInternalServerError("failed to update user", err)
	}
	return updated, nil
}

func loadIdentity(ctx context.Context, repo outbound.UserRepository, id string) (*entity.Identity, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, domainerror.ErrIdentityNotFoundFor(id)
		}
		return nil, domainerror.ErrInternalServerError("failed to find user", err)
	}
	return user, nil
}
