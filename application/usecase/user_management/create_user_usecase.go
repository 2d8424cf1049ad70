package user_management

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/valueobject"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
)

type CreateUserUseCase struct {
	userRepo    outbound.UserRepository
	passwordSvc outbound.PasswordService
	now         func() time.Time
}

func NewCreateUserUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
	now func() time.Time,
) *CreateUserUseCase {
	return &CreateUserUseCase{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		now:         now,
	}
}

func (uc *CreateUserUseCase) Execute(ctx context.Context, req inbound.CreateUserRequest) (*entity.Identity, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)

	roles, err := uc.validateCreateUserRequest(req)
	if err != nil {
		return nil, err
	}

	if err := ensureAvailable(ctx, uc.userRepo, "", req.Username, req.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordSvc.HashPassword(req.Password)
	if err != nil {
		return nil, domainerror.ErrInternalServerError("failed to hash password", err)
	}

	user := entity.NewIdentity(
		uuid.NewString(),
		req.Username,
		req.Email,
		hashedPassword,
		roles,
		uc.now(),
	)

	if err := uc.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			return nil, domainerror.ErrAlreadyExists
		}
		return nil, domainerror.ErrInternalServerError("failed to create user", err)
	}

	return user, nil
}

func (uc *CreateUserUseCase) validateCreateUserRequest(req inbound.CreateUserRequest) (entity.RoleSet, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := valueobject.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := valueobject.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	if len(req.Roles) == 0 {
		return entity.NewRoleSet(entity.RoleUser), nil
	}
	roles := entity.NewRoleSet()
	for _, name := range req.Roles {
		role, ok := entity.ParseRole(name)
		if !ok {
			return nil, domainerror.ErrUnknownRole(name)
		}
		roles[role] = struct{}{}
	}
	return roles, nil
}

func validateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return domainerror.ErrInvalidRequest(fmt.Sprintf("Username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureAvailable rejects a username or email held by an identity other
// than selfID. The store enforces the same rule on Save; checking first
// gives a clean error without relying on driver codes.
func ensureAvailable(ctx context.Context, repo outbound.UserRepository, selfID, username, email string) error {
	lookups := []struct {
		value string
		find  func(context.Context, string) (*entity.Identity, error)
	}{
		{username, repo.FindByUsername},
		{email, repo.FindByEmail},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		existing, err := l.find(ctx, l.value)
		switch {
		case errors.Is(err, outbound.ErrUserNotFound):
		case err != nil:
			return domainerror.ErrInternalServerError("failed to check availability", err)
		case existing.ID != selfID:
			return domainerror.ErrAlreadyExists
		}
	}
	return nil
}
