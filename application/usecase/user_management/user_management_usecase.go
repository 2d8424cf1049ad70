package user_management

import (
	"context"
	"time"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

type UserManagementUseCaseImpl struct {
	createUserUseCase     *CreateUserUseCase
	listUsersUseCase      *ListUsersUseCase
	updateProfileUseCase  *UpdateProfileUseCase
	changePasswordUseCase *ChangePasswordUseCase
	seedUseCase           *SeedUseCase
}

func NewUserManagementUseCase(
	userRepo outbound.UserRepository,
	passwordSvc outbound.PasswordService,
	tokenSvc outbound.TokenService,
	log logger.Logger,
	now func() time.Time,
) inbound.UserManagementUseCase {
	if now == nil {
		now = time.Now
	}
	return &UserManagementUseCaseImpl{
		createUserUseCase:     NewCreateUserUseCase(userRepo, passwordSvc, now),
		listUsersUseCase:      NewListUsersUseCase(userRepo),
		updateProfileUseCase:  NewUpdateProfileUseCase(userRepo, now),
		changePasswordUseCase: NewChangePasswordUseCase(userRepo, passwordSvc, tokenSvc, log, now),
		seedUseCase:           NewSeedUseCase(userRepo, passwordSvc, log, now),
	}
}

func (uc *UserManagementUseCaseImpl) CreateUser(ctx context.Context, req inbound.CreateUserRequest) (*inbound.UserListItem, error) {
	user, err := uc.createUserUseCase.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	item := toListItem(user)
	return &item, nil
}

func (uc *UserManagementUseCaseImpl) ListUsers(ctx context.Context) (*inbound.ListUsersResponse, error) {
	return uc.listUsersUseCase.Execute(ctx)
}

func (uc *UserManagementUseCaseImpl) UpdateProfile(ctx context.Context, principal *entity.Principal, req inbound.UpdateProfileRequest) (*inbound.UserListItem, error) {
	user, err := uc.updateProfileUseCase.Execute(ctx, principal, req)
	if err != nil {
		return nil, err
	}
	item := toListItem(user)
	return &item, nil
}

func (uc *UserManagementUseCaseImpl) ChangePassword(ctx context.Context, principal *entity.Principal, req inbound.ChangePasswordRequest) (*inbound.AuthResponse, error) {
	return uc.changePasswordUseCase.Execute(ctx, principal, req)
}

func (uc *UserManagementUseCaseImpl) Seed(ctx context.Context, seeds []inbound.SeedIdentity) (int, error) {
	return uc.seedUseCase.Execute(ctx, seeds)
}
