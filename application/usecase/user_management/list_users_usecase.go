package user_management

import (
	"context"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/port/outbound"
	"github.com/fixora/gatekeeper/domain/entity"
	domainerror "github.com/fixora/gatekeeper/domain/error"
)

type ListUsersUseCase struct {
	userRepo outbound.UserRepository
}

func NewListUsersUseCase(userRepo outbound.UserRepository) *ListUsersUseCase {
	return &ListUsersUseCase{
		userRepo: userRepo,
	}
}

func (uc *ListUsersUseCase) Execute(ctx context.Context) (*inbound.ListUsersResponse, error) {
	users, err := uc.userRepo.List(ctx)
	if err != nil {
		return nil, domainerror.ErrInternalServerError("failed to list users", err)
	}

	items := make([]inbound.UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, toListItem(u))
	}

	return &inbound.ListUsersResponse{
		Results: len(items),
		Users:   items,
	}, nil
}

func toListItem(u *entity.Identity) inbound.UserListItem {
	return inbound.UserListItem{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles.Names(),
	}
}
