package inbound

import (
	"context"

	"github.com/fixora/gatekeeper/domain/entity"
)

type CreateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type UpdateProfileRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UserListItem struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type ListUsersResponse struct {
	Results int            `json:"results"`
	Users   []UserListItem `json:"users"`
}

// SeedIdentity is a demo account created at startup when absent.
type SeedIdentity struct {
	Username string
	Email    string
	Password string
	Roles    []entity.RoleName
}

type UserManagementUseCase interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserListItem, error)
	ListUsers(ctx context.Context) (*ListUsersResponse, error)
	UpdateProfile(ctx context.Context, principal *entity.Principal, req UpdateProfileRequest) (*UserListItem, error)
	// ChangePassword is a forced invalidation: every existing session of
	// the principal is revoked and a fresh pair is returned.
	ChangePassword(ctx context.Context, principal *entity.Principal, req ChangePasswordRequest) (*AuthResponse, error)
	Seed(ctx context.Context, seeds []SeedIdentity) (created int, err error)
}
