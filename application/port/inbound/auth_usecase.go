package inbound

import (
	"context"
	"time"

	"github.com/fixora/gatekeeper/domain/entity"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login and refresh. Token fields are also
// delivered as cookies by the HTTP layer.
type AuthResponse struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	Roles        []string      `json:"roles"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	AccessTTL    time.Duration `json:"-"`
	RefreshTTL   time.Duration `json:"-"`
}

type MeResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthUseCase interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error)
	Logout(ctx context.Context, principal *entity.Principal) error
	Me(ctx context.Context, principal *entity.Principal) (*MeResponse, error)
}
