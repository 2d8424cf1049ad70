package error

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerror "github.com/fixora/gatekeeper/domain/error"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"token invalid", domainerror.ErrTokenInvalidCause(errors.New("bad signature")), http.StatusUnauthorized, "Authentication required"},
		{"token revoked", domainerror.ErrTokenRevokedFor("id-1"), http.StatusUnauthorized, "Authentication required"},
		{"identity gone", domainerror.ErrIdentityNotFoundFor("id-1"), http.StatusUnauthorized, "Authentication required"},
		{"unauthenticated", domainerror.ErrUnauthenticated, http.StatusUnauthorized, "Authentication required"},
		{"invalid credentials", domainerror.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"forbidden", domainerror.ErrForbidden, http.StatusForbidden, "You do not have permission to perform this action."},
		{"current password", domainerror.ErrCurrentPassword, http.StatusForbidden, "Current password is incorrect"},
		{"weak password", domainerror.ErrInvalidPassword("Password must be at least 6 characters"), http.StatusBadRequest, "Password must be at least 6 characters"},
		{"duplicate", domainerror.ErrAlreadyExists, http.StatusBadRequest, "Username or email already exists"},
		{"unknown role", domainerror.ErrUnknownRole("ROOT"), http.StatusBadRequest, "Role not found: ROOT"},
		{"rate limited", domainerror.ErrRateLimited, http.StatusTooManyRequests, "Too Many Requests"},
		{"wrapped", fmt.Errorf("login: %w", domainerror.ErrInvalidCredentials), http.StatusUnauthorized, "Invalid credentials"},
		{"internal", domainerror.ErrInternalServerError("db down", errors.New("dial tcp")), http.StatusInternalServerError, "Internal server error"},
		{"foreign", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestMapErrorDoesNotLeakDetails(t *testing.T) {
	got := MapError(domainerror.ErrInternalServerError("select from users failed", errors.New("password=hunter2")))
	assert.NotContains(t, got.Message, "hunter2")
	assert.NotContains(t, got.Message, "users")
}
