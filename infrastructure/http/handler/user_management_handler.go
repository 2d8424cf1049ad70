package handler

import (
	"net/http"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/infrastructure/http/middleware"
	"github.com/fixora/gatekeeper/infrastructure/http/response"
	"github.com/fixora/gatekeeper/infrastructure/http/validator"
)

type UserManagementHandler struct {
	userManagementUseCase inbound.UserManagementUseCase
	cookies               CookieConfig
}

func NewUserManagementHandler(userManagementUseCase inbound.UserManagementUseCase, cookies CookieConfig) *UserManagementHandler {
	return &UserManagementHandler{
		userManagementUseCase: userManagementUseCase,
		cookies:               cookies,
	}
}

// CreateUser creates a new user. Admin only.
func (h *UserManagementHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req inbound.CreateUserRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	user, err := h.userManagementUseCase.CreateUser(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "User created successfully", user)
}

// ListUsers returns every user. Admin only.
func (h *UserManagementHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	res, err := h.userManagementUseCase.ListUsers(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "", res)
}

func (h *UserManagementHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req inbound.UpdateProfileRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	user, err := h.userManagementUseCase.UpdateProfile(r.Context(), middleware.PrincipalFromContext(r.Context()), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Profile updated", user)
}

// ChangePassword revokes every existing session and hands the caller a
// fresh pair, in the body and in cookies.
func (h *UserManagementHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req inbound.ChangePasswordRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.userManagementUseCase.ChangePassword(r.Context(), middleware.PrincipalFromContext(r.Context()), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	setSessionCookies(w, h.cookies, res)
	response.Success(w, http.StatusOK, "Password updated", res)
}
