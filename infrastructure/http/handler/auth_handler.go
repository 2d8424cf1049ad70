package handler

import (
	"net/http"
	"time"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/infrastructure/http/middleware"
	"github.com/fixora/gatekeeper/infrastructure/http/response"
	"github.com/fixora/gatekeeper/infrastructure/http/validator"
)

// RefreshTokenCookie carries the refresh token for cookie-based clients.
const RefreshTokenCookie = "refreshToken"

// CookieConfig controls the credential cookies.
type CookieConfig struct {
	// Secure is set in production only, so local HTTP development works.
	Secure bool
}

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
	cookies     CookieConfig
}

func NewAuthHandler(authUseCase inbound.AuthUseCase, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		cookies:     cookies,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.authUseCase.Login(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	setSessionCookies(w, h.cookies, res)
	response.Success(w, http.StatusOK, "", res)
}

// Refresh takes the refresh token from the body, falling back to the
// refreshToken cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req inbound.RefreshRequest
	if err := validator.DecodeOptionalJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(RefreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}

	res, err := h.authUseCase.Refresh(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	setSessionCookies(w, h.cookies, res)
	response.Success(w, http.StatusOK, "", res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authUseCase.Logout(r.Context(), middleware.PrincipalFromContext(r.Context())); err != nil {
		response.FromError(w, err)
		return
	}

	clearSessionCookies(w, h.cookies)
	response.Success(w, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	res, err := h.authUseCase.Me(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "", res)
}

func setSessionCookies(w http.ResponseWriter, cfg CookieConfig, res *inbound.AuthResponse) {
	http.SetCookie(w, sessionCookie(cfg, middleware.AccessTokenCookie, res.AccessToken, res.AccessTTL))
	http.SetCookie(w, sessionCookie(cfg, RefreshTokenCookie, res.RefreshToken, res.RefreshTTL))
}

func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		c := sessionCookie(cfg, name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func sessionCookie(cfg CookieConfig, name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	}
}
