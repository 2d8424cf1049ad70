package middleware

import (
	"context"
	"net/http"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/application/usecase"
	"github.com/fixora/gatekeeper/domain/entity"
	"github.com/fixora/gatekeeper/domain/policy"
	"github.com/fixora/gatekeeper/infrastructure/http/response"
	"github.com/fixora/gatekeeper/infrastructure/http/validator"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

// AccessTokenCookie carries the access token for cookie-based clients.
const AccessTokenCookie = "jwt"

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *entity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the request principal, or nil when the
// request is anonymous.
func PrincipalFromContext(ctx context.Context) *entity.Principal {
	p, _ := ctx.Value(principalKey{}).(*entity.Principal)
	return p
}

// RejectionObserver is told why a presented token was not accepted.
type RejectionObserver interface {
	TokenRejected(reason string)
}

type AuthMiddleware struct {
	resolver inbound.IdentityResolver
	logger   logger.Logger
	observer RejectionObserver
}

func NewAuthMiddleware(resolver inbound.IdentityResolver, log logger.Logger, observer RejectionObserver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   log,
		observer: observer,
	}
}

// Authenticate binds a principal when the request carries a token that
// resolves. Any failure leaves the request anonymous; rejecting it is
// the job of RequireAuth and RequireRole.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		principal, err := m.resolver.Resolve(ctx, token)
		if err != nil {
			reason := usecase.AuditReason(err)
			if reason == "error" {
				m.logger.Error(ctx, "Failed to resolve identity", err, nil)
			} else {
				fields := map[string]interface{}{
					"reason": reason,
					"path":   r.URL.Path,
				}
				if subject := m.resolver.Subject(token); subject != "" {
					fields["user_id"] = subject
				}
				logger.LogSecurityEvent(ctx, m.logger, "token_rejected", "LOW", fields)
			}
			if m.observer != nil {
				m.observer.TokenRejected(reason)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequireAuth rejects anonymous requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.gate(policy.AnyAuthenticated, next)
}

// RequireRole rejects anonymous requests with 401 and principals lacking
// role with 403.
func (m *AuthMiddleware) RequireRole(role entity.RoleName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.gate(policy.RequireRole(role), next)
	}
}

func (m *AuthMiddleware) gate(req policy.Requirement, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if err := policy.Authorize(principal, req); err != nil {
			if principal != nil {
				logger.LogSecurityEvent(r.Context(), m.logger, "access_denied", "MEDIUM", map[string]interface{}{
					"user_id":  principal.ID(),
					"required": string(req.Role),
					"path":     r.URL.Path,
				})
			}
			response.FromError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest prefers the Authorization header over the cookie.
func tokenFromRequest(r *http.Request) string {
	if token := validator.BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
