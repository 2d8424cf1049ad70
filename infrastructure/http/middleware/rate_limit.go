package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/gatekeeper/application/port/inbound"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/infrastructure/http/response"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

// RateLimitObserver is told about every rejected request.
type RateLimitObserver interface {
	RateLimited()
}

type RateLimitMiddleware struct {
	limiter    inbound.RateLimiter
	logger     logger.Logger
	trustProxy bool
	observer   RateLimitObserver
}

func NewRateLimitMiddleware(limiter inbound.RateLimiter, log logger.Logger, trustProxy bool, observer RateLimitObserver) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		logger:     log,
		trustProxy: trustProxy,
		observer:   observer,
	}
}

// RateLimit admits or rejects the request before anything else runs. The
// bucket key is the client address.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := ClientIP(r, m.trustProxy)

		decision, err := m.limiter.Admit(ctx, "ip:"+clientIP)
		if err != nil {
			// Continue with request on error
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip": clientIP,
			})
			next.ServeHTTP(w, r)
			return
		}

		if !decision.Allowed {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
				"ip":        clientIP,
				"path":      r.URL.Path,
				"userAgent": r.UserAgent(),
			})
			if m.observer != nil {
				m.observer.RateLimited()
			}
			w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
			response.TooManyRequests(w, domainerror.ErrRateLimited.Message)
			return
		}

		if decision.Remaining >= 0 {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ClientIP returns the address the request came from. Forwarding headers
// are honoured only behind a trusted proxy; otherwise any client could
// pick its own bucket.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// X-Forwarded-For can contain multiple IPs, take the first one
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
