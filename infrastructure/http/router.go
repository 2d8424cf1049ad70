package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/domain/entity"
	"github.com/fixora/gatekeeper/infrastructure/http/handler"
	"github.com/fixora/gatekeeper/infrastructure/http/middleware"
	"github.com/fixora/gatekeeper/infrastructure/http/response"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
	"github.com/fixora/gatekeeper/infrastructure/service/metrics"
)

// RouterDeps is everything the HTTP surface needs. Metrics and CORS are
// optional.
type RouterDeps struct {
	Auth     inbound.AuthUseCase
	Users    inbound.UserManagementUseCase
	Resolver inbound.IdentityResolver
	Limiter  inbound.RateLimiter
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	CORS     *middleware.CORSConfig

	SecureCookies bool
	TrustProxy    bool
}

// NewRouter builds the handler chain:
// metrics, recovery, security headers, rate limit, correlation id, CORS,
// authentication, then the per-route role gate.
func NewRouter(deps RouterDeps) http.Handler {
	cookies := handler.CookieConfig{Secure: deps.SecureCookies}
	authHandler := handler.NewAuthHandler(deps.Auth, cookies)
	userHandler := handler.NewUserManagementHandler(deps.Users, cookies)

	var (
		rejections middleware.RejectionObserver
		limited    middleware.RateLimitObserver
	)
	if deps.Metrics != nil {
		rejections = deps.Metrics
		limited = deps.Metrics
	}
	auth := middleware.NewAuthMiddleware(deps.Resolver, deps.Logger, rejections)
	rateLimit := middleware.NewRateLimitMiddleware(deps.Limiter, deps.Logger, deps.TrustProxy, limited)

	authed := auth.RequireAuth
	adminOnly := auth.RequireRole(entity.RoleAdmin)

	router := mux.NewRouter()
	router.Use(metrics.CaptureRoute)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "healthy", nil)
	}).Methods(http.MethodGet)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	api.Handle("/auth/logout", authed(http.HandlerFunc(authHandler.Logout))).Methods(http.MethodPost)

	api.Handle("/users/me", authed(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)
	api.Handle("/users/me", authed(http.HandlerFunc(userHandler.UpdateProfile))).Methods(http.MethodPatch)
	api.Handle("/users/me/password", authed(http.HandlerFunc(userHandler.ChangePassword))).Methods(http.MethodPatch)
	api.Handle("/users", adminOnly(http.HandlerFunc(userHandler.CreateUser))).Methods(http.MethodPost)
	api.Handle("/users", adminOnly(http.HandlerFunc(userHandler.ListUsers))).Methods(http.MethodGet)

	var h http.Handler = auth.Authenticate(router)
	if deps.CORS != nil {
		h = middleware.CORSMiddleware(*deps.CORS)(h)
	}
	h = middleware.CorrelationIDMiddleware(h)
	h = rateLimit.RateLimit(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.Recovery(deps.Logger)(h)
	if deps.Metrics != nil {
		h = deps.Metrics.Instrument(h)
	}
	return h
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger logger.Logger
}

func NewServer(addr string, h http.Handler, log logger.Logger) *Server {
	return &Server{
		logger: log,
		server: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
