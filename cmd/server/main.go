package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fixora/gatekeeper/application/usecase"
	"github.com/fixora/gatekeeper/application/usecase/user_management"
	"github.com/fixora/gatekeeper/infrastructure/adapter/store"
	"github.com/fixora/gatekeeper/infrastructure/config"
	httpserver "github.com/fixora/gatekeeper/infrastructure/http"
	"github.com/fixora/gatekeeper/infrastructure/http/middleware"
	"github.com/fixora/gatekeeper/infrastructure/service/jwt"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
	"github.com/fixora/gatekeeper/infrastructure/service/metrics"
	"github.com/fixora/gatekeeper/infrastructure/service/password"
	"github.com/fixora/gatekeeper/infrastructure/service/ratelimit"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("gatekeeper: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logger
	base := logger.NewLogrus(logger.LoggerConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	structuredLogger := logger.FromLogrus(base, "gatekeeper", false)
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":   cfg.Environment,
		"store": cfg.StoreBackend,
	})

	st, err := store.Open(ctx, cfg.StoreConfig)
	if err != nil {
		return err
	}
	defer st.Close()

	tokenService, err := jwt.NewJWTService(cfg.JWT, time.Now)
	if err != nil {
		return err
	}
	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	limiter, err := ratelimit.NewRateLimiter(cfg.RateLimit, cfg.RedisURL, base, time.Now)
	if err != nil {
		return err
	}

	authUseCase := usecase.NewAuthUseCase(st.Users, tokenService, passwordService, structuredLogger, time.Now)
	userManagementUseCase := user_management.NewUserManagementUseCase(st.Users, passwordService, tokenService, structuredLogger, time.Now)

	if cfg.SeedDemoIdentities {
		created, err := userManagementUseCase.Seed(ctx, user_management.DemoIdentities)
		if err != nil {
			return err
		}
		structuredLogger.Info(ctx, "Demo identities seeded", map[string]interface{}{"created": created})
	}

	deps := httpserver.RouterDeps{
		Auth:          authUseCase,
		Users:         userManagementUseCase,
		Resolver:      usecase.NewIdentityResolver(st.Users, tokenService),
		Limiter:       limiter,
		Logger:        structuredLogger,
		SecureCookies: cfg.IsProduction(),
		TrustProxy:    cfg.RateLimit.TrustProxy,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
		deps.Metrics.TrackBuckets(limiter.Len)
	}
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		deps.CORS = &middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: cfg.CORSAllowCredentials,
		}
	}

	server := httpserver.NewServer(cfg.Addr(), httpserver.NewRouter(deps), structuredLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	structuredLogger.Info(context.Background(), "Server exited", nil)
	return err
}
