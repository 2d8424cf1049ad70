package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fixora/gatekeeper/application/port/inbound"
	"github.com/fixora/gatekeeper/infrastructure/config"
)

// Limiter is what the server wires: the admission check plus an optional
// background loop (bucket eviction) and a bucket count for metrics.
type Limiter interface {
	inbound.RateLimiter
	Run(ctx context.Context) error
	Len() int
}

// NewRateLimiter membuat limiter sesuai konfigurasi
func NewRateLimiter(cfg config.RateLimitConfig, redisURL string, logger *logrus.Logger, now func() time.Time) (Limiter, error) {
	if !cfg.Enabled {
		logger.Info("Rate limiting disabled")
		return noopLimiter{}, nil
	}

	policy := BucketPolicy{
		Capacity:     cfg.Capacity,
		RefillTokens: cfg.RefillTokens,
		Window:       cfg.Window,
	}

	fields := logrus.Fields{
		"backend":       cfg.Backend,
		"capacity":      cfg.Capacity,
		"refill_tokens": cfg.RefillTokens,
		"window":        cfg.Window,
		"idle_ttl":      cfg.IdleTTL,
	}

	switch cfg.Backend {
	case config.RateLimitRedis:
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.WithFields(fields).Info("Rate limiting service initialized")
		return &redisBackend{RedisLimiter: NewRedisLimiter(client, policy, logger, now)}, nil

	default:
		registry := NewBucketRegistry(policy, cfg.IdleTTL, now)
		logger.WithFields(fields).Info("Rate limiting service initialized")
		return &memoryBackend{BucketRegistry: registry, interval: cfg.SweepInterval}, nil
	}
}

type memoryBackend struct {
	*BucketRegistry
	interval time.Duration
}

func (m *memoryBackend) Run(ctx context.Context) error {
	return m.BucketRegistry.Run(ctx, m.interval)
}

type redisBackend struct {
	*RedisLimiter
}

// Run closes the client once ctx is done.
func (r *redisBackend) Run(ctx context.Context) error {
	<-ctx.Done()
	return r.client.Close()
}

// Len is unknown for a shared store.
func (r *redisBackend) Len() int { return -1 }

// noopLimiter dipakai ketika rate limiting disabled
type noopLimiter struct{}

func (noopLimiter) Admit(context.Context, string) (inbound.Decision, error) {
	return inbound.Decision{Allowed: true, Remaining: -1}, nil
}

func (noopLimiter) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (noopLimiter) Len() int { return 0 }
