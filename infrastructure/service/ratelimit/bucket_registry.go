package ratelimit

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/fixora/gatekeeper/application/port/inbound"
)

// BucketPolicy describes one token bucket: Capacity permits, refilled
// continuously at RefillTokens per Window.
type BucketPolicy struct {
	Capacity     int
	RefillTokens int
	Window       time.Duration
}

func (p BucketPolicy) limit() rate.Limit {
	return rate.Limit(float64(p.RefillTokens) / p.Window.Seconds())
}

// FullRefill is the time an empty bucket needs to reach capacity.
func (p BucketPolicy) FullRefill() time.Duration {
	if p.RefillTokens <= 0 {
		return 0
	}
	return time.Duration(int64(p.Window) * int64(p.Capacity) / int64(p.RefillTokens))
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// BucketRegistry is the in-process key -> bucket map. It is created once at
// startup, shared by every request and never persisted.
//
// Existing buckets are used under the read lock; each rate.Limiter
// serializes its own refill+consume. A new key is inserted under the write
// lock after a second lookup, so concurrent first arrivals share one
// bucket. Eviction also takes the write lock and therefore never removes a
// bucket that is being consumed.
type BucketRegistry struct {
	policy  BucketPolicy
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	buckets map[string]*bucket
}

// NewBucketRegistry returns an empty registry. idleTTL 0 keeps buckets for
// the life of the process.
func NewBucketRegistry(policy BucketPolicy, idleTTL time.Duration, now func() time.Time) *BucketRegistry {
	if now == nil {
		now = time.Now
	}
	return &BucketRegistry{
		policy:  policy,
		idleTTL: idleTTL,
		now:     now,
		buckets: make(map[string]*bucket),
	}
}

var _ inbound.RateLimiter = (*BucketRegistry)(nil)

func (r *BucketRegistry) Admit(_ context.Context, key string) (inbound.Decision, error) {
	now := r.now()

	r.mu.RLock()
	if b, ok := r.buckets[key]; ok {
		d := r.take(b, now)
		r.mu.RUnlock()
		return d, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.policy.limit(), r.policy.Capacity)}
		r.buckets[key] = b
	}
	return r.take(b, now), nil
}

func (r *BucketRegistry) take(b *bucket, now time.Time) inbound.Decision {
	b.lastSeen.Store(now.UnixNano())

	if b.limiter.AllowN(now, 1) {
		return inbound.Decision{
			Allowed:   true,
			Remaining: int(math.Max(0, math.Floor(b.limiter.TokensAt(now)))),
		}
	}

	missing := 1 - b.limiter.TokensAt(now)
	waitMs := math.Ceil(missing / float64(r.policy.limit()) * 1000)
	return inbound.Decision{Allowed: false, RetryAfter: time.Duration(waitMs) * time.Millisecond}
}

// Sweep drops buckets idle for at least idleTTL and returns how many were
// removed. A bucket idle that long has refilled completely, so dropping it
// changes no decision.
func (r *BucketRegistry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, b := range r.buckets {
		if b.lastSeen.Load() <= cutoff {
			delete(r.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done. With eviction disabled it
// only waits for ctx.
func (r *BucketRegistry) Run(ctx context.Context, interval time.Duration) error {
	if r.idleTTL <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len is the number of live buckets.
func (r *BucketRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}
