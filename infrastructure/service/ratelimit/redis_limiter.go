package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fixora/gatekeeper/application/port/inbound"
)

// tokenBucketScript refills and consumes one permit atomically.
// KEYS[1] bucket hash; ARGV capacity, refill tokens, window ms, now ms,
// ttl ms. Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end
if now > ts then
  tokens = math.min(capacity, tokens + (now - ts) * refill / window)
  ts = now
end

local allowed = 0
local retry = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry = math.ceil((1 - tokens) * window / refill)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(ts))
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, math.floor(tokens), retry}
`)

// RedisLimiter shares buckets between instances. The bucket hash expires
// after a full refill of inactivity, which is when it would be full anyway.
type RedisLimiter struct {
	client *redis.Client
	policy BucketPolicy
	prefix string
	logger *logrus.Logger
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, policy BucketPolicy, logger *logrus.Logger, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{
		client: client,
		policy: policy,
		prefix: "ratelimit:",
		logger: logger,
		now:    now,
	}
}

var _ inbound.RateLimiter = (*RedisLimiter)(nil)

// Admit fails open: when Redis is unreachable the request is admitted and
// the error is logged.
func (l *RedisLimiter) Admit(ctx context.Context, key string) (inbound.Decision, error) {
	ttl := int64(math.Ceil(float64(l.policy.FullRefill()) / float64(time.Millisecond)))
	if ttl < 1 {
		ttl = 1
	}

	res, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key},
		l.policy.Capacity,
		l.policy.RefillTokens,
		l.policy.Window.Milliseconds(),
		l.now().UnixMilli(),
		ttl,
	).Result()
	if err != nil {
		l.logger.WithContext(ctx).WithError(err).WithField("key", key).Error("Rate limit check failed, admitting request")
		return inbound.Decision{Allowed: true, Remaining: -1}, nil
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		err := fmt.Errorf("unexpected rate limit script reply: %v", res)
		l.logger.WithContext(ctx).WithError(err).Error("Rate limit check failed, admitting request")
		return inbound.Decision{Allowed: true, Remaining: -1}, nil
	}

	allowed, _ := vals[0].(int64)
	remaining, _ := vals[1].(int64)
	retryMs, _ := vals[2].(int64)

	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"key":       key,
		"allowed":   allowed == 1,
		"remaining": remaining,
	}).Debug("Rate limit check")

	return inbound.Decision{
		Allowed:    allowed == 1,
		Remaining:  int(remaining),
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}
