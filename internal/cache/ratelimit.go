package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowbot/flowbot/internal/model"
)

// Bucket key spaces: one per authenticated principal, one per hashed client IP.
const (
	principalBucketPrefix = keyNamespace + "ratelimit:principal:"
	ipBucketPrefix        = keyNamespace + "ratelimit:ip:"
)

// RateLimitResult is the outcome of taking one token from a bucket.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// takeToken refills the bucket for the elapsed milliseconds, then tries to
// take one token. State lives in a hash that expires once the bucket would
// be full again. Returns {allowed, retry_after_ms, tokens_left}.
var takeToken = redis.NewScript(`
local rate_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now_ms
if now_ms > ts then
	tokens = math.min(capacity, tokens + (now_ms - ts) * rate_ms)
end

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait_ms = math.ceil((1 - tokens) / rate_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now_ms)
redis.call('PEXPIRE', KEYS[1], math.ceil(capacity / rate_ms) + 1000)

return {allowed, wait_ms, math.floor(tokens)}
`)

// PrincipalKey names the bucket of an authenticated caller: the API key when
// present, otherwise the session's user.
func PrincipalKey(auth *model.AuthContext) string {
	if auth.KeyID != "" {
		return "key:" + auth.KeyID
	}
	return "user:" + auth.UserID
}

// CheckAPIRateLimit takes a token from principal's bucket. A zero rate means
// unlimited and never touches Redis.
func (c *Cache) CheckAPIRateLimit(ctx context.Context, principal string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now().Add(time.Minute)}, nil
	}
	return c.take(ctx, principalBucketPrefix+principal, float64(ratePerMinute)/60, burst)
}

// CheckIPRateLimit takes a token from the bucket of ip. Only a hash of the
// address is stored.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, ipBucketPrefix+hashIP(ip), float64(ratePerSecond), burst)
}

func (c *Cache) take(ctx context.Context, key string, perSecond float64, burst int) (*RateLimitResult, error) {
	if burst < 1 {
		burst = 1
	}
	now := time.Now()

	res, err := takeToken.Run(ctx, c.client, []string{key}, perSecond/1000, burst, now.UnixMilli()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	remaining := res[2]
	// Time until the bucket is full again.
	refill := time.Duration(math.Ceil(float64(int64(burst)-remaining)/perSecond)) * time.Second

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  remaining,
		ResetAt:    now.Add(refill),
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

// hashIP keys IP buckets by the first 8 bytes of SHA-256 (16 hex chars).
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
