package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowbot/flowbot/internal/model"
)

const (
	authCachePrefix = keyNamespace + "auth:ctx:"
	// authUserIndexPrefix holds, per user, the set of cache keys to drop on revocation.
	authUserIndexPrefix = keyNamespace + "auth:user:"
	authCacheTTL        = 5 * time.Minute
)

// CachedAuthContext represents auth context stored in Redis.
type CachedAuthContext struct {
	KeyID         string   `json:"key_id"`
	KeyPrefix     string   `json:"key_prefix"`
	UserID        string   `json:"user_id"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
	Source        string   `json:"source"`
}

func authKey(cacheKey string) string { return authCachePrefix + cacheKey }
func authUserIndexKey(userID string) string { return authUserIndexPrefix + userID }

// GetAuthContext retrieves a cached auth context by cache key.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authKey(cacheKey)).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr // a miss or an unreachable cache both fall back to the database
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	source := cached.Source
	if source == "" {
		source = model.AuthSourceAPIKey
	}

	return &model.AuthContext{
		KeyID:         cached.KeyID,
		KeyPrefix:     cached.KeyPrefix,
		UserID:        cached.UserID,
		Scopes:        cached.Scopes,
		RateLimitTier: cached.RateLimitTier,
		Source:        source,
	}, nil
}

// SetAuthContext caches an auth context and records the key in the
// owner's index so revocation can drop it.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	cached := CachedAuthContext{
		KeyID:         auth.KeyID,
		KeyPrefix:     auth.KeyPrefix,
		UserID:        auth.UserID,
		Scopes:        auth.Scopes,
		RateLimitTier: auth.RateLimitTier,
		Source:        auth.Source,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	indexKey := authUserIndexKey(auth.UserID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authKey(cacheKey), data, authCacheTTL)
	pipe.SAdd(ctx, indexKey, cacheKey)
	pipe.Expire(ctx, indexKey, authCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache auth context: %w", err)
	}
	return nil
}

// DeleteAuthContext removes a cached auth context.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authKey(cacheKey)).Err()
}

// InvalidateUserAuthContexts removes every cached auth context of a user.
// Called after a key is revoked, since the plaintext key needed to derive
// its cache key is no longer available.
func (c *Cache) InvalidateUserAuthContexts(ctx context.Context, userID string) error {
	indexKey := authUserIndexKey(userID)
	members, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("read auth index: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, authKey(m))
	}
	keys = append(keys, indexKey)

	return c.client.Del(ctx, keys...).Err()
}
