// internal/admission/cache.go
package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache is a fast-path lookup for (tenant, idempotency key)
// pairs. The database unique constraint remains the source of truth; cache
// misses and cache errors just fall through to the DB check.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{client: client, ttl: ttl}
}

func cacheKey(tenantID, key string) string {
	return fmt.Sprintf("idem:%s:%s", tenantID, key)
}

// Lookup returns the cached notification ID for the pair, or "" on miss.
func (c *IdempotencyCache) Lookup(ctx context.Context, tenantID, key string) string {
	if c == nil || c.client == nil {
		return ""
	}
	id, err := c.client.Get(ctx, cacheKey(tenantID, key)).Result()
	if err != nil {
		return ""
	}
	return id
}

// Store records the pair after a successful admission. Failures are ignored;
// the next lookup simply misses.
func (c *IdempotencyCache) Store(ctx context.Context, tenantID, key, notificationID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, cacheKey(tenantID, key), notificationID, c.ttl)
}
