// internal/admission/cache_test.go
package admission

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheFixture(t *testing.T) (*IdempotencyCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewIdempotencyCache(client, time.Hour), mr
}

func TestIdempotencyCache(t *testing.T) {
	c, mr := newCacheFixture(t)
	ctx := context.Background()

	assert.Empty(t, c.Lookup(ctx, "tenant-1", "order-42"))

	c.Store(ctx, "tenant-1", "order-42", "ntf-1")
	assert.Equal(t, "ntf-1", c.Lookup(ctx, "tenant-1", "order-42"))

	// Tenants do not share keyspace.
	assert.Empty(t, c.Lookup(ctx, "tenant-2", "order-42"))

	mr.FastForward(2 * time.Hour)
	assert.Empty(t, c.Lookup(ctx, "tenant-1", "order-42"))
}

func TestIdempotencyCache_DegradedRedis(t *testing.T) {
	c, mr := newCacheFixture(t)
	mr.Close()

	// Cache errors fall through to a miss; they never fail admission.
	assert.Empty(t, c.Lookup(context.Background(), "tenant-1", "order-42"))
	c.Store(context.Background(), "tenant-1", "order-42", "ntf-1")
}

func TestIdempotencyCache_NilSafe(t *testing.T) {
	var c *IdempotencyCache
	require.Empty(t, c.Lookup(context.Background(), "t", "k"))
	c.Store(context.Background(), "t", "k", "v")
}
