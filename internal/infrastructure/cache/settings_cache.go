package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appsetting "github.com/bizhub/backend/internal/application/setting"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSettingsTTL bounds how stale a cached setting can be
const DefaultSettingsTTL = 5 * time.Minute

func settingsKey(tenantID uuid.UUID, key string) string {
	return "settings:" + tenantID.String() + ":" + key
}

// RedisSettingsCache stores resolved settings in Redis hashes shared by all
// instances, so an invalidation is seen everywhere at once
type RedisSettingsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSettingsCache creates a new RedisSettingsCache
func NewRedisSettingsCache(client redis.UniversalClient, ttl time.Duration) *RedisSettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &RedisSettingsCache{client: client, ttl: ttl}
}

// Get returns a cached value and its source
func (c *RedisSettingsCache) Get(ctx context.Context, tenantID uuid.UUID, key string) (string, string, bool, error) {
	vals, err := c.client.HMGet(ctx, settingsKey(tenantID, key), "value", "source").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("read cached setting: %w", err)
	}
	source, ok := vals[1].(string)
	if !ok {
		return "", "", false, nil
	}
	value, _ := vals[0].(string)
	return value, source, true, nil
}

// Set caches a resolved value
func (c *RedisSettingsCache) Set(ctx context.Context, tenantID uuid.UUID, key, value, source string) error {
	k := settingsKey(tenantID, key)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, k, "value", value, "source", source)
	pipe.Expire(ctx, k, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache setting: %w", err)
	}
	return nil
}

// Invalidate drops a cached value
func (c *RedisSettingsCache) Invalidate(ctx context.Context, tenantID uuid.UUID, key string) error {
	return c.client.Del(ctx, settingsKey(tenantID, key)).Err()
}

type memEntry struct {
	value     string
	source    string
	expiresAt time.Time
}

// InMemorySettingsCache is a per-process cache used when Redis is not
// configured. Entries expire after the TTL; expired entries are removed on
// read.
type InMemorySettingsCache struct {
	entries sync.Map // map[string]memEntry
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

// NewInMemorySettingsCache creates a new InMemorySettingsCache
func NewInMemorySettingsCache(ttl time.Duration) *InMemorySettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &InMemorySettingsCache{ttl: ttl, now: time.Now}
}

// Get returns a cached value and its source
func (c *InMemorySettingsCache) Get(_ context.Context, tenantID uuid.UUID, key string) (string, string, bool, error) {
	k := settingsKey(tenantID, key)
	if v, ok := c.entries.Load(k); ok {
		e := v.(memEntry)
		if c.now().Before(e.expiresAt) {
			atomic.AddInt64(&c.hits, 1)
			return e.value, e.source, true, nil
		}
		c.entries.Delete(k)
	}
	atomic.AddInt64(&c.misses, 1)
	return "", "", false, nil
}

// Set caches a resolved value
func (c *InMemorySettingsCache) Set(_ context.Context, tenantID uuid.UUID, key, value, source string) error {
	c.entries.Store(settingsKey(tenantID, key), memEntry{value: value, source: source, expiresAt: c.now().Add(c.ttl)})
	return nil
}

// Invalidate drops a cached value
func (c *InMemorySettingsCache) Invalidate(_ context.Context, tenantID uuid.UUID, key string) error {
	c.entries.Delete(settingsKey(tenantID, key))
	return nil
}

// Stats returns hit and miss counts
func (c *InMemorySettingsCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

var (
	_ appsetting.Cache = (*RedisSettingsCache)(nil)
	_ appsetting.Cache = (*InMemorySettingsCache)(nil)
)
