package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultTTL applies when a caller passes a non-positive TTL.
	DefaultTTL = 5 * time.Minute
	// scanPageSize bounds each SCAN page during pattern invalidation.
	scanPageSize = 100
)

// Cache is a Redis-backed read-through cache. It deliberately never
// fails a request: backend read errors degrade to misses and write
// errors to skipped writes, both logged, so a Redis outage slows the
// dashboard down instead of taking it out.
type Cache struct {
	client     *redis.Client
	logger     *zap.Logger
	namespace  string
	defaultTTL time.Duration
}

// New creates a cache over client. All keys are stored under namespace
// (e.g. "chronos"); ttl is the default entry lifetime.
func New(client *redis.Client, namespace string, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, logger: logger, namespace: namespace, defaultTTL: ttl}
}

// Key builds a cache key from parts. Strings and Stringers are used
// verbatim; any other part is canonicalized (object keys sorted) and
// content-hashed, so equivalent parameter sets always map to the same
// fixed-length identifier.
func (c *Cache) Key(parts ...any) string {
	key := ""
	for _, p := range parts {
		var s string
		switch v := p.(type) {
		case string:
			s = v
		case fmt.Stringer:
			s = v.String()
		default:
			s = hashParams(v)
		}
		if key == "" {
			key = s
		} else {
			key += ":" + s
		}
	}
	return key
}

// hashParams canonicalizes v through a JSON round-trip (map keys come
// back sorted) and hashes the result.
func hashParams(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", v))
	} else {
		var norm any
		if err := json.Unmarshal(raw, &norm); err == nil {
			if canonical, err := json.Marshal(norm); err == nil {
				raw = canonical
			}
		}
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Get loads the entry under key into dest. It returns false on a miss,
// a backend error or a corrupt entry.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, c.namespaced(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value under key for ttl (the default when ttl <= 0).
// Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.namespaced(key), raw, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes specific keys. Failures are logged and swallowed.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.namespaced(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidatePattern deletes every key matching pattern, scanning in
// bounded pages rather than issuing a blocking KEYS. It returns how many
// entries were removed before any backend error cut the walk short.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) int {
	match := c.namespaced(pattern)
	removed := 0
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanPageSize).Result()
		if err != nil {
			c.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
			return removed
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache delete failed", zap.String("pattern", pattern), zap.Error(err))
				return removed
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return removed
		}
	}
}

// InvalidateCreator drops every cached entry whose key mentions the
// creator, across all dashboard namespaces.
func (c *Cache) InvalidateCreator(ctx context.Context, creatorID uuid.UUID) int {
	return c.InvalidatePattern(ctx, "*"+creatorID.String()+"*")
}

func (c *Cache) namespaced(key string) string {
	return c.namespace + ":" + key
}

// GetOrSet returns the cached value under key, or runs fetch, caches the
// result for ttl and returns it. Cache failures on either side degrade
// to a plain fetch; a fetch error is returned uncached.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}
	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, value, ttl)
	return value, nil
}
