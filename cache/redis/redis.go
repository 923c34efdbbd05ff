/*
Package redis implements tracking.Cache on a shared Redis server.

PURPOSE:
  Lets several tracker instances share one snapshot cache, so a write on
  one instance invalidates the entries every instance reads.

STORAGE:
  Each snapshot is JSON-encoded under <prefix><key> with SET EX ttl; Redis
  expires entries itself. Pattern invalidation walks SCAN MATCH and deletes
  in batches.

FAILURES:
  Cache errors never fail a request. A failed Get is logged and reported
  as a miss; failed writes and deletes are logged and dropped.
*/
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Mgdadali/249-subsite/tracking"
)

// DefaultPrefix namespaces every key the tracker writes.
const DefaultPrefix = "tracker:"

const scanBatch = 100

// Cache is a Redis-backed tracking.Cache.
type Cache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewWithClient(client, ttl, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		client: client,
		prefix: DefaultPrefix,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Get(ctx context.Context, key string) (tracking.Snapshot, bool) {
	if c.ttl <= 0 {
		return tracking.Snapshot{}, false
	}
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return tracking.Snapshot{}, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return tracking.Snapshot{}, false
	}

	var snap tracking.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return tracking.Snapshot{}, false
	}
	return snap, true
}

func (c *Cache) Set(ctx context.Context, key string, value tracking.Snapshot) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) InvalidatePattern(ctx context.Context, substr string) {
	c.deleteMatching(ctx, c.prefix+"*"+escapeGlob(substr)+"*")
}

func (c *Cache) InvalidateAll(ctx context.Context) {
	c.deleteMatching(ctx, c.prefix+"*")
}

func (c *Cache) deleteMatching(ctx context.Context, match string) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			c.logger.Warn("cache scan failed", zap.String("match", match), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache delete failed", zap.Int("keys", len(keys)), zap.Error(err))
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
