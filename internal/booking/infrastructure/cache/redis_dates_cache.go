// Package cache provides the Redis-backed availability date cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultDatesTTL bounds staleness; entries are also invalidated on
// every successful reservation.
const DefaultDatesTTL = time.Minute

// RedisDatesCache caches DatesWithAvailability results. All keys of a
// (workspace, booking type) pair share one index set so invalidation
// can drop them together.
type RedisDatesCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisDatesCache creates the cache. A non-positive ttl falls back
// to DefaultDatesTTL.
func NewRedisDatesCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisDatesCache {
	if ttl <= 0 {
		ttl = DefaultDatesTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisDatesCache{client: client, ttl: ttl, logger: logger}
}

// Get returns a cached date set. Cache errors degrade to a miss.
func (c *RedisDatesCache) Get(ctx context.Context, key string) ([]time.Time, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "dates cache read failed", "key", key, "error", err)
		return nil, false
	}

	var dates []time.Time
	if err := json.Unmarshal(raw, &dates); err != nil {
		c.logger.WarnContext(ctx, "dates cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return dates, true
}

// Set stores a date set and registers the key in the pair's index set.
func (c *RedisDatesCache) Set(ctx context.Context, key string, dates []time.Time) {
	raw, err := json.Marshal(dates)
	if err != nil {
		return
	}

	indexKey := c.indexKeyFromEntry(key)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, raw, c.ttl)
	if indexKey != "" {
		pipe.SAdd(ctx, indexKey, key)
		pipe.Expire(ctx, indexKey, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "dates cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached date set of a workspace and booking
// type.
func (c *RedisDatesCache) Invalidate(ctx context.Context, workspaceID uuid.UUID, bookingType string) {
	indexKey := c.indexKey(workspaceID.String(), bookingType)

	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil && err != redis.Nil {
		c.logger.WarnContext(ctx, "dates cache invalidation failed", "error", err)
		return
	}

	keys = append(keys, indexKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "dates cache invalidation failed", "error", err)
	}
}

func (c *RedisDatesCache) indexKey(workspaceID, bookingType string) string {
	return fmt.Sprintf("availability:index:%s:%s", workspaceID, bookingType)
}

// indexKeyFromEntry derives the index key from an entry key of the form
// availability:dates:{workspace}:{type}:{from}:{to}.
func (c *RedisDatesCache) indexKeyFromEntry(entryKey string) string {
	parts := strings.Split(entryKey, ":")
	if len(parts) < 4 || parts[0] != "availability" || parts[1] != "dates" {
		return ""
	}
	return c.indexKey(parts[2], parts[3])
}
