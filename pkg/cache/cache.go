package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sheetpulse/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// AnalyticsCache is a best-effort cache in front of the analytics engine.
// Every failure is logged and swallowed: a cache outage degrades to
// recomputing, never to a failed request.
type AnalyticsCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.ILogger
}

func New(rdb *redis.Client, ttl time.Duration, log logger.ILogger) *AnalyticsCache {
	return &AnalyticsCache{rdb: rdb, ttl: ttl, logger: log}
}

func (c *AnalyticsCache) Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("AnalyticsCache", "get failed, bypassing cache", map[string]interface{}{"error": err.Error(), "key": key})
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("AnalyticsCache", "cached value unmarshal failed, bypassing cache", map[string]interface{}{"error": err.Error(), "key": key})
		return false
	}
	return true
}

func (c *AnalyticsCache) Set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("AnalyticsCache", "marshal failed, not caching", map[string]interface{}{"error": err.Error(), "key": key})
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("AnalyticsCache", "set failed", map[string]interface{}{"error": err.Error(), "key": key})
	}
}

// InvalidateConnection drops every cached entry keyed under a connection's
// prefix, called after a sync completes so stale analytics are never served.
func (c *AnalyticsCache) InvalidateConnection(ctx context.Context, connectionID string) {
	pattern := KeyPrefix(connectionID) + "*"
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("AnalyticsCache", "scan failed during invalidation", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(keys) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("AnalyticsCache", "pipelined delete failed during invalidation", map[string]interface{}{"error": err.Error()})
	}
}

func KeyPrefix(connectionID string) string {
	return fmt.Sprintf("analytics:%s:", connectionID)
}

func Key(connectionID, operation, fingerprint string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix(connectionID), operation, fingerprint)
}
