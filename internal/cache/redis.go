// Package cache provides the shared Redis-backed visit detail cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/logging"
)

const (
	defaultPrefix = "skynet:visit-detail"
	defaultTTL    = 30 * time.Second
)

// Store is the subset of redis.Cmdable used by the cache.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Options configures a RedisDetailCache.
type Options struct {
	Prefix string
	TTL    time.Duration
	Logger *slog.Logger
}

// RedisDetailCache implements application.VisitDetailCache on Redis. Redis
// failures never reach callers; they are logged and treated as a miss.
type RedisDetailCache struct {
	store  Store
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ application.VisitDetailCache = (*RedisDetailCache)(nil)

// NewRedisDetailCache wraps store. A nil store yields a nil cache, which the
// application services treat as "no cache".
func NewRedisDetailCache(store Store, opts Options) *RedisDetailCache {
	if store == nil {
		return nil
	}
	prefix := strings.TrimSuffix(strings.TrimSpace(opts.Prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisDetailCache{store: store, prefix: prefix, ttl: ttl, logger: opts.Logger}
}

// NewClient opens a Redis client for addr and verifies it with PING.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: strings.TrimSpace(addr)})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Key returns the Redis key holding the detail of visit id.
func (c *RedisDetailCache) Key(id int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, id)
}

func (c *RedisDetailCache) GetVisitDetail(ctx context.Context, id int64) (application.VisitDetail, bool) {
	if c == nil || id == 0 {
		return application.VisitDetail{}, false
	}
	payload, err := c.store.Get(ctx, c.Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log(ctx).Warn("visit detail cache read failed", "visit_id", id, "error", err)
		}
		return application.VisitDetail{}, false
	}

	var detail application.VisitDetail
	if err := json.Unmarshal(payload, &detail); err != nil {
		c.log(ctx).Warn("discarding undecodable visit detail", "visit_id", id, "error", err)
		c.InvalidateVisit(ctx, id)
		return application.VisitDetail{}, false
	}
	if detail.Visit.ID != id {
		return application.VisitDetail{}, false
	}
	return detail, true
}

func (c *RedisDetailCache) StoreVisitDetail(ctx context.Context, detail application.VisitDetail) {
	if c == nil || detail.Visit.ID == 0 {
		return
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		c.log(ctx).Warn("visit detail cache encode failed", "visit_id", detail.Visit.ID, "error", err)
		return
	}
	if err := c.store.Set(ctx, c.Key(detail.Visit.ID), payload, c.ttl).Err(); err != nil {
		c.log(ctx).Warn("visit detail cache write failed", "visit_id", detail.Visit.ID, "error", err)
	}
}

func (c *RedisDetailCache) InvalidateVisit(ctx context.Context, id int64) {
	if c == nil || id == 0 {
		return
	}
	if err := c.store.Del(ctx, c.Key(id)).Err(); err != nil {
		c.log(ctx).Warn("visit detail cache invalidation failed", "visit_id", id, "error", err)
	}
}

func (c *RedisDetailCache) log(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger.With("component", "detail_cache")
	}
	if c.logger != nil {
		return c.logger.With("component", "detail_cache")
	}
	return slog.New(slog.DiscardHandler)
}
