// Package cache wraps the Redis layer the pipeline touches: invalidation
// notifications for the article cache, and the per-source run lock.
//
// Cached article entries live under article:{source}:{slug} with a TTL owned
// by the reading side; the pipeline only ever deletes them. Invalidation is
// fire-and-forget: a failed delete is logged and the entry simply expires at
// its TTL.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the Redis-backed invalidation and locking client.
type Cache struct {
	client *redis.Client
	log    *slog.Logger
}

// New connects to Redis and verifies connectivity.
func New(addr, password string, db int, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &Cache{client: client, log: logger}, nil
}

// Close closes the underlying client.
func (c *Cache) Close() error { return c.client.Close() }

func articleKey(source, slug string) string {
	return "article:" + source + ":" + slug
}

// Invalidate drops the cached entry for one article. Errors are logged, not
// returned.
func (c *Cache) Invalidate(ctx context.Context, source, slug string) {
	if err := c.client.Del(ctx, articleKey(source, slug)).Err(); err != nil {
		c.log.Warn("cache invalidation failed", "source", source, "slug", slug, "error", err)
	}
}

// RunLock is the per-source sync lock. Acquire sets synclock:{source} with
// NX and a TTL so a crashed run cannot wedge the source forever.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// RunLock derives a lock handle sharing the cache's connection.
func (c *Cache) RunLock(ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunLock{client: c.client, ttl: ttl}
}

func lockKey(source string) string { return "synclock:" + source }

// Acquire attempts to take the lock; false means a run is already active.
func (l *RunLock) Acquire(ctx context.Context, source string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(source), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock for %s: %w", source, err)
	}
	return ok, nil
}

// Release drops the lock.
func (l *RunLock) Release(ctx context.Context, source string) {
	_ = l.client.Del(ctx, lockKey(source)).Err()
}
