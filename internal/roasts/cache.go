package roasts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"roast-backend/internal/shared/telemetry"
)

const (
	countCacheKey = "roasts:count"
	countGenKey   = "roasts:count:gen"
)

type cacheClient interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// CountCache is a read-through Redis cache in front of Repo.Count. Cached
// counts are stamped with a generation that every insert bumps, so a count
// computed before an insert is never served after it. Redis failures fall
// through to the underlying repo.
type CountCache struct {
	Repo
	client cacheClient
	ttl    time.Duration
}

// NewCountCache wraps repo. A zero ttl defaults to 30s.
func NewCountCache(repo Repo, client *redis.Client, ttl time.Duration) *CountCache {
	return newCountCache(repo, client, ttl)
}

func newCountCache(repo Repo, client cacheClient, ttl time.Duration) *CountCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CountCache{Repo: repo, client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Count serves the cached value when its generation is current.
func (c *CountCache) Count(ctx context.Context) (int64, error) {
	gen := "0"
	vals, getErr := c.client.MGet(ctx, countGenKey, countCacheKey).Result()
	if getErr != nil {
		telemetry.Warn("roasts.count_cache.get_failed", map[string]any{"error": getErr.Error()})
	} else if len(vals) == 2 {
		if g, ok := vals[0].(string); ok {
			gen = g
		}
		if cached, ok := vals[1].(string); ok {
			if n, ok := parseStamped(cached, gen); ok {
				return n, nil
			}
		}
	}

	n, err := c.Repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if getErr != nil {
		return n, nil
	}
	value := gen + ":" + strconv.FormatInt(n, 10)
	if err := c.client.Set(ctx, countCacheKey, value, c.ttl).Err(); err != nil {
		telemetry.Warn("roasts.count_cache.set_failed", map[string]any{"error": err.Error()})
	}
	return n, nil
}

// Insert writes through and moves the cache to a new generation.
func (c *CountCache) Insert(ctx context.Context, roast NewRoast) (Record, error) {
	rec, err := c.Repo.Insert(ctx, roast)
	if err != nil {
		return Record{}, err
	}
	if err := c.client.Incr(ctx, countGenKey).Err(); err != nil {
		telemetry.Warn("roasts.count_cache.bump_failed", map[string]any{"error": err.Error()})
	}
	return rec, nil
}

// parseStamped reads a "<gen>:<count>" value written for generation gen.
func parseStamped(raw, gen string) (int64, bool) {
	stamp, count, ok := strings.Cut(raw, ":")
	if !ok || stamp != gen {
		return 0, false
	}
	n, err := strconv.ParseInt(count, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
