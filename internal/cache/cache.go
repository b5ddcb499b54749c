// Package cache stores JSON-encoded report results in Redis. Redis failures
// degrade to cache misses so reads always fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockroom/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default cache settings.
const (
	DefaultTTL    = 30 * time.Second
	DefaultPrefix = "stockroom:report:"

	generationKey = "generation"
)

// Cache is a JSON value cache.
type Cache interface {
	// Get decodes the value under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) bool

	// Set stores value under key with the configured TTL.
	Set(ctx context.Context, key string, value any) error

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string) error

	// Generation returns the current entry generation, 0 before the first bump.
	Generation(ctx context.Context) (int64, error)

	// NextGeneration advances the generation. Entries written under an older
	// generation are never read again and expire with their TTL.
	NextGeneration(ctx context.Context) (int64, error)
}

// redisCache implements Cache on a Redis client.
type redisCache struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option customises a Redis cache.
type Option func(*redisCache)

// WithTTL sets the expiry of cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *redisCache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *redisCache) {
		c.prefix = prefix
	}
}

// WithMetrics records hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *redisCache) {
		c.metrics = m
	}
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client, logger zerolog.Logger, opts ...Option) Cache {
	c := &redisCache{
		client: client,
		ttl:    DefaultTTL,
		prefix: DefaultPrefix,
		logger: logger.With().Str("component", "report_cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) bool {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		c.metrics.CacheLookup(false)
		return false
	}

	if err := json.Unmarshal(val, dest); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt cache entry")
		c.metrics.CacheLookup(false)
		return false
	}

	c.metrics.CacheLookup(true)
	return true
}

func (c *redisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefix + key
	}

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}

	return nil
}

func (c *redisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.prefix+generationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (c *redisCache) NextGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Incr(ctx, c.prefix+generationKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to advance cache generation: %w", err)
	}
	return gen, nil
}

type nopCache struct{}

// NewNop returns a Cache that never stores anything.
func NewNop() Cache {
	return nopCache{}
}

func (nopCache) Get(context.Context, string, any) bool   { return false }
func (nopCache) Set(context.Context, string, any) error  { return nil }
func (nopCache) Delete(context.Context, ...string) error { return nil }

func (nopCache) Generation(context.Context) (int64, error)     { return 0, nil }
func (nopCache) NextGeneration(context.Context) (int64, error) { return 0, nil }
