package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// Keyspace names a family of keys sharing a prefix and a default lifetime
type Keyspace struct {
	Prefix string
	TTL    time.Duration
}

var (
	// Single events by id, dropped on every event write
	EventKeyspace = Keyspace{Prefix: "event:", TTL: 2 * time.Minute}

	// Resolved roles, dropped on sign-in and sign-out
	RoleKeyspace = Keyspace{Prefix: "role:", TTL: 15 * time.Minute}

	// Revoked bearer tokens. The TTL only applies when the token has no expiry.
	RevokedKeyspace = Keyspace{Prefix: "revoked:", TTL: 24 * time.Hour}

	// Per-event registration counts
	StatsKeyspace = Keyspace{Prefix: "stats:", TTL: time.Minute}
)

// CacheHelper scopes redis operations to one keyspace. A helper built
// around a nil client turns writes into no-ops and reads into
// ErrCacheNotAvailable.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

func (c *CacheHelper) raw(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}

	value, err := c.client.Get(ctx, c.GetCacheKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheNotFound
	case err != nil:
		// the key is left out so user ids never reach the logs through wrapped errors
		return "", fmt.Errorf("cache read in %q: %w", c.prefix, err)
	}
	return value, nil
}

// Get decodes the JSON stored under key into dest
func (c *CacheHelper) Get(ctx context.Context, key string, dest any) error {
	value, err := c.raw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("cache decode in %q: %w", c.prefix, err)
	}
	return nil
}

// Set stores value as JSON
func (c *CacheHelper) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode in %q: %w", c.prefix, err)
	}
	return c.SetString(ctx, key, string(data), ttl)
}

func (c *CacheHelper) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.GetCacheKey(key), value, ttl).Err()
}

func (c *CacheHelper) GetString(ctx context.Context, key string) (string, error) {
	return c.raw(ctx, key)
}

// Delete removes keys and bumps the keyspace generation so that fills
// loaded before the delete are dropped.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, c.GetCacheKey(key))
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full...)
		pipe.Incr(ctx, c.genKey())
		return nil
	})
	return err
}

func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	n, err := c.client.Exists(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists in %q: %w", c.prefix, err)
	}
	return n > 0, nil
}

// InvalidatePattern deletes every key in the keyspace matching pattern.
// Keys are found with SCAN and removed in pipelined batches. The keyspace
// generation is bumped even when nothing matched, since a fill may be in flight.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	const batchSize = 100
	pipe := c.client.Pipeline()
	batch := make([]string, 0, batchSize)
	flush := func() {
		if len(batch) > 0 {
			pipe.Del(ctx, batch...)
			batch = make([]string, 0, batchSize)
		}
	}

	iter := c.client.Scan(ctx, 0, c.GetCacheKey(pattern), batchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			flush()
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan in %q: %w", c.prefix, err)
	}
	flush()
	pipe.Incr(ctx, c.genKey())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache delete in %q: %w", c.prefix, err)
	}
	return nil
}

// genKey counts invalidations in the keyspace. It sits outside the
// key patterns callers invalidate.
func (c *CacheHelper) genKey() string {
	return c.prefix + "~gen"
}

func (c *CacheHelper) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// setIfGeneration stores value only while the keyspace generation is still gen
func (c *CacheHelper) setIfGeneration(ctx context.Context, key string, value any, ttl time.Duration, gen string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode in %q: %w", c.prefix, err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.genKey()).Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = "0"
		case err != nil:
			return err
		}
		if current != gen {
			return errInvalidatedDuringLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.GetCacheKey(key), data, ttl)
			return nil
		})
		return err
	}, c.genKey())
	if errors.Is(err, errInvalidatedDuringLoad) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

var errInvalidatedDuringLoad = errors.New("keyspace invalidated during load")

// ReadThrough returns the cached value under key, or calls load and caches
// its result. A result is not cached when the keyspace was invalidated while
// load ran, so a row read before a commit cannot outlive that commit's
// invalidation. Cache failures never fail the read.
func ReadThrough[T any](ctx context.Context, c *CacheHelper, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if errors.Is(err, ErrCacheNotAvailable) {
		return load()
	}
	if !errors.Is(err, ErrCacheNotFound) {
		slog.WarnContext(ctx, "Cache read failed, loading from store", "error", err, "keyspace", c.prefix)
	}

	gen, genErr := c.generation(ctx)

	value, err := load()
	if err != nil || genErr != nil {
		return value, err
	}

	if err := c.setIfGeneration(ctx, key, value, ttl, gen); err != nil {
		logCacheError(ctx, "Cache write failed", err, "keyspace", c.prefix)
	}
	return value, nil
}

// CacheManager holds one helper per keyspace
type CacheManager struct {
	Event   *CacheHelper
	Role    *CacheHelper
	Session *CacheHelper
	Stats   *CacheHelper

	client *redis.Client
}

// NewCacheManager accepts a nil client; every helper then degrades to a no-op cache.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Event:   NewCacheHelper(client, EventKeyspace.Prefix),
		Role:    NewCacheHelper(client, RoleKeyspace.Prefix),
		Session: NewCacheHelper(client, RevokedKeyspace.Prefix),
		Stats:   NewCacheHelper(client, StatsKeyspace.Prefix),
		client:  client,
	}
}

func (cm *CacheManager) Available() bool {
	return cm.client != nil
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
