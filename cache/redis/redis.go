package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitabwire/messageformat/cache"
	"github.com/pitabwire/messageformat/data"
)

// Cache is a Redis-backed RawCache.
type Cache struct {
	client *redis.Client
	maxAge time.Duration
}

const connectionTimeout = 5 * time.Second

// New connects to the server named by the DSN option and verifies it answers PING.
func New(ctx context.Context, opts ...cache.Option) (cache.RawCache, error) {
	cacheOpts := cache.NewOptions(opts...)

	dsn := cacheOpts.DSN
	if dsn.IsValkey() {
		dsn = dsn.WithScheme(data.RedisScheme)
	}

	redisOpts, err := redis.ParseURL(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("redis cache: parse dsn: %w", err)
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", redisOpts.Addr, pingErr)
	}

	return &Cache{
		client: client,
		maxAge: cacheOpts.MaxAge,
	}, nil
}

// Get retrieves an item from the cache.
func (rc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value under key. A non positive ttl falls back to the configured max age.
func (rc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.maxAge
	}
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes an item from the cache.
func (rc *Cache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

// Exists checks if a key exists in the cache.
func (rc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Flush clears the selected database.
func (rc *Cache) Flush(ctx context.Context) error {
	return rc.client.FlushDB(ctx).Err()
}

// Close closes the Redis connection.
func (rc *Cache) Close() error {
	return rc.client.Close()
}
