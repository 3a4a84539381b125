package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/pitabwire/messageformat/cache"
	"github.com/pitabwire/messageformat/data"
)

// Cache is a Valkey-backed RawCache using the official Valkey client.
type Cache struct {
	client valkey.Client
	maxAge time.Duration
}

const connectionTimeout = 5 * time.Second

// New connects to the server named by the DSN option. Both valkey:// and
// redis:// DSNs are accepted.
func New(ctx context.Context, opts ...cache.Option) (cache.RawCache, error) {
	cacheOpts := cache.NewOptions(opts...)

	dsn := cacheOpts.DSN
	if dsn.IsValkey() {
		dsn = dsn.WithScheme(data.RedisScheme)
	}

	valkeyOpts, err := valkey.ParseURL(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("valkey cache: parse dsn: %w", err)
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("valkey cache: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if pingErr := client.Do(pingCtx, client.B().Ping().Build()).Error(); pingErr != nil {
		client.Close()
		return nil, fmt.Errorf("valkey cache: ping: %w", pingErr)
	}

	return &Cache{
		client: client,
		maxAge: cacheOpts.MaxAge,
	}, nil
}

// Get retrieves an item from the cache.
func (vc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp := vc.client.Do(ctx, vc.client.B().Get().Key(key).Build())

	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	val, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}

	return val, true, nil
}

// Set stores value under key. A non positive ttl falls back to the configured max age.
func (vc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = vc.maxAge
	}

	var cmd valkey.Completed
	if ttl > 0 {
		// EX takes whole seconds
		seconds := max(int64(ttl.Seconds()), 1)
		cmd = vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).ExSeconds(seconds).Build()
	} else {
		cmd = vc.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()
	}

	return vc.client.Do(ctx, cmd).Error()
}

// Delete removes an item from the cache.
func (vc *Cache) Delete(ctx context.Context, key string) error {
	return vc.client.Do(ctx, vc.client.B().Del().Key(key).Build()).Error()
}

// Exists checks if a key exists in the cache.
func (vc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	resp := vc.client.Do(ctx, vc.client.B().Exists().Key(key).Build())

	if err := resp.Error(); err != nil {
		return false, err
	}

	count, err := resp.AsInt64()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Flush clears the selected database.
func (vc *Cache) Flush(ctx context.Context) error {
	return vc.client.Do(ctx, vc.client.B().Flushdb().Build()).Error()
}

// Close closes the Valkey connection.
func (vc *Cache) Close() error {
	vc.client.Close()
	return nil
}
