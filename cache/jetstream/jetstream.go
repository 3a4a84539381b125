package jetstream

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/zeebo/blake3"

	"github.com/pitabwire/messageformat/cache"
)

// Cache is a RawCache on top of a NATS JetStream KeyValue bucket.
//
// JetStream keys only allow a restricted alphabet, so every key is stored
// under the hex encoded blake3 digest of the caller's key.
type Cache struct {
	conn   *nats.Conn
	bucket nats.KeyValue
}

// New connects to NATS and opens (or creates) the bucket named by the Name option.
// The bucket TTL is the configured max age; per item TTLs are not supported.
func New(_ context.Context, opts ...cache.Option) (cache.RawCache, error) {
	cacheOpts := cache.NewOptions(opts...)

	natsConn, err := nats.Connect(cacheOpts.DSN.String())
	if err != nil {
		return nil, fmt.Errorf("jetstream cache: connect: %w", err)
	}

	js, err := natsConn.JetStream()
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("jetstream cache: context: %w", err)
	}

	bucket, err := js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket: cacheOpts.Name,
		TTL:    cacheOpts.MaxAge,
	})
	if err != nil {
		var apiErr *nats.APIError
		if !errors.As(err, &apiErr) || apiErr.ErrorCode != nats.JSErrCodeStreamNameInUse {
			natsConn.Close()
			return nil, fmt.Errorf("jetstream cache: create bucket %q: %w", cacheOpts.Name, err)
		}

		bucket, err = js.KeyValue(cacheOpts.Name)
		if err != nil {
			natsConn.Close()
			return nil, fmt.Errorf("jetstream cache: open bucket %q: %w", cacheOpts.Name, err)
		}
	}

	if _, err = bucket.Status(); err != nil {
		natsConn.Close()
		return nil, err
	}

	return &Cache{
		conn:   natsConn,
		bucket: bucket,
	}, nil
}

// Key maps an arbitrary cache key onto the JetStream key alphabet.
func Key(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Get retrieves an item from the cache.
func (jc *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, err := jc.bucket.Get(Key(key))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return entry.Value(), true, nil
}

// Set stores value under key; ttl is governed by the bucket.
func (jc *Cache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	_, err := jc.bucket.Put(Key(key), value)
	return err
}

// Delete removes an item from the cache.
func (jc *Cache) Delete(_ context.Context, key string) error {
	return jc.bucket.Delete(Key(key))
}

// Exists checks if a key exists in the cache.
func (jc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := jc.Get(ctx, key)
	return found, err
}

// Flush clears all items from the bucket.
func (jc *Cache) Flush(_ context.Context) error {
	keys, err := jc.bucket.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return err
	}

	for _, key := range keys {
		if err = jc.bucket.Delete(key); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the NATS connection.
func (jc *Cache) Close() error {
	jc.conn.Close()
	return nil
}
