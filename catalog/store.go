package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/pitabwire/messageformat/cache"
	"github.com/pitabwire/messageformat/cache/jetstream"
	"github.com/pitabwire/messageformat/cache/redis"
	"github.com/pitabwire/messageformat/cache/valkey"
)

// Store is the shared key/value store parsed catalogs are kept in.
type Store interface {
	HasItem(ctx context.Context, key string) (bool, error)
	GetItem(ctx context.Context, key string) (Catalog, error)
	SetItem(ctx context.Context, key string, c Catalog) error
}

// CacheStore adapts a cache.RawCache into a Store.
type CacheStore struct {
	items cache.Cache[string, Catalog]
	ttl   time.Duration
}

// NewCacheStore wraps raw; catalogs are written with ttl (zero keeps them
// for the backend's default lifetime).
func NewCacheStore(raw cache.RawCache, ttl time.Duration) *CacheStore {
	return &CacheStore{
		items: cache.NewGenericCache[string, Catalog](raw, nil),
		ttl:   ttl,
	}
}

// NewMemoryStore returns a process local store.
func NewMemoryStore() *CacheStore {
	return NewCacheStore(cache.NewInMemoryCache(), 0)
}

// OpenStore builds a store on the backend selected by the DSN scheme:
// mem://, redis://, valkey:// or nats://.
func OpenStore(ctx context.Context, opts ...cache.Option) (*CacheStore, error) {
	cacheOpts := cache.NewOptions(opts...)

	var (
		raw cache.RawCache
		err error
	)

	dsn := cacheOpts.DSN
	switch {
	case dsn.IsMem():
		raw = cache.NewInMemoryCache()
	case dsn.IsRedis():
		raw, err = redis.New(ctx, opts...)
	case dsn.IsValkey():
		raw, err = valkey.New(ctx, opts...)
	case dsn.IsNats():
		raw, err = jetstream.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStore, dsn.Scheme())
	}
	if err != nil {
		return nil, err
	}

	return NewCacheStore(raw, cacheOpts.MaxAge), nil
}

func (s *CacheStore) HasItem(ctx context.Context, key string) (bool, error) {
	return s.items.Exists(ctx, key)
}

func (s *CacheStore) GetItem(ctx context.Context, key string) (Catalog, error) {
	c, found, err := s.items.Get(ctx, key)
	if err != nil {
		return Catalog{}, err
	}
	if !found {
		return Catalog{}, fmt.Errorf("%w: %s", ErrNotCached, key)
	}
	return c, nil
}

func (s *CacheStore) SetItem(ctx context.Context, key string, c Catalog) error {
	return s.items.Set(ctx, key, c, s.ttl)
}

// Close releases the underlying cache.
func (s *CacheStore) Close() error {
	return s.items.Close()
}
