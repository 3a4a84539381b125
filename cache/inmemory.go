package cache

import (
	"context"
	"sync"
	"time"
)

// inMemoryCacheItem represents a cache item with expiration.
type inMemoryCacheItem struct {
	value      []byte
	expiration time.Time
}

// isExpired checks if the item has expired.
func (i *inMemoryCacheItem) isExpired() bool {
	if i.expiration.IsZero() {
		return false
	}
	return time.Now().After(i.expiration)
}

// InMemoryCache is a process local RawCache. It is safe for concurrent use
// and is the default store catalogs are shared through.
type InMemoryCache struct {
	items      sync.Map // map[string]*inMemoryCacheItem
	cleanupMu  sync.Mutex
	stopClean  chan struct{}
	cleanupInt time.Duration
}

const defaultCleanupInterval = 5 * time.Minute

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache() RawCache {
	c := &InMemoryCache{
		stopClean:  make(chan struct{}),
		cleanupInt: defaultCleanupInterval,
	}

	go c.startCleanup()

	return c
}

// startCleanup periodically removes expired items.
func (c *InMemoryCache) startCleanup() {
	ticker := time.NewTicker(c.cleanupInt)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopClean:
			return
		}
	}
}

func (c *InMemoryCache) cleanup() {
	c.items.Range(func(key, value any) bool {
		item, ok := value.(*inMemoryCacheItem)
		if ok && item.isExpired() {
			c.items.Delete(key)
		}
		return true
	})
}

// Get retrieves an item from the cache.
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.items.Load(key)
	if !ok {
		return nil, false, nil
	}

	item, ok := value.(*inMemoryCacheItem)
	if !ok || item.isExpired() {
		c.items.Delete(key)
		return nil, false, nil
	}

	return item.value, true, nil
}

// Set stores value under key. A ttl of zero keeps the item until it is
// deleted or the cache is flushed.
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := &inMemoryCacheItem{
		value: value,
	}

	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	c.items.Store(key, item)
	return nil
}

// Delete removes an item from the cache.
func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Exists checks if a key exists in the cache.
func (c *InMemoryCache) Exists(_ context.Context, key string) (bool, error) {
	value, ok := c.items.Load(key)
	if !ok {
		return false, nil
	}

	if cachedItem, itemOK := value.(*inMemoryCacheItem); itemOK && cachedItem.isExpired() {
		c.items.Delete(key)
		return false, nil
	}

	return true, nil
}

// Flush clears all items from the cache.
func (c *InMemoryCache) Flush(_ context.Context) error {
	c.items.Clear()
	return nil
}

// Close stops the cleanup goroutine. Items stay readable after Close.
func (c *InMemoryCache) Close() error {
	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()

	select {
	case <-c.stopClean:
		return nil
	default:
		close(c.stopClean)
	}

	return nil
}
