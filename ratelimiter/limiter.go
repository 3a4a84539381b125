package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBurstSize       = 20
	defaultCleanupInterval = 5 * time.Minute
	defaultEntryTTL        = 10 * time.Minute
	defaultMaxEntries      = 100000
)

// Config defines token bucket limiter settings. A RequestsPerSecond of zero
// or less disables limiting.
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	EntryTTL          time.Duration
	MaxEntries        int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

// KeyedLimiter applies token bucket limits independently per key, usually the
// client address.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*limiterEntry
	config  Config

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewKeyedLimiter creates a limiter and starts the idle entry cleanup. It
// returns nil when cfg disables limiting; a nil limiter allows everything.
func NewKeyedLimiter(cfg Config) *KeyedLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = defaultBurstSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = defaultEntryTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}

	kl := &KeyedLimiter{
		entries: make(map[string]*limiterEntry),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	go kl.cleanupLoop()
	return kl
}

// Allow consumes a token for key, reporting whether one was available.
func (k *KeyedLimiter) Allow(key string) bool {
	if k == nil {
		return true
	}
	if key == "" {
		key = "unknown"
	}

	entry := k.entry(key)
	entry.lastAccess.Store(time.Now().UnixNano())
	return entry.limiter.Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	if k == nil {
		return 0
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// Close stops the cleanup goroutine.
func (k *KeyedLimiter) Close() error {
	if k == nil {
		return nil
	}
	k.stopOnce.Do(func() {
		close(k.stopCh)
	})
	return nil
}

func (k *KeyedLimiter) entry(key string) *limiterEntry {
	k.mu.RLock()
	entry, found := k.entries[key]
	k.mu.RUnlock()
	if found {
		return entry
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	entry, found = k.entries[key]
	if found {
		return entry
	}

	entry = &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(k.config.RequestsPerSecond), k.config.BurstSize),
	}
	entry.lastAccess.Store(time.Now().UnixNano())
	k.entries[key] = entry

	k.evictOldestLocked()
	return entry
}

func (k *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(k.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.cleanupExpired()
		case <-k.stopCh:
			return
		}
	}
}

func (k *KeyedLimiter) cleanupExpired() {
	cutoff := time.Now().Add(-k.config.EntryTTL).UnixNano()

	k.mu.Lock()
	defer k.mu.Unlock()

	for key, entry := range k.entries {
		if entry.lastAccess.Load() < cutoff {
			delete(k.entries, key)
		}
	}
}

func (k *KeyedLimiter) evictOldestLocked() {
	for len(k.entries) > k.config.MaxEntries {
		oldestKey := ""
		oldest := time.Now().UnixNano()
		for key, entry := range k.entries {
			if last := entry.lastAccess.Load(); last <= oldest {
				oldest = last
				oldestKey = key
			}
		}

		if oldestKey == "" {
			return
		}
		delete(k.entries, oldestKey)
	}
}
