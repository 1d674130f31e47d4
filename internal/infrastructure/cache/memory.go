package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
)

// memoryEntry is one stored payload with its expiry
type memoryEntry struct {
	payload   json.RawMessage
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL support
type MemoryCache struct {
	data  map[string]memoryEntry
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// MemoryOption customizes a MemoryCache
type MemoryOption func(*MemoryCache)

// WithMemoryClock replaces time.Now for expiry checks
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a new in-memory cache. A sweep goroutine removes expired
// entries every sweepInterval; pass 0 to disable it.
func NewMemoryCache(sweepInterval time.Duration, opts ...MemoryOption) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]memoryEntry),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cache)
	}

	if sweepInterval > 0 {
		go cache.sweepLoop(sweepInterval)
	}

	return cache
}

func spaceKey(space domain.CacheSpace, key string) string {
	return string(space) + "|" + key
}

// Get returns the entry under space/key, or ErrCacheMiss when absent or expired
func (c *MemoryCache) Get(ctx context.Context, space domain.CacheSpace, key string) (*domain.CacheEntry, error) {
	c.mutex.RLock()
	item, exists := c.data[spaceKey(space, key)]
	c.mutex.RUnlock()

	if !exists {
		return nil, domain.ErrCacheMiss
	}

	entry := &domain.CacheEntry{Key: key, Payload: item.payload, ExpiresAt: item.expiresAt}
	if !entry.ValidAt(c.now()) {
		return nil, domain.ErrCacheMiss
	}

	return entry, nil
}

// Put stores a copy of payload under space/key, replacing any previous entry
func (c *MemoryCache) Put(ctx context.Context, space domain.CacheSpace, key string, payload json.RawMessage, ttl time.Duration) error {
	stored := make(json.RawMessage, len(payload))
	copy(stored, payload)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[spaceKey(space, key)] = memoryEntry{
		payload:   stored,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}

// Sweep removes expired entries and returns how many were dropped
func (c *MemoryCache) Sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.data {
		if !now.Before(item.expiresAt) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// Close stops the sweep goroutine
func (c *MemoryCache) Close() {
	c.once.Do(func() {
		close(c.stop)
	})
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
