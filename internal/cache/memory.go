package cache

import (
	"context"
	"sync"
	"time"

	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/utils"
)

type memoryEntry struct {
	result    downsampling.AggregationResult
	expiresAt time.Time
}

// MemoryCache keeps results in process with a TTL and a cleanup goroutine
type MemoryCache struct {
	counters

	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a memory cache. Expired entries are swept every cleanupInterval.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = utils.DefaultCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup(cleanupInterval)

	return c
}

// Get implements Cache
func (c *MemoryCache) Get(_ context.Context, key Key) (downsampling.AggregationResult, bool, error) {
	c.mu.RLock()
	entry, exists := c.entries[key.String()]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		c.record(false)
		return downsampling.AggregationResult{}, false, nil
	}

	c.record(true)
	return entry.result, true, nil
}

// Set implements Cache
func (c *MemoryCache) Set(_ context.Context, key Key, res downsampling.AggregationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key.String()] = &memoryEntry{
		result:    res,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats implements Cache
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Type:    string(utils.CacheTypeMemory),
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired(time.Now())
		case <-c.stopCh:
			return
		}
	}
}

func (c *MemoryCache) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
