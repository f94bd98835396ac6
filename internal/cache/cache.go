// Package cache provides the in-memory key-value cache used as the
// alert mirror for dashboard polling and as a monitored subsystem for
// the cache collector.
package cache

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 1 * time.Minute

// Cache defines the interface for cache operations
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
	GetStats() Stats
}

// Stats holds cache statistics
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
}

// MemoryCache implements an in-memory cache with TTL support
type MemoryCache struct {
	mu      sync.RWMutex
	data    map[string]*entry
	maxSize int

	hits      int64
	misses    int64
	evictions int64

	ctx    context.Context
	cancel context.CancelFunc
}

// entry is a cached value with expiry metadata
type entry struct {
	value       interface{}
	expiresAt   time.Time
	createdAt   time.Time
	accessCount int64
}

// NewMemoryCache creates a new in-memory cache and starts its expired
// entry cleanup loop.
func NewMemoryCache(maxSize int) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())

	c := &MemoryCache{
		data:    make(map[string]*entry),
		maxSize: maxSize,
		ctx:     ctx,
		cancel:  cancel,
	}
	go c.cleanupLoop()

	return c
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.data[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		delete(c.data, key)
		c.misses++
		return nil, false
	}

	item.accessCount++
	c.hits++
	return item.value, true
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictColdest()
	}

	c.data[key] = &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
		createdAt: time.Now(),
	}
}

// Delete removes a key from the cache
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*entry)
}

// GetStats returns cache statistics
func (c *MemoryCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.data),
		MaxSize:   c.maxSize,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// evictColdest removes the least accessed entry, oldest first on ties;
// caller must hold c.mu.
func (c *MemoryCache) evictColdest() {
	var coldestKey string
	var coldestTime time.Time
	var lowestAccess int64 = -1

	for key, item := range c.data {
		if lowestAccess == -1 || item.accessCount < lowestAccess {
			coldestKey = key
			lowestAccess = item.accessCount
			coldestTime = item.createdAt
		} else if item.accessCount == lowestAccess && item.createdAt.Before(coldestTime) {
			coldestKey = key
			coldestTime = item.createdAt
		}
	}

	if coldestKey != "" {
		delete(c.data, coldestKey)
		c.evictions++
	}
}

// cleanupLoop removes expired entries periodically
func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.data {
		if now.After(item.expiresAt) {
			delete(c.data, key)
			c.evictions++
		}
	}
}

// Close stops the cache cleanup loop
func (c *MemoryCache) Close() {
	c.cancel()
}
