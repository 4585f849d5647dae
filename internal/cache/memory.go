package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps recently served analysis payloads in process so a
// repeat lookup of the same root tweet skips both sqlite and the
// archive. Entries expire on their own TTL.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates the in-process layer. Expired analyses are
// purged every cleanupInterval.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns the analysis payload cached under key.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores an analysis payload under key for ttl.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete drops the payload cached under key.
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear drops every cached analysis.
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
