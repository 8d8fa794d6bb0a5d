// Package cache holds short-lived API read results in memory, backed by
// patrickmn/go-cache. Writes through the API flush it.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a TTL cache of API read results.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries expire after ttl; expired entries are
// purged every cleanup interval.
func New(ttl, cleanup time.Duration) *Cache {
	return &Cache{store: gocache.New(ttl, cleanup)}
}

// Get returns a cached value.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Remember returns the cached value for key, loading and storing it on a
// miss. Failed loads are not cached.
func (c *Cache) Remember(key string, load func() (any, error)) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.store.Set(key, v, gocache.DefaultExpiration)
	return v, nil
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Flush removes every entry.
func (c *Cache) Flush() {
	c.store.Flush()
}

// ItemCount returns the number of entries, including expired ones not yet purged.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
