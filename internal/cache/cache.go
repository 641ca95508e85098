// Package cache wraps an in-process TTL cache behind the small
// get / set-with-expiry / invalidate contract the order service needs.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// AllOrdersKey is the single cache entry holding every persisted order.
// It is invalidated and repopulated after each write.
const AllOrdersKey = "all_orders"

// Cache is a thin wrapper around go-cache with a fixed default TTL.
type Cache struct {
	store      *gocache.Cache
	defaultTTL time.Duration
}

// New creates a cache whose entries live for defaultTTL unless overridden.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		store:      gocache.New(defaultTTL, 2*defaultTTL),
		defaultTTL: defaultTTL,
	}
}

// Get returns the value stored under key, if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set stores value under key with the given TTL. A non-positive TTL falls
// back to the cache default.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.store.Set(key, value, ttl)
}

// Invalidate removes key from the cache.
func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
}
