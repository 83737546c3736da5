package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache is a read-through-friendly TTL cache for values that don't need
// single-flight collapsing (a redundant fetch on a miss is acceptable):
// the fee memo and the BlockChair confirmed-transaction memo.
type TTLCache struct {
	c *gocache.Cache
}

// NewTTLCache builds a TTLCache with a fixed per-entry TTL and a janitor
// that sweeps expired entries at cleanupInterval.
func NewTTLCache(ttl, cleanupInterval time.Duration) *TTLCache {
	return &TTLCache{c: gocache.New(ttl, cleanupInterval)}
}

// Get returns the cached value for key, if present and unexpired.
func (t *TTLCache) Get(key string) (any, bool) {
	return t.c.Get(key)
}

// Set stores value for key under the cache's default TTL.
func (t *TTLCache) Set(key string, value any) {
	t.c.SetDefault(key, value)
}

// SetTTL stores value for key under an explicit TTL, overriding the
// cache's default (used for the BlockChair memo's long, data-specific TTL).
func (t *TTLCache) SetTTL(key string, value any, ttl time.Duration) {
	t.c.Set(key, value, ttl)
}
