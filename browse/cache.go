package browse

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultCacheTTL is how long store reads are served from memory.
const DefaultCacheTTL = 15 * time.Minute

// cache holds decoded store reads. A non-positive TTL disables it.
type cache struct {
	items *ristretto.Cache[string, any]
	ttl   time.Duration
}

func newCache(ttl time.Duration) (*cache, error) {
	items, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 100_000,
		MaxCost:     512 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &cache{items: items, ttl: ttl}, nil
}

func (c *cache) get(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	return c.items.Get(key)
}

// set stores value with the given cost in bytes and waits until it is
// visible to readers.
func (c *cache) set(key string, value any, cost int64) {
	if c.ttl <= 0 {
		return
	}
	c.items.SetWithTTL(key, value, max(cost, 1), c.ttl)
	c.items.Wait()
}

func (c *cache) close() {
	c.items.Close()
}

// cached returns the value under key, calling load on a miss.
// Errors are never cached.
func cached[T any](c *cache, key string, load func() (T, int64, error)) (T, error) {
	if v, ok := c.get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, cost, err := load()
	if err != nil {
		return v, err
	}
	c.set(key, v, cost)
	return v, nil
}
