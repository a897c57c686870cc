package cache

import (
	"sync"
	"time"
)

type ttlEntry struct {
	b   []byte
	exp time.Time
}

// TTLCache is an in-process BytesCache for single-node deployments and
// tests. Expired entries are dropped lazily on read and swept whenever the
// map grows past sweepAt, so an idle key set cannot grow without bound.
type TTLCache struct {
	mu      sync.RWMutex
	m       map[string]ttlEntry
	sweepAt int
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]ttlEntry), sweepAt: 1024}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the key since the read.
		if cur, still := c.m[key]; still && !cur.exp.IsZero() && time.Now().After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	if len(c.m) >= c.sweepAt {
		c.sweep()
	}
	c.m[key] = ttlEntry{b: value, exp: exp}
	c.mu.Unlock()
	return nil
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// sweep removes every expired entry. Caller holds the write lock.
func (c *TTLCache) sweep() {
	now := time.Now()
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
}
