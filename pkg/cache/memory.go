package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// memoryItem is one cached value with its expiry and last-use time. The
// last-use time drives LRU eviction when the cache is full.
type memoryItem struct {
	value    interface{}
	expireAt time.Time
	lastUsed time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache is an in-process Service for tests and single-node runs.
// Entries past maxSize evict least-recently-used; a background ticker
// sweeps expired keys so idle entries do not linger until the next read.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
	sweeper *time.Ticker
	done    chan struct{}
}

// memoryDefaultTTL bounds entries stored without an explicit expiration.
const memoryDefaultTTL = 7 * 24 * time.Hour

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*memoryItem),
		maxSize: cfg.MaxSize,
		sweeper: time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go mc.sweepLoop()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	now := time.Now()
	if expiration <= 0 {
		expiration = memoryDefaultTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.items[key]; !exists && len(mc.items) >= mc.maxSize {
		mc.evictOldest()
	}
	mc.items[key] = &memoryItem{value: value, expireAt: now.Add(expiration), lastUsed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	item, ok := mc.items[key]
	if !ok || item.expired(now) {
		if ok {
			delete(mc.items, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	item.lastUsed = now
	value := item.value
	mc.mu.Unlock()

	return assignValue(value, dest)
}

// assignValue copies a stored value into a typed destination, falling back
// to a JSON round-trip so struct destinations behave like the Redis
// backend's decode path.
func assignValue(value, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		if s, ok := value.(string); ok {
			*d = s
			return nil
		}
	case *interface{}:
		*d = value
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode cached value: %w", err)
	}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

// DeleteByPattern drops everything. The in-process cache has no key
// scanner; a full flush over-invalidates but never serves stale data.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.items = make(map[string]*memoryItem)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if item, ok := mc.items[key]; ok && !item.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.items[key]
	if !ok || item.expired(now) {
		mc.items[key] = &memoryItem{value: int64(1), expireAt: now.Add(memoryDefaultTTL), lastUsed: now}
		return 1, nil
	}
	val, ok := item.value.(int64)
	if !ok {
		return 0, fmt.Errorf("increment on non-counter key %q", key)
	}
	item.value = val + 1
	item.lastUsed = now
	return val + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if item, ok := mc.items[key]; ok {
		item.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	out := make(map[string]string)
	for _, key := range keys {
		item, ok := mc.items[key]
		if !ok || item.expired(now) {
			continue
		}
		if s, ok := item.value.(string); ok {
			out[key] = s
			continue
		}
		if b, err := json.Marshal(item.value); err == nil {
			out[key] = string(b)
		}
	}
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if item, ok := mc.items[key]; ok && !item.expired(now) {
		return false, nil
	}
	mc.items[key] = &memoryItem{value: "locked", expireAt: now.Add(ttl), lastUsed: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest removes the least-recently-used entry. Caller holds the lock.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, item := range mc.items {
		if oldestKey == "" || item.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.lastUsed
		}
	}
	if oldestKey != "" {
		delete(mc.items, oldestKey)
	}
}

func (mc *MemoryCache) sweepLoop() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.sweeper.C:
			now := time.Now()
			mc.mu.Lock()
			for key, item := range mc.items {
				if item.expired(now) {
					delete(mc.items, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine.
func (mc *MemoryCache) Close() error {
	mc.sweeper.Stop()
	select {
	case <-mc.done:
	default:
		close(mc.done)
	}
	return nil
}
