package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/pkg/cache"
)

// fakeCache is an in-memory stand-in for the Redis cache. failing makes
// every call error so the fail paths are reachable.
type fakeCache struct {
	data    map[string]string
	failing bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.failing {
		return errors.New("connection refused")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = string(b)
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	if f.failing {
		return errors.New("connection refused")
	}
	raw, ok := f.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCache) DeleteByPattern(context.Context, string) error { return nil }

func (f *fakeCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		if _, ok := f.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeCache) Increment(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeCache) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}

func (f *fakeCache) MSet(context.Context, map[string]interface{}, time.Duration) error { return nil }

func (f *fakeCache) MGet(context.Context, ...string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *fakeCache) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.failing {
		return false, errors.New("connection refused")
	}
	if _, held := f.data["lock:"+key]; held {
		return false, nil
	}
	f.data["lock:"+key] = "1"
	return true, nil
}

func (f *fakeCache) Unlock(_ context.Context, key string) error {
	delete(f.data, "lock:"+key)
	return nil
}

func TestHaltStoreMissingKeyReadsNotHalted(t *testing.T) {
	store := NewRedisHaltStore(newFakeCache(), "tradepipe:halted")

	halted, reason, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, halted)
	assert.Empty(t, reason)
}

func TestHaltStoreRoundTrip(t *testing.T) {
	store := NewRedisHaltStore(newFakeCache(), "tradepipe:halted")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, true, "manual stop"))

	halted, reason, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, halted)
	assert.Equal(t, "manual stop", reason)

	require.NoError(t, store.Set(ctx, false, ""))

	halted, reason, err = store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, halted)
	assert.Empty(t, reason)
}

func TestHaltStoreSurfacesBackendErrors(t *testing.T) {
	fc := newFakeCache()
	fc.failing = true
	store := NewRedisHaltStore(fc, "tradepipe:halted")

	_, _, err := store.Get(context.Background())
	assert.Error(t, err)

	err = store.Set(context.Background(), true, "manual stop")
	assert.Error(t, err)
}
