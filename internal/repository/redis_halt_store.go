package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/pkg/cache"
)

// haltState is the persisted halt flag. One JSON value under a single key
// keeps flag and reason atomic.
type haltState struct {
	Halted    bool      `json:"halted"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisHaltStore persists the emergency-stop flag in Redis so a halt
// survives process restarts. A missing key reads as not halted; a store
// error is returned as-is and the caller decides what an unreadable flag
// means.
type RedisHaltStore struct {
	cache cache.Service
	key   string
}

// NewRedisHaltStore creates a Redis-backed halt store.
func NewRedisHaltStore(c cache.Service, key string) repository.HaltStore {
	return &RedisHaltStore{cache: c, key: key}
}

func (s *RedisHaltStore) Get(ctx context.Context) (bool, string, error) {
	var st haltState
	err := s.cache.Get(ctx, s.key, &st)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("read halt flag: %w", err)
	}
	return st.Halted, st.Reason, nil
}

func (s *RedisHaltStore) Set(ctx context.Context, halted bool, reason string) error {
	st := haltState{Halted: halted, Reason: reason, UpdatedAt: time.Now().UTC()}
	// No TTL: the flag stays until an operator clears it.
	if err := s.cache.Set(ctx, s.key, st, 0); err != nil {
		return fmt.Errorf("write halt flag: %w", err)
	}
	return nil
}
