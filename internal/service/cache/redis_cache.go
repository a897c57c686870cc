package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBytesCache implements BytesCache over a shared Redis client.
type RedisBytesCache struct {
	cli *redis.Client
}

func NewRedisBytesCache(cli *redis.Client) *RedisBytesCache {
	return &RedisBytesCache{cli: cli}
}

func (r *RedisBytesCache) GetBytes(key string) ([]byte, bool, error) {
	b, err := r.cli.Get(context.Background(), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisBytesCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	if err := r.cli.Set(context.Background(), key, value, ttl).Err(); err != nil {
		return err
	}
	return nil
}
