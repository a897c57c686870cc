package cache

import "time"

// BytesCache stores serialized signal payloads under string keys with a
// per-entry TTL. Implementations must be safe for concurrent use; the
// pipeline reads from several gates at once.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
