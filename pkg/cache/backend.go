package cache

import (
	"context"
	"time"
)

// Backend is the storage substrate of a Store.
type Backend interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// Get returns the stored bytes or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. ttl > 0 lets the backend reclaim the entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
