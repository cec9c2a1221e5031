package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/activity24/pkg/observability"
)

// DefaultLRUSize is the entry bound used when none is configured
const DefaultLRUSize = 128

// LRUBackend is a bounded in-memory backend. The underlying LRU applies a single
// TTL to every entry, so it is sized to the longest line; shorter lines are
// expired by Store.
type LRUBackend struct {
	cache *lru.LRU[string, []byte]
}

// NewLRUBackend creates a bounded backend holding at most size entries for up
// to maxTTL each. Evictions are counted on metrics when it is non-nil.
func NewLRUBackend(size int, maxTTL time.Duration, metrics *observability.Metrics) *LRUBackend {
	if size <= 0 {
		size = DefaultLRUSize
	}

	var onEvict lru.EvictCallback[string, []byte]
	if metrics != nil {
		onEvict = func(key string, value []byte) {
			metrics.RecordCacheEviction("lru")
		}
	}

	return &LRUBackend{
		cache: lru.NewLRU[string, []byte](size, onEvict, maxTTL),
	}
}

// Name implements Backend
func (l *LRUBackend) Name() string {
	return "lru"
}

// Get implements Backend
func (l *LRUBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := l.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Set implements Backend. The per-call ttl is ignored in favour of the
// backend-wide TTL.
func (l *LRUBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)
	l.cache.Add(key, data)
	return nil
}

// Delete implements Backend
func (l *LRUBackend) Delete(ctx context.Context, key string) error {
	l.cache.Remove(key)
	return nil
}

// Len returns the number of live entries
func (l *LRUBackend) Len() int {
	return l.cache.Len()
}

// Purge removes every entry
func (l *LRUBackend) Purge() {
	l.cache.Purge()
}
