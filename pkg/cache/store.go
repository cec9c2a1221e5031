package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/activity24/pkg/observability"
)

// entry is the persisted form of a cache entry.
type entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store is a key/value store with per-entry expiry.
type Store struct {
	backend Backend
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

// NewStore creates a store over backend. logger and metrics may be nil.
func NewStore(backend Backend, logger logrus.FieldLogger, metrics *observability.Metrics) *Store {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Store{
		backend: backend,
		logger:  logger.WithField("backend", backend.Name()),
		metrics: metrics,
	}
}

// Backend returns the underlying backend
func (s *Store) Backend() Backend {
	return s.backend
}

// Get decodes the value stored under key into dst and reports whether it was
// present and not expired at now. Expired, missing, corrupt and unreachable
// entries all report false.
func (s *Store) Get(ctx context.Context, key string, now time.Time, dst any) bool {
	if key == "" {
		return false
	}

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.metrics.RecordCacheError(s.backend.Name(), "get")
			s.logger.WithError(err).WithField("cache_key", key).Warn("Cache get failed, treating as miss")
		}
		return false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.dropCorrupt(ctx, key, err)
		return false
	}

	if !now.Before(e.ExpiresAt) {
		return false
	}

	if err := json.Unmarshal(e.Value, dst); err != nil {
		s.dropCorrupt(ctx, key, err)
		return false
	}

	return true
}

// Put stores value under key until now+ttl, replacing any previous entry.
// Failures are logged and otherwise ignored; a ttl <= 0 stores nothing.
func (s *Store) Put(ctx context.Context, key string, value any, ttl time.Duration, now time.Time) {
	if key == "" || ttl <= 0 {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).WithField("cache_key", key).Error("Failed to marshal cache value")
		return
	}

	data, err := json.Marshal(entry{Value: raw, ExpiresAt: now.Add(ttl)})
	if err != nil {
		s.logger.WithError(err).WithField("cache_key", key).Error("Failed to marshal cache entry")
		return
	}

	if err := s.backend.Set(ctx, key, data, ttl); err != nil {
		s.metrics.RecordCacheError(s.backend.Name(), "set")
		s.logger.WithError(err).WithField("cache_key", key).Warn("Cache put failed, dropping entry")
	}
}

// Invalidate removes key regardless of its expiry
func (s *Store) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		s.metrics.RecordCacheError(s.backend.Name(), "delete")
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	return nil
}

// dropCorrupt removes an entry that could not be decoded
func (s *Store) dropCorrupt(ctx context.Context, key string, cause error) {
	s.metrics.RecordCacheError(s.backend.Name(), "decode")
	s.logger.WithError(cause).WithField("cache_key", key).Warn("Dropping undecodable cache entry")
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("cache_key", key).Debug("Failed to delete undecodable cache entry")
	}
}
