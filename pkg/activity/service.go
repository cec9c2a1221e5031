package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/activity24/pkg/cache"
	"github.com/platinummonkey/activity24/pkg/observability"
)

var serviceTracer = otel.Tracer("activity24/activity/service")

// Cache keys, one per line
const (
	KeyActiveUsers = "_24hour_users"
	KeySummary     = "_24hour_activity"
	KeyGuests      = "_total_guests_online_24"
)

// Default TTLs, one per line
const (
	DefaultUsersTTL   = 1 * time.Hour
	DefaultSummaryTTL = 1 * time.Hour
	DefaultGuestsTTL  = 5 * time.Minute
)

// Line is one independently cached aggregate.
type Line struct {
	Key string
	TTL time.Duration
}

// ServiceConfig configures a Service. Zero values fall back to defaults.
type ServiceConfig struct {
	Clock      clockwork.Clock
	Logger     logrus.FieldLogger
	Metrics    *observability.Metrics
	Format     TimeFormatter
	UsersTTL   time.Duration
	SummaryTTL time.Duration
	GuestsTTL  time.Duration
}

// Service serves the aggregates through the cache.
type Service struct {
	engine  *Engine
	store   *cache.Store
	clock   clockwork.Clock
	logger  logrus.FieldLogger
	metrics *observability.Metrics
	format  TimeFormatter
	lines   map[Kind]Line
}

// NewService creates a new service
func NewService(engine *Engine, store *cache.Store, cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &Service{
		engine:  engine,
		store:   store,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		format:  cfg.Format,
		lines: map[Kind]Line{
			KindActiveUsers: {Key: KeyActiveUsers, TTL: orDefault(cfg.UsersTTL, DefaultUsersTTL)},
			KindSummary:     {Key: KeySummary, TTL: orDefault(cfg.SummaryTTL, DefaultSummaryTTL)},
			KindGuests:      {Key: KeyGuests, TTL: orDefault(cfg.GuestsTTL, DefaultGuestsTTL)},
		},
	}
}

func orDefault(ttl, def time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return def
}

// Line returns the cache line for kind
func (s *Service) Line(kind Kind) Line {
	return s.lines[kind]
}

// GetActiveUsers returns the active users for the window ending at now
func (s *Service) GetActiveUsers(ctx context.Context, now time.Time) ([]ActiveUserRecord, error) {
	users, err := fetch(ctx, s, KindActiveUsers, now, s.engine.ActiveUsers)
	if err != nil {
		return nil, err
	}
	s.metrics.SetActiveUsers(len(users))
	return users, nil
}

// GetActivitySummary returns the new-content counts for the window ending at now
func (s *Service) GetActivitySummary(ctx context.Context, now time.Time) (ActivitySummary, error) {
	return fetch(ctx, s, KindSummary, now, s.engine.Summary)
}

// GetGuestCount returns the distinct guest count for the window ending at now
func (s *Service) GetGuestCount(ctx context.Context, now time.Time) (int64, error) {
	guests, err := fetch(ctx, s, KindGuests, now, s.engine.GuestCount)
	if err != nil {
		return 0, err
	}
	s.metrics.SetGuests(guests)
	return guests, nil
}

// Snapshot reads the clock once and builds the combined payload from all
// three lines at that time.
func (s *Service) Snapshot(ctx context.Context) (*Payload, error) {
	now := s.clock.Now()

	users, err := s.GetActiveUsers(ctx, now)
	if err != nil {
		return nil, err
	}
	summary, err := s.GetActivitySummary(ctx, now)
	if err != nil {
		return nil, err
	}
	guests, err := s.GetGuestCount(ctx, now)
	if err != nil {
		return nil, err
	}

	return BuildPayload(now, users, summary, guests, s.format), nil
}

// Invalidate drops the cached value for kind
func (s *Service) Invalidate(ctx context.Context, kind Kind) error {
	line, ok := s.lines[kind]
	if !ok {
		return fmt.Errorf("unknown aggregate kind %s", kind)
	}
	return s.store.Invalidate(ctx, line.Key)
}

// Refresh invalidates every line and recomputes it at the current clock time.
// Lines are refreshed independently; the first failure is returned after all
// lines were attempted.
func (s *Service) Refresh(ctx context.Context) error {
	now := s.clock.Now()
	var firstErr error

	for _, kind := range Kinds {
		if err := s.Invalidate(ctx, kind); err != nil {
			s.logger.WithError(err).WithField("kind", kind.String()).Warn("Failed to invalidate cache line")
		}

		var err error
		switch kind {
		case KindActiveUsers:
			_, err = s.GetActiveUsers(ctx, now)
		case KindSummary:
			_, err = s.GetActivitySummary(ctx, now)
		case KindGuests:
			_, err = s.GetGuestCount(ctx, now)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to refresh %s: %w", kind, err)
		}
	}

	return firstErr
}

// fetch is the read-through path shared by every line: return the cached
// value when present, otherwise compute, store and return it. Failed
// computations are never stored.
func fetch[T any](ctx context.Context, s *Service, kind Kind, now time.Time, compute func(context.Context, time.Time) (T, error)) (T, error) {
	line := s.lines[kind]

	ctx, span := serviceTracer.Start(ctx, "Service.Get",
		trace.WithAttributes(
			attribute.String("line", kind.String()),
			attribute.String("cache_key", line.Key),
		),
	)
	defer span.End()
	logger := observability.WithTraceContext(ctx, s.logger)

	var cached T
	if s.store.Get(ctx, line.Key, now, &cached) {
		s.metrics.RecordCacheHit(kind.String())
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}
	s.metrics.RecordCacheMiss(kind.String())
	span.SetAttributes(attribute.Bool("cache_hit", false))

	start := s.clock.Now()
	value, err := compute(ctx, now)
	s.metrics.ObserveCompute(kind.String(), s.clock.Since(start))
	if err != nil {
		var zero T
		s.metrics.RecordComputeError(kind.String(), ErrorKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute aggregate")
		logger.WithError(err).WithFields(logrus.Fields{
			"kind":      kind.String(),
			"cache_key": line.Key,
		}).Error("Failed to compute activity aggregate")
		return zero, err
	}

	s.store.Put(ctx, line.Key, value, line.TTL, now)
	logger.WithFields(logrus.Fields{
		"kind":      kind.String(),
		"cache_key": line.Key,
		"ttl":       line.TTL.String(),
	}).Debug("Computed activity aggregate")

	return value, nil
}
