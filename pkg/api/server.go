package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/activity24/pkg/activity"
	"github.com/platinummonkey/activity24/pkg/httputil"
	"github.com/platinummonkey/activity24/pkg/observability"
)

// Aggregates is the read side the handlers serve. *activity.Service
// implements it.
type Aggregates interface {
	Snapshot(ctx context.Context) (*activity.Payload, error)
	GetActiveUsers(ctx context.Context, now time.Time) ([]activity.ActiveUserRecord, error)
	GetActivitySummary(ctx context.Context, now time.Time) (activity.ActivitySummary, error)
	GetGuestCount(ctx context.Context, now time.Time) (int64, error)
	Refresh(ctx context.Context) error
}

var _ Aggregates = (*activity.Service)(nil)

// ServerConfig configures a Server. Zero values fall back to defaults.
type ServerConfig struct {
	Clock  clockwork.Clock
	Logger logrus.FieldLogger
	Format activity.TimeFormatter

	// TracerProvider creates the per-request server spans; nil uses the
	// global provider
	TracerProvider trace.TracerProvider

	// RefreshLimiter throttles POST /api/v1/activity/refresh per client;
	// nil leaves it unthrottled
	RefreshLimiter *httputil.RateLimiter
}

// Server represents our API server
type Server struct {
	aggregates Aggregates
	router     *mux.Router
	handler    http.Handler
	clock      clockwork.Clock
	logger     logrus.FieldLogger
	format     activity.TimeFormatter
	limiter    *httputil.RateLimiter
}

// NewServer creates a new API server
func NewServer(aggregates Aggregates, cfg ServerConfig) *Server {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	s := &Server{
		aggregates: aggregates,
		router:     mux.NewRouter(),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		format:     cfg.Format,
		limiter:    cfg.RefreshLimiter,
	}
	s.setupRoutes()

	opts := []otelhttp.Option{otelhttp.WithPropagators(observability.Propagator())}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	s.handler = otelhttp.NewHandler(s.router, "activityd", opts...)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(s.logger),
		httputil.LoggingMiddleware(s.logger),
	)

	s.router.HandleFunc("/api/v1/activity", s.getActivity).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/activity/users", s.getActiveUsers).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/activity/summary", s.getSummary).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/activity/guests", s.getGuests).Methods(http.MethodGet)

	var refresh http.Handler = http.HandlerFunc(s.refresh)
	if s.limiter != nil {
		refresh = httputil.RateLimitMiddleware(s.limiter)(refresh)
	}
	s.router.Handle("/api/v1/activity/refresh", refresh).Methods(http.MethodPost)
}

// ServeHTTP implements the http.Handler interface. Inbound trace context is
// extracted so handler spans join the caller's trace.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
