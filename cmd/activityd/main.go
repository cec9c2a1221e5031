// Command activityd serves the trailing 24 hour forum activity aggregates.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/activity24/pkg/activity"
	"github.com/platinummonkey/activity24/pkg/api"
	"github.com/platinummonkey/activity24/pkg/cache"
	"github.com/platinummonkey/activity24/pkg/config"
	"github.com/platinummonkey/activity24/pkg/httputil"
	"github.com/platinummonkey/activity24/pkg/observability"
	"github.com/platinummonkey/activity24/pkg/storage/sqlsource"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(logrus.Fields{
		"version":       version,
		"db_driver":     cfg.Database.Driver,
		"cache_backend": cfg.Cache.Backend,
	}).Info("Starting activityd")

	ctx := context.Background()

	tp, err := observability.InitOTel(ctx, cfg.Observability.OTel, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without tracing")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dialect, err := sqlsource.DialectFor(cfg.Database.Driver)
	if err != nil {
		logger.WithError(err).Fatal("Unsupported database driver")
	}
	db, err := sqlsource.Open(ctx, dialect, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.Timeout)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to forum database")
	}
	if cfg.Database.InitSchema {
		if err := sqlsource.EnsureSchema(ctx, db, cfg.Database.TablePrefix); err != nil {
			logger.WithError(err).Fatal("Failed to initialize schema")
		}
		logger.Info("Forum schema initialized")
	}

	clock := clockwork.NewRealClock()
	backend, err := newBackend(ctx, cfg.Cache, clock, metrics)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize cache backend")
	}
	logger.Infof("Cache backend initialized: %s", backend.Name())
	store := cache.NewStore(backend, logger, metrics)

	source := sqlsource.New(db, sqlsource.Config{
		Dialect:         dialect,
		TablePrefix:     cfg.Database.TablePrefix,
		AnonymousUserID: cfg.Database.AnonymousUserID,
	})
	service := activity.NewService(
		activity.NewEngine(source),
		store,
		activity.ServiceConfig{
			Clock:      clock,
			Logger:     logger,
			Metrics:    metrics,
			UsersTTL:   cfg.Cache.UsersTTL,
			SummaryTTL: cfg.Cache.SummaryTTL,
			GuestsTTL:  cfg.Cache.GuestsTTL,
		},
	)

	scheduler, err := newScheduler(cfg.Server.RefreshSchedule, service, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule cache refresh")
	}

	apiCfg := api.ServerConfig{Clock: clock, Logger: logger}
	if cfg.Server.RefreshRateLimit > 0 {
		apiCfg.RefreshLimiter = httputil.NewRateLimiter(cfg.Server.RefreshRateLimit, time.Minute, clock)
	}
	apiServer := api.NewServer(service, apiCfg)
	mainServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Only a shared backend is probed; in-process caches cannot be unreachable
	var redisClient *redis.Client
	if rb, ok := store.Backend().(*cache.RedisBackend); ok {
		redisClient = rb.Client()
	}
	healthChecker := observability.NewHealthChecker(db, redisClient, version)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/health", healthChecker.Readiness).Methods(http.MethodGet)
	healthRouter.HandleFunc("/health/live", healthChecker.Liveness).Methods(http.MethodGet)
	healthRouter.HandleFunc("/health/ready", healthChecker.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		healthRouter.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdownMgr := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, mainServer, healthServer)
	if scheduler != nil {
		shutdownMgr.RegisterShutdownFunc(func(ctx context.Context) error {
			stopped := scheduler.Stop()
			select {
			case <-stopped.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	if closer, ok := store.Backend().(io.Closer); ok {
		shutdownMgr.RegisterShutdownFunc(func(ctx context.Context) error {
			return closer.Close()
		})
	}
	shutdownMgr.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})
	shutdownMgr.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, tp)
	})

	go serve(logger, "API", mainServer)
	go serve(logger, "health", healthServer)

	if err := shutdownMgr.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
}

func serve(logger logrus.FieldLogger, name string, srv *http.Server) {
	logger.Infof("Starting %s server on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatalf("%s server failed", name)
	}
}

// newBackend builds the configured cache backend
func newBackend(ctx context.Context, cfg config.CacheConfig, clock clockwork.Clock, metrics *observability.Metrics) (cache.Backend, error) {
	switch cfg.Backend {
	case config.CacheBackendLRU:
		return cache.NewLRUBackend(cfg.LRUSize, cfg.MaxTTL(), metrics), nil
	case config.CacheBackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisBackend(client, cfg.Redis), nil
	default:
		return cache.NewMemoryBackend(clock), nil
	}
}

// newScheduler starts a cron job refreshing every cache line. An empty
// schedule disables it.
func newScheduler(schedule string, service *activity.Service, logger logrus.FieldLogger) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		start := time.Now()
		if err := service.Refresh(ctx); err != nil {
			logger.WithError(err).Warn("Scheduled cache refresh failed")
			return
		}
		logger.WithField("duration", time.Since(start).String()).Info("Scheduled cache refresh completed")
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Infof("Cache refresh schedule: %s", schedule)
	return c, nil
}

