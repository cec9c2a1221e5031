// Package observability provides logging, metrics, tracing and health checks
// for the activity daemon.
//
// Logging uses logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.ParseLevel("debug"), os.Stdout)
//	logger.WithField("kind", "guests").Info("Computed activity aggregate")
//
// Metrics are Prometheus collectors registered on a caller-supplied registry.
// A nil *Metrics is accepted everywhere and records nothing, which keeps tests
// free of registry setup:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordCacheHit("summary")
//
// Health checks probe the forum database (required) and Redis (optional; a
// Redis outage degrades the daemon, it does not fail readiness).
package observability
