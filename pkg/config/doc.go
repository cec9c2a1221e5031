// Package config provides application configuration management from environment variables.
//
// # Overview
//
// LoadConfig reads every setting from ACTIVITY_* variables, applies defaults
// and validates the result.
//
// Server settings:
//
//	ACTIVITY_HOST="0.0.0.0"
//	ACTIVITY_PORT="8080"
//	ACTIVITY_HEALTH_PORT="9090"
//	ACTIVITY_REFRESH_SCHEDULE="*/5 * * * *"   # optional cron spec
//	ACTIVITY_REFRESH_RATE_LIMIT="6"           # manual refreshes per client per minute, 0 disables
//
// Database settings:
//
//	ACTIVITY_DB_DRIVER="postgres"             # postgres or sqlite3
//	ACTIVITY_DB_URL="postgres://localhost/forum?sslmode=disable"
//	ACTIVITY_TABLE_PREFIX="phpbb_"
//	ACTIVITY_ANONYMOUS_USER_ID="1"
//
// Cache settings:
//
//	ACTIVITY_CACHE_BACKEND="redis"            # memory, lru or redis
//	ACTIVITY_REDIS_URL="redis://localhost:6379/0"
//	ACTIVITY_USERS_TTL="1h"
//	ACTIVITY_SUMMARY_TTL="1h"
//	ACTIVITY_GUESTS_TTL="300"                 # bare integers are seconds
//
// Observability settings:
//
//	ACTIVITY_LOG_LEVEL="info"
//	ACTIVITY_METRICS_ENABLED="true"
//	ACTIVITY_OTEL_ENABLED="false"
//	ACTIVITY_OTEL_ENDPOINT="localhost:4317"
package config
