package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/activity24/pkg/activity"
	"github.com/platinummonkey/activity24/pkg/cache"
	"github.com/platinummonkey/activity24/pkg/observability"
	"github.com/platinummonkey/activity24/pkg/storage/sqlsource"
)

// Cache backend names
const (
	CacheBackendMemory = "memory"
	CacheBackendLRU    = "lru"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Cache configuration
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// RefreshSchedule is a cron spec for proactive cache refresh; empty disables it
	RefreshSchedule string

	// RefreshRateLimit is the number of manual refreshes allowed per client
	// per minute; 0 disables the limit
	RefreshRateLimit int
}

// DatabaseConfig holds forum database configuration
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxConns        int
	Timeout         time.Duration
	TablePrefix     string
	AnonymousUserID int64
	InitSchema      bool
}

// CacheConfig holds aggregate cache configuration
type CacheConfig struct {
	Backend string
	LRUSize int
	Redis   cache.RedisConfig

	UsersTTL   time.Duration
	SummaryTTL time.Duration
	GuestsTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       logrus.Level
	MetricsEnabled bool
	OTel           observability.OTelConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:             getEnv("ACTIVITY_HOST", "0.0.0.0"),
		Port:             getEnv("ACTIVITY_PORT", "8080"),
		ReadTimeout:      getEnvDuration("ACTIVITY_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:     getEnvDuration("ACTIVITY_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout:  getEnvDuration("ACTIVITY_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:       getEnv("ACTIVITY_HEALTH_PORT", "9090"),
		RefreshSchedule:  getEnv("ACTIVITY_REFRESH_SCHEDULE", ""),
		RefreshRateLimit: getEnvInt("ACTIVITY_REFRESH_RATE_LIMIT", 6),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          getEnv("ACTIVITY_DB_DRIVER", "postgres"),
		URL:             getEnv("ACTIVITY_DB_URL", ""),
		MaxConns:        getEnvInt("ACTIVITY_DB_MAX_CONNS", 10),
		Timeout:         getEnvDuration("ACTIVITY_DB_TIMEOUT", 10*time.Second),
		TablePrefix:     getEnv("ACTIVITY_TABLE_PREFIX", sqlsource.DefaultTablePrefix),
		AnonymousUserID: getEnvInt64("ACTIVITY_ANONYMOUS_USER_ID", sqlsource.DefaultAnonymousUserID),
		InitSchema:      getEnvBool("ACTIVITY_DB_INIT_SCHEMA", false),
	}
}

// loadCacheConfig loads cache configuration from environment
func loadCacheConfig() CacheConfig {
	redisCfg := cache.DefaultRedisConfig()
	if url := getEnv("ACTIVITY_REDIS_URL", ""); url != "" {
		redisCfg.URL = url
	}
	if password := getEnv("ACTIVITY_REDIS_PASSWORD", ""); password != "" {
		redisCfg.Password = password
	}
	if db := getEnvInt("ACTIVITY_REDIS_DB", -1); db >= 0 {
		redisCfg.DB = db
	}
	if poolSize := getEnvInt("ACTIVITY_REDIS_POOL_SIZE", 0); poolSize > 0 {
		redisCfg.PoolSize = poolSize
	}
	if prefix, ok := os.LookupEnv("ACTIVITY_REDIS_KEY_PREFIX"); ok {
		redisCfg.KeyPrefix = prefix
	}

	return CacheConfig{
		Backend:    strings.ToLower(getEnv("ACTIVITY_CACHE_BACKEND", CacheBackendMemory)),
		LRUSize:    getEnvInt("ACTIVITY_LRU_SIZE", cache.DefaultLRUSize),
		Redis:      redisCfg,
		UsersTTL:   getEnvDuration("ACTIVITY_USERS_TTL", activity.DefaultUsersTTL),
		SummaryTTL: getEnvDuration("ACTIVITY_SUMMARY_TTL", activity.DefaultSummaryTTL),
		GuestsTTL:  getEnvDuration("ACTIVITY_GUESTS_TTL", activity.DefaultGuestsTTL),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLevel(getEnv("ACTIVITY_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("ACTIVITY_METRICS_ENABLED", true),
		OTel: observability.OTelConfig{
			Enabled:        getEnvBool("ACTIVITY_OTEL_ENABLED", false),
			Endpoint:       getEnv("ACTIVITY_OTEL_ENDPOINT", "localhost:4317"),
			ServiceName:    getEnv("ACTIVITY_OTEL_SERVICE_NAME", "activity24"),
			ServiceVersion: getEnv("ACTIVITY_OTEL_SERVICE_VERSION", "1.0.0"),
			Insecure:       getEnvBool("ACTIVITY_OTEL_INSECURE", true),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.RefreshRateLimit < 0 {
		return fmt.Errorf("refresh rate limit must not be negative")
	}
	if c.Server.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Server.RefreshSchedule, err)
		}
	}

	if _, err := sqlsource.DialectFor(c.Database.Driver); err != nil {
		return err
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Database.AnonymousUserID <= 0 {
		return fmt.Errorf("anonymous user id must be positive")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendLRU:
		if c.Cache.LRUSize <= 0 {
			return fmt.Errorf("LRU size must be positive")
		}
	case CacheBackendRedis:
		if c.Cache.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for redis cache backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory, lru, or redis)", c.Cache.Backend)
	}

	if c.Cache.UsersTTL <= 0 || c.Cache.SummaryTTL <= 0 || c.Cache.GuestsTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if c.Observability.OTel.Enabled {
		if c.Observability.OTel.Endpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTel.ServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// MaxTTL returns the longest configured line TTL
func (c CacheConfig) MaxTTL() time.Duration {
	max := c.UsersTTL
	for _, ttl := range []time.Duration{c.SummaryTTL, c.GuestsTTL} {
		if ttl > max {
			max = ttl
		}
	}
	return max
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
// Plain integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
