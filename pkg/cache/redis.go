package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	gobreaker "github.com/sony/gobreaker/v2"
)

// RedisConfig configures a RedisBackend
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int

	// KeyPrefix namespaces keys on a shared server
	KeyPrefix string

	// Circuit breaker settings
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultRedisConfig returns sensible defaults
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:              "redis://localhost:6379/0",
		DB:               -1,
		PoolSize:         10,
		KeyPrefix:        "activity24:",
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// RedisBackend stores entries in Redis. Calls go through a circuit breaker so
// an unreachable server fails fast instead of stalling every request.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewRedisClient creates a Redis client from config and checks connectivity
func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.DB >= 0 {
		opts.DB = config.DB
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NewRedisBackend wraps client as a Backend
func NewRedisBackend(client *redis.Client, config RedisConfig) *RedisBackend {
	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "activity-cache-redis",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	}

	return &RedisBackend{
		client:  client,
		prefix:  config.KeyPrefix,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// Name implements Backend
func (r *RedisBackend) Name() string {
	return "redis"
}

// Get implements Backend
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.breaker.Execute(func() ([]byte, error) {
		data, err := r.client.Get(ctx, r.prefix+key).Bytes()
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}
		return data, nil
	})
	return data, r.translate(err)
}

// Set implements Backend
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.breaker.Execute(func() ([]byte, error) {
		if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
			return nil, fmt.Errorf("redis set failed: %w", err)
		}
		return nil, nil
	})
	return r.translate(err)
}

// Delete implements Backend
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	_, err := r.breaker.Execute(func() ([]byte, error) {
		if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
			return nil, fmt.Errorf("redis del failed: %w", err)
		}
		return nil, nil
	})
	return r.translate(err)
}

// State reports the circuit breaker state
func (r *RedisBackend) State() gobreaker.State {
	return r.breaker.State()
}

// Client returns the underlying Redis client for health checks
func (r *RedisBackend) Client() *redis.Client {
	return r.client
}

// Close closes the Redis connection
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return err
}
