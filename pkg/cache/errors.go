package cache

import "errors"

var (
	// ErrCacheMiss is returned by a Backend when a key is not found
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the backend cannot be reached
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrInvalidCacheKey is returned when a cache key is empty
	ErrInvalidCacheKey = errors.New("invalid cache key")
)
