package activity

import (
	"context"
	"errors"
)

var (
	// ErrDataSourceUnavailable is returned when a query could not be executed
	ErrDataSourceUnavailable = errors.New("data source unavailable")

	// ErrDataSourceMalformed is returned when a result row has a missing or invalid field
	ErrDataSourceMalformed = errors.New("data source returned malformed data")
)

// ErrorKind classifies err for metrics labels and HTTP status mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrDataSourceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrDataSourceMalformed):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
