package httputil

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// maxIdleBuckets bounds how many per-client limiters are kept before idle
// ones are pruned
const maxIdleBuckets = 1024

// RateLimiter keeps a token bucket per client key. Each bucket holds up to
// limit tokens and refills at limit per window.
type RateLimiter struct {
	rate  rate.Limit
	burst int
	clock clockwork.Clock

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter; a nil clock uses the real clock
func NewRateLimiter(limit int, window time.Duration, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = time.Minute
	}

	var r rate.Limit
	if limit > 0 {
		r = rate.Every(window / time.Duration(limit))
	} else {
		limit = 0
	}

	return &RateLimiter{
		rate:     r,
		burst:    limit,
		clock:    clock,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow takes a token for key and reports whether one was available
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	lim, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxIdleBuckets {
			rl.pruneLocked(now)
		}
		lim = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = lim
	}
	rl.mu.Unlock()

	return lim.AllowN(now, 1)
}

// RetryAfter returns how long key has to wait for its next token, rounded
// to the millisecond
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	lim, ok := rl.limiters[key]
	rl.mu.Unlock()
	if !ok {
		return 0
	}

	now := rl.clock.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now)

	return delay.Round(time.Millisecond)
}

// pruneLocked drops limiters that have refilled completely
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, lim := range rl.limiters {
		if lim.TokensAt(now) >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}

// RateLimitMiddleware rejects requests over the limiter's rate with 429
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if !rl.Allow(key) {
				retry := int(math.Ceil(rl.RetryAfter(key).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Error:     "rate limit exceeded",
					RequestID: GetRequestID(r.Context()),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the originating client address of r
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
