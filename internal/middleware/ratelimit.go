package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// rateLimiter counts requests per client over fixed windows, in process.
// The service is a single binary with local file state, so the counters
// live here rather than in an external store.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	config  RateLimitConfig
}

func (l *rateLimiter) take(clientID string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok || now.After(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(l.config.Window)}
		l.windows[clientID] = w
	}

	w.count++
	if w.count > l.config.RequestsPerWindow {
		return false, 0, w.resetAt
	}
	return true, l.config.RequestsPerWindow - w.count, w.resetAt
}

// RateLimitMiddleware limits each client to a fixed number of requests per window
func RateLimitMiddleware(config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limiter := &rateLimiter{
		windows: make(map[string]*rateWindow),
		config:  config,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.RemoteAddr

			allowed, remaining, resetAt := limiter.take(clientID, time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				retryAfter := int(time.Until(resetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
