package middleware

import (
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateLimiter allows limit requests per client address in each fixed window.
// Expired counters are evicted by the cache janitor.
type RateLimiter struct {
	counters *cache.Cache
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counters: cache.New(window, 2*window),
		limit:    limit,
		window:   window,
	}
}

// Allow records one hit for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.counters.Add(key, 1, rl.window) == nil {
		return rl.limit >= 1
	}
	count, err := rl.counters.IncrementInt(key, 1)
	if err != nil {
		// expired between Add and IncrementInt
		rl.counters.Set(key, 1, rl.window)
		count = 1
	}
	return count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
