package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests per client address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows perMinute requests a minute per address, with bursts
// of up to burst requests.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from addr may proceed.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	entry, ok := rl.limiters[addr]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[addr] = entry
	}
	now := rl.now()
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Cleanup drops limiters not used for maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxIdle)
	removed := 0
	for addr, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, addr)
			removed++
		}
	}
	return removed
}

// Limit passes requests to next while the client is within its allowance
// and to onLimit once it is not.
func (rl *RateLimiter) Limit(next, onLimit http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			addr := ClientAddr(r)
			if !rl.Allow(addr) {
				zerolog.Ctx(r.Context()).Warn().Str("client", addr).Msg("login attempts throttled")
				metrics.LoginAttempts.WithLabelValues("throttled").Inc()
				onLimit.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		},
	)
}

// ClientAddr returns the host part of the request's remote address.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
