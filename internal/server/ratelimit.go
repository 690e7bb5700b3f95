package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/eipp/mindburn-aletheia-sub003/internal/ratelimit"
)

// Per-IP request allowance for all API endpoints.
const (
	defaultRate   = 120
	defaultWindow = time.Minute
)

// rateLimiter wraps a keyed rate guard with periodic pruning so the
// per-IP map does not grow without bound.
type rateLimiter struct {
	guard *ratelimit.Guard
}

// newRateLimiter creates a limiter allowing rate requests per window for
// each IP. It starts a background goroutine that prunes stale entries
// every minute.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{guard: ratelimit.NewGuard(rate, window)}
	go func() {
		for {
			time.Sleep(time.Minute)
			rl.guard.Prune()
		}
	}()
	return rl
}

// allow returns true if the IP has not exceeded its rate limit.
func (rl *rateLimiter) allow(ip string) bool {
	return rl.guard.Allow(ip)
}

// getIP extracts the client IP from a request, respecting X-Forwarded-For
// for proxied deployments.
func getIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
