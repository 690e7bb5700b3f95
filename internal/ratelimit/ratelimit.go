package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a simple fixed-window rate limiter for a single entity.
type Limiter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	rate        int
	window      time.Duration
}

// New creates a Limiter that allows rate events per window.
func New(rate int, window time.Duration) *Limiter {
	return &Limiter{
		rate:        rate,
		window:      window,
		windowStart: time.Now(),
	}
}

// Allow records an event and returns true if it is within the rate limit.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.windowStart) > l.window {
		l.count = 0
		l.windowStart = now
	}
	l.count++
	return l.count <= l.rate
}

// Count returns the number of events recorded in the current window.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.windowStart) > l.window {
		return 0
	}
	return l.count
}

// Guard tracks one Limiter per key. The fraud detector uses it to spot
// workers whose submission rate exceeds what a human plausibly produces.
type Guard struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	rate     int
	window   time.Duration
}

// NewGuard creates a Guard allowing rate events per window for each key.
func NewGuard(rate int, window time.Duration) *Guard {
	return &Guard{
		limiters: make(map[string]*Limiter),
		rate:     rate,
		window:   window,
	}
}

// Allow records an event for key and returns true if the key is within its
// rate limit.
func (g *Guard) Allow(key string) bool {
	return g.limiter(key).Allow()
}

// Count returns the number of events recorded for key in the current window.
func (g *Guard) Count(key string) int {
	return g.limiter(key).Count()
}

// Prune drops limiters whose window has expired. Long-running callers
// with unbounded key spaces call this periodically to keep the map small.
func (g *Guard) Prune() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, l := range g.limiters {
		if l.Count() == 0 {
			delete(g.limiters, key)
		}
	}
}

func (g *Guard) limiter(key string) *Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[key]
	if !ok {
		l = New(g.rate, g.window)
		g.limiters[key] = l
	}
	return l
}
