package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_AllowsUpToRate(t *testing.T) {
	l := New(5, time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow() {
		t.Fatal("6th request should be denied")
	}
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	l := New(2, 50*time.Millisecond)
	l.Allow()
	l.Allow()
	if l.Allow() {
		t.Fatal("3rd should be denied")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("after window reset should be allowed")
	}
}

func TestLimiter_Count(t *testing.T) {
	l := New(10, time.Minute)
	l.Allow()
	l.Allow()
	l.Allow()
	if got := l.Count(); got != 3 {
		t.Fatalf("Count = %d, want 3", got)
	}
}

func TestGuard_IndependentKeys(t *testing.T) {
	g := NewGuard(2, time.Minute)

	if !g.Allow("worker-a") || !g.Allow("worker-a") {
		t.Fatal("worker-a should be allowed up to rate")
	}
	if g.Allow("worker-a") {
		t.Fatal("worker-a 3rd event should be denied")
	}

	// A different key has its own window.
	if !g.Allow("worker-b") {
		t.Fatal("worker-b should be unaffected by worker-a")
	}
	if got := g.Count("worker-b"); got != 1 {
		t.Fatalf("worker-b Count = %d, want 1", got)
	}
}

func TestGuard_PruneDropsExpiredKeys(t *testing.T) {
	g := NewGuard(5, 20*time.Millisecond)
	g.Allow("stale")
	time.Sleep(30 * time.Millisecond)
	g.Allow("fresh")

	g.Prune()

	g.mu.Lock()
	_, staleKept := g.limiters["stale"]
	_, freshKept := g.limiters["fresh"]
	g.mu.Unlock()
	if staleKept {
		t.Error("expired key should be pruned")
	}
	if !freshKept {
		t.Error("active key should survive pruning")
	}
}
