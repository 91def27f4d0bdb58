package resilience

import (
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 3, Now: clock.Now})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should fit in the burst", i)
		}
	}
	if rl.Allow() {
		t.Fatal("expected limiter exhausted after burst")
	}

	clock.Advance(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected one token after 500ms at 2/s")
	}
	if rl.Allow() {
		t.Error("expected no second token yet")
	}

	clock.Advance(10 * time.Second)
	if got := rl.Tokens(); got != 3 {
		t.Errorf("expected refill capped at burst 3, got %v", got)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.5})
	if got := rl.Tokens(); got < 1 {
		t.Errorf("expected burst of at least 1, got %v", got)
	}
}

func TestKeyedRateLimiter_SeparateBuckets(t *testing.T) {
	clock := newFakeClock()
	k := NewKeyedRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: clock.Now})

	if !k.Allow("10.0.0.1") {
		t.Fatal("first request from a client should pass")
	}
	if k.Allow("10.0.0.1") {
		t.Error("second immediate request should be limited")
	}
	if !k.Allow("10.0.0.2") {
		t.Error("another client has its own bucket")
	}
	if k.Len() != 2 {
		t.Errorf("expected 2 buckets, got %d", k.Len())
	}
}

func TestKeyedRateLimiter_Prune(t *testing.T) {
	clock := newFakeClock()
	k := NewKeyedRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: clock.Now})
	k.Allow("old")
	clock.Advance(10 * time.Minute)
	k.Allow("new")

	if n := k.Prune(5 * time.Minute); n != 1 {
		t.Errorf("expected 1 pruned bucket, got %d", n)
	}
	if k.Len() != 1 {
		t.Errorf("expected 1 remaining bucket, got %d", k.Len())
	}
}
