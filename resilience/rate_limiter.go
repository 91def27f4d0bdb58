package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	Name string
	// Rate is the refill rate in tokens per second.
	Rate  float64
	Burst int
	Now   func() time.Time
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	cfg RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.Rate)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RateLimiter{cfg: cfg, tokens: float64(cfg.Burst), lastRefill: cfg.Now()}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	now := rl.cfg.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.lastRefill = now
	rl.tokens += elapsed * rl.cfg.Rate
	if rl.tokens > float64(rl.cfg.Burst) {
		rl.tokens = float64(rl.cfg.Burst)
	}
}

// KeyedRateLimiter keeps one bucket per key, such as a client address.
type KeyedRateLimiter struct {
	cfg RateLimiterConfig

	mu      sync.Mutex
	buckets map[string]*keyedBucket
}

type keyedBucket struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

func NewKeyedRateLimiter(cfg RateLimiterConfig) *KeyedRateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &KeyedRateLimiter{cfg: cfg, buckets: make(map[string]*keyedBucket)}
}

// Allow takes a token from key's bucket.
func (k *KeyedRateLimiter) Allow(key string) bool {
	k.mu.Lock()
	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: NewRateLimiter(k.cfg)}
		k.buckets[key] = b
	}
	b.lastSeen = k.cfg.Now()
	k.mu.Unlock()
	return b.limiter.Allow()
}

// Prune drops buckets not used within idle and returns how many were
// dropped. An idle bucket has refilled, so dropping it changes nothing.
func (k *KeyedRateLimiter) Prune(idle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.cfg.Now().Add(-idle)
	n := 0
	for key, b := range k.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(k.buckets, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
