package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	apperrors "github.com/kbukum/relaygate/errors"
	"github.com/kbukum/relaygate/metrics"
	"github.com/kbukum/relaygate/resilience"
)

// RateLimitConfig configures per-client ingress rate limiting.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the bucket size per client.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// IdleTTL drops a client's bucket after this long without requests.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`

	// KeyFunc extracts the client key. Defaults to ClientIP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
	Now     func() time.Time           `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 50
	}
	if c.Burst <= 0 {
		c.Burst = 100
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 5 * time.Minute
	}
	if c.KeyFunc == nil {
		c.KeyFunc = ClientIP
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// RateLimit answers 429 once a client exhausts its token bucket.
func RateLimit(cfg RateLimitConfig) Middleware {
	cfg.ApplyDefaults()
	limiter := resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
		Name:  "ingress",
		Rate:  cfg.RequestsPerSecond,
		Burst: cfg.Burst,
		Now:   cfg.Now,
	})
	var lastPrune atomic.Int64
	lastPrune.Store(cfg.Now().UnixNano())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := cfg.Now().UnixNano()
			if prev := lastPrune.Load(); now-prev > int64(cfg.IdleTTL) && lastPrune.CompareAndSwap(prev, now) {
				limiter.Prune(cfg.IdleTTL)
			}

			if !limiter.Allow(cfg.KeyFunc(r)) {
				metrics.RateLimited.Inc()
				appErr := apperrors.RateLimited()
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(appErr.HTTPStatus)
				_ = json.NewEncoder(w).Encode(appErr.ToResponse())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, or the remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
