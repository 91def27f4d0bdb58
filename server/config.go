package server

import (
	"fmt"
	"time"

	"github.com/kbukum/relaygate/server/middleware"
)

// Config is the ingress listener.
type Config struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// MaxBodySize caps inbound bodies, e.g. "10MB". Media uploads pass
	// through this limit too.
	MaxBodySize string `yaml:"max_body_size" mapstructure:"max_body_size"`

	CORS      middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

func orDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// ApplyDefaults fills unset fields. A zero Port becomes 3000; tests that
// need an ephemeral port set it after defaulting.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 3000
	}
	orDuration(&c.ReadTimeout, 15*time.Second)
	// Longer than the 10s forward timeout so a slow backend still gets its
	// 503 written.
	orDuration(&c.WriteTimeout, 30*time.Second)
	orDuration(&c.IdleTimeout, 60*time.Second)
	orDuration(&c.ShutdownTimeout, 5*time.Second)
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}

	cors := &c.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{middleware.HeaderRequestID}
	}
	orDuration(&cors.MaxAge, 10*time.Minute)

	c.RateLimit.ApplyDefaults()
}

// Validate rejects values ApplyDefaults leaves in place.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if middleware.ParseSize(c.MaxBodySize, -1) <= 0 {
		return fmt.Errorf("server.max_body_size %q is not a size", c.MaxBodySize)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be positive")
	}
	return nil
}
