package httpclient

import (
	"fmt"
	"time"
)

// Config tunes the outbound transport.
type Config struct {
	// Timeout bounds a call including the body read.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxResponseBytes caps the body read; longer bodies fail the call.
	MaxResponseBytes int64 `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
	// IdlePerHost is the keep-alive pool size per backend instance.
	IdlePerHost int `yaml:"idle_per_host" mapstructure:"idle_per_host"`
	// UserAgent is sent when the request carries none.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 32 << 20
	}
	if c.IdlePerHost <= 0 {
		c.IdlePerHost = 32
	}
	if c.UserAgent == "" {
		c.UserAgent = "relaygate"
	}
}

// Validate rejects settings ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("httpclient: max_response_bytes must be positive")
	}
	return nil
}
