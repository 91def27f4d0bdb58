package redis

import (
	"fmt"
	"time"
)

// Config points the registry at a shared Redis. Every gateway replica
// using the same Addr, DB and KeyPrefix sees the same instances.
type Config struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix namespaces the registry's keys, e.g. "relaygate:instances".
	KeyPrefix string `mapstructure:"key_prefix"`

	PoolSize int `mapstructure:"pool_size"`
	// ConnectAttempts bounds the startup ping; the server may still be
	// coming up alongside the gateway.
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	// OpTimeout is the per-command read and write deadline.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "relaygate"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 3 * time.Second
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	return nil
}
