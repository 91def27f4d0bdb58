package gateway

import (
	"fmt"
	"time"

	"github.com/kbukum/relaygate/auth"
	"github.com/kbukum/relaygate/resilience"
)

// Config configures the gateway's routing, breakers, fan-out and auth gate.
type Config struct {
	// ForwardTimeout bounds each outbound call (default and max 10s).
	ForwardTimeout time.Duration            `yaml:"forward_timeout" mapstructure:"forward_timeout"`
	Breaker        resilience.BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
	Fanout         FanoutConfig             `yaml:"fanout" mapstructure:"fanout"`
	Auth           auth.Config              `yaml:"auth" mapstructure:"auth"`
	// Routes replaces DefaultRoutes when set.
	Routes []RouteRule `yaml:"routes" mapstructure:"routes"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.ForwardTimeout <= 0 {
		c.ForwardTimeout = DefaultForwardTimeout
	}
	if c.ForwardTimeout > MaxForwardTimeout {
		c.ForwardTimeout = MaxForwardTimeout
	}
	c.Breaker.ApplyDefaults()
	c.Fanout.ApplyDefaults()
	c.Auth.ApplyDefaults()
	if len(c.Routes) == 0 {
		c.Routes = DefaultRoutes()
	}
}

// Validate checks the configuration, including the route table.
func (c *Config) Validate() error {
	if c.Breaker.Threshold < 1 {
		return fmt.Errorf("gateway.breaker.threshold must be at least 1 (got: %d)", c.Breaker.Threshold)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("gateway.%w", err)
	}
	if _, err := NewRouteTable(c.Routes); err != nil {
		return fmt.Errorf("gateway.routes: %w", err)
	}
	return nil
}
