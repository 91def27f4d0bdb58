package auth

import (
	"fmt"

	"github.com/kbukum/relaygate/auth/jwt"
)

// DefaultSecret matches the development secret the backend services sign with.
const DefaultSecret = "supersecret"

// Config holds gateway authentication settings.
type Config struct {
	// Disabled turns the auth gate off. The zero value verifies tokens on
	// every rule that requires them.
	Disabled bool       `mapstructure:"disabled"`
	JWT      jwt.Config `mapstructure:"jwt"`
}

// Enabled reports whether auth-required rules are gated.
func (c *Config) Enabled() bool { return !c.Disabled }

// ApplyDefaults sets the JWT defaults and the development secret.
func (c *Config) ApplyDefaults() {
	if c.JWT.Secret == "" {
		c.JWT.Secret = DefaultSecret
	}
	c.JWT.ApplyDefaults()
}

// Validate checks the JWT configuration when auth is enabled.
func (c *Config) Validate() error {
	if c.Disabled {
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	return nil
}
