package main

import (
	"fmt"
	"strconv"

	"github.com/kbukum/relaygate/config"
	"github.com/kbukum/relaygate/gateway"
	"github.com/kbukum/relaygate/observability"
	"github.com/kbukum/relaygate/registry"
	"github.com/kbukum/relaygate/server"
	"github.com/kbukum/relaygate/validation"
)

const serviceName = "api-gateway"

// SelfRegisterConfig controls the gateway's own registry entry.
type SelfRegisterConfig struct {
	Enabled bool                 `mapstructure:"enabled"`
	Agent   registry.AgentConfig `mapstructure:",squash"`
}

// GatewayConfig is the full configuration of the gateway binary.
type GatewayConfig struct {
	config.ServiceConfig `mapstructure:",squash"`

	Server       server.Config              `mapstructure:"server"`
	Registry     registry.Config            `mapstructure:"registry"`
	Gateway      gateway.Config             `mapstructure:"gateway"`
	Tracing      observability.TracerConfig `mapstructure:"tracing"`
	SelfRegister SelfRegisterConfig         `mapstructure:"self_register"`
}

func (c *GatewayConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Registry.ApplyDefaults()
	c.Gateway.ApplyDefaults()
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = c.Version
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	c.Tracing.ApplyDefaults(c.Name)

	if c.SelfRegister.Agent.Name == "" {
		c.SelfRegister.Agent.Name = c.Name
	}
	if c.SelfRegister.Agent.Address == "" {
		c.SelfRegister.Agent.Address = "http://localhost:" + strconv.Itoa(c.Server.Port)
	}
	// The prober skips the gateway's own entry, so the agent reports UP.
	c.SelfRegister.Agent.ReportUp = true
	if c.SelfRegister.Enabled {
		c.Registry.Probe.Exclude = appendMissing(c.Registry.Probe.Exclude, c.SelfRegister.Agent.Name)
	}
}

func (c *GatewayConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Gateway.Validate(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	if c.SelfRegister.Enabled {
		if err := validation.Validate(c.SelfRegister.Agent); err != nil {
			return fmt.Errorf("self_register: %w", err)
		}
	}
	return nil
}

func appendMissing(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
