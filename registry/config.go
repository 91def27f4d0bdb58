package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/relaygate/database"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/redis"
	"github.com/kbukum/relaygate/validation"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and tunes the registry backend and its background loops.
type Config struct {
	Backend    string        `mapstructure:"backend" validate:"oneof=memory sqlite redis"`
	Strategy   Strategy      `mapstructure:"strategy" validate:"omitempty,oneof=first_match round_robin random"`
	StaleAfter time.Duration `mapstructure:"stale_after"`

	SQLite database.Config `mapstructure:"sqlite"`
	Redis  redis.Config    `mapstructure:"redis"`

	Probe ProberConfig `mapstructure:"probe"`
	// ReapInterval is the Cleanup period.
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Strategy == "" {
		c.Strategy = StrategyFirstMatch
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = DefaultProbeInterval
	}
	c.SQLite.ApplyDefaults()
	c.Probe.ApplyDefaults()
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	switch c.Backend {
	case BackendSQLite:
		return c.SQLite.Validate()
	case BackendRedis:
		c.Redis.ApplyDefaults()
		return c.Redis.Validate()
	}
	return nil
}

// Options builds store Options from the configuration.
func (c *Config) Options() (Options, error) {
	sel, err := NewSelector(c.Strategy)
	if err != nil {
		return Options{}, err
	}
	return Options{StaleAfter: c.StaleAfter, Selector: sel}, nil
}

// Open connects to the configured backend and returns a store that owns the
// connection: closing the store closes it.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(opts), nil

	case BackendSQLite:
		db, err := database.Open(ctx, cfg.SQLite, log)
		if err != nil {
			return nil, err
		}
		store, err := NewSQLStore(db, opts)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		store.onClose = db.Close
		return store, nil

	case BackendRedis:
		client, err := redis.Connect(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		store := NewRedisStore(client, client.Prefix(), opts)
		store.onClose = client.Close
		return store, nil
	}
	return nil, fmt.Errorf("unsupported registry backend %q", cfg.Backend)
}
