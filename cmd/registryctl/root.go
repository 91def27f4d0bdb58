package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/relaygate/bootstrap"
	"github.com/kbukum/relaygate/config"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/registry"
	"github.com/kbukum/relaygate/version"
)

// CtlConfig is the registryctl configuration: the service basics plus the
// registry backend to operate on.
type CtlConfig struct {
	config.ServiceConfig `mapstructure:",squash"`

	Registry registry.Config `mapstructure:"registry"`
}

func (c *CtlConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "registryctl"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Registry.ApplyDefaults()
}

func (c *CtlConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	return nil
}

type rootFlags struct {
	configFile string
	envPrefix  string
	backend    string
	sqlitePath string
	redisAddr  string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:          "registryctl",
		Short:        "Inspect and edit the service registry",
		Version:      version.GetShortVersion(),
		SilenceUsage: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "config file (default: ./cmd/registryctl/config.yml, ./config.yml)")
	pf.StringVar(&flags.envPrefix, "env-prefix", "", "only bind environment variables with this prefix")
	pf.StringVar(&flags.backend, "backend", "", "registry backend: memory, sqlite or redis")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", "", "sqlite database file")
	pf.StringVar(&flags.redisAddr, "redis-addr", "", "redis host:port")

	root.AddCommand(
		newListCmd(&flags),
		newRegisterCmd(&flags),
		newDeregisterCmd(&flags),
		newSetStatusCmd(&flags),
		newResolveCmd(&flags),
		newCleanupCmd(&flags),
		newHeartbeatCmd(&flags),
	)
	return root
}

func loadConfig(flags *rootFlags) (*CtlConfig, error) {
	var cfg CtlConfig
	opts := []config.LoaderOption{config.WithEnvPrefix(flags.envPrefix)}
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if err := config.LoadConfig("registryctl", &cfg, opts...); err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Registry.Backend = flags.backend
	}
	if flags.sqlitePath != "" {
		cfg.Registry.SQLite.Path = flags.sqlitePath
	}
	if flags.redisAddr != "" {
		cfg.Registry.Redis.Addr = flags.redisAddr
	}
	return &cfg, nil
}

// withStore opens the configured store, runs task and closes the store.
// SIGINT and SIGTERM cancel the task's context.
func withStore(ctx context.Context, flags *rootFlags, task func(ctx context.Context, store registry.Store, log *logger.Logger) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	stores := registry.NewStoreComponent(app.Cfg.Registry, app.Logger)
	if err := app.RegisterComponent(stores); err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		return task(ctx, stores.Store(), app.Logger)
	})
}
