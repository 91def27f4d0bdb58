// Command gateway runs the API gateway: the route table proxy, the
// aggregate endpoints and the registry's probe and cleanup loops.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/relaygate/bootstrap"
	"github.com/kbukum/relaygate/config"
	"github.com/kbukum/relaygate/gateway"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/observability"
	"github.com/kbukum/relaygate/registry"
	"github.com/kbukum/relaygate/server"
	"github.com/kbukum/relaygate/version"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	envPrefix  string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:          "gateway",
		Short:        "Run the API gateway",
		Version:      version.GetShortVersion(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "path to config.yml")
	pf.StringVar(&f.envPrefix, "env-prefix", "", "only bind environment variables with this prefix")

	root.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), cfg)
		},
	})
	return root
}

func loadConfig(f flags) (*GatewayConfig, error) {
	var cfg GatewayConfig
	opts := []config.LoaderOption{config.WithEnvPrefix(f.envPrefix)}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if err := config.LoadConfig("gateway", &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// printRoutes compiles the configured table, so conflicting or malformed
// rules fail here as they would at startup.
func printRoutes(w io.Writer, cfg *GatewayConfig) error {
	table, err := gateway.NewRouteTable(cfg.Gateway.Routes)
	if err != nil {
		return err
	}
	for _, r := range table.Rules() {
		target := r.Rewrite
		if target == "" {
			target = r.Pattern
		}
		auth := ""
		if r.AuthRequired {
			auth = " (auth)"
		}
		fmt.Fprintf(w, "%-6s %-32s -> %s %s%s\n", r.Method, r.Pattern, r.Destination, target, auth)
	}
	return nil
}

func run(ctx context.Context, cfg *GatewayConfig) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	stores := registry.NewStoreComponent(cfg.Registry, log)
	if err := app.RegisterComponent(observability.NewTracerComponent(cfg.Tracing)); err != nil {
		return err
	}
	if err := app.RegisterComponent(stores); err != nil {
		return err
	}

	// The store is opened by StartAll, so everything that needs it is built
	// here and started with a second StartAll.
	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*GatewayConfig]) error {
		return configure(ctx, a, stores.Store(), log)
	})
	return app.Run(ctx)
}

func configure(ctx context.Context, app *bootstrap.App[*GatewayConfig], store registry.Store, log *logger.Logger) error {
	cfg := app.Cfg

	prober, err := registry.NewProber(store, cfg.Registry.Probe, log)
	if err != nil {
		return err
	}
	reaper := registry.NewReaper(store, cfg.Registry.ReapInterval, log)

	gw, err := gateway.New(cfg.Name, cfg.Gateway, store, prober, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(cfg.Name, cfg.Version)
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	gw.Register(srv.GinEngine())

	if err := app.RegisterComponent(registry.NewLoopComponent(prober, reaper, log)); err != nil {
		return err
	}
	if err := app.RegisterComponent(srv); err != nil {
		return err
	}
	if cfg.SelfRegister.Enabled {
		if err := app.RegisterComponent(registry.NewAgent(store, cfg.SelfRegister.Agent, log)); err != nil {
			return err
		}
	}
	if err := app.Components.StartAll(ctx); err != nil {
		return err
	}

	log.Info("Gateway configured", logger.Fields(
		"routes", len(cfg.Gateway.Routes),
		"backend", cfg.Registry.Backend,
		"auth", cfg.Gateway.Auth.Enabled(),
	))
	return nil
}
