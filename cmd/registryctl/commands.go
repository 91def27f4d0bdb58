package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/registry"
)

// writeInstances renders instances as indented JSON or as YAML.
func writeInstances(w io.Writer, format string, instances []registry.ServiceInstance) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(instances); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(instances)
	}
	return fmt.Errorf("unknown output format %q: want json or yaml", format)
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var name, output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every registered instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q: want json or yaml", output)
			}
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, _ *logger.Logger) error {
				instances, err := store.List(ctx)
				if err != nil {
					return err
				}
				out := instances[:0]
				for _, inst := range instances {
					if name == "" || inst.Name == name {
						out = append(out, inst)
					}
				}
				sort.Slice(out, func(i, j int) bool {
					if out[i].Name != out[j].Name {
						return out[i].Name < out[j].Name
					}
					return out[i].Address < out[j].Address
				})
				return writeInstances(cmd.OutOrStdout(), output, out)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "only list instances of this service")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func newRegisterCmd(flags *rootFlags) *cobra.Command {
	var up bool
	cmd := &cobra.Command{
		Use:   "register <name> <address>",
		Short: "Register an instance with status UNKNOWN",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, _ *logger.Logger) error {
				if err := store.Register(ctx, args[0], args[1]); err != nil {
					return err
				}
				if up {
					if err := store.UpdateStatus(ctx, args[0], args[1], registry.StatusUp); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s at %s\n", args[0], registry.NormalizeAddress(args[1]))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&up, "up", false, "mark the instance UP right away")
	return cmd
}

func newDeregisterCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deregister <name> <address>",
		Short: "Remove an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, _ *logger.Logger) error {
				if err := store.Deregister(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deregistered %s at %s\n", args[0], registry.NormalizeAddress(args[1]))
				return nil
			})
		},
	}
}

func newSetStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <name> <address> <UP|DOWN|UNKNOWN>",
		Short: "Set an instance's status and refresh its heartbeat",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := registry.ParseStatus(args[2])
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, _ *logger.Logger) error {
				if err := store.UpdateStatus(ctx, args[0], args[1], status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s at %s is %s\n", args[0], registry.NormalizeAddress(args[1]), status)
				return nil
			})
		},
	}
}

func newResolveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Print the address the gateway would call for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, _ *logger.Logger) error {
				addr, err := store.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr)
				return nil
			})
		},
	}
}

func newCleanupCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove instances whose heartbeat is stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, _ *logger.Logger) error {
				removed, err := store.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale instance(s)\n", removed)
				return nil
			})
		},
	}
}

func newHeartbeatCmd(flags *rootFlags) *cobra.Command {
	var (
		interval time.Duration
		up       bool
	)
	cmd := &cobra.Command{
		Use:   "heartbeat <name> <address>",
		Short: "Register an instance and keep it fresh until interrupted",
		Long: `Register an instance and refresh its heartbeat every interval until
SIGINT or SIGTERM, then deregister it. Use it for backends that cannot
register themselves.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, store registry.Store, log *logger.Logger) error {
				agent := registry.NewAgent(store, registry.AgentConfig{
					Name:     args[0],
					Address:  args[1],
					Interval: interval,
					ReportUp: up,
				}, log)
				if err := agent.Start(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "heartbeating %s at %s every %s\n", args[0], registry.NormalizeAddress(args[1]), interval)
				<-ctx.Done()

				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return agent.Stop(stopCtx)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", registry.DefaultHeartbeatInterval, "heartbeat period")
	cmd.Flags().BoolVar(&up, "up", false, "report UP on every heartbeat instead of waiting for the prober")
	return cmd
}
