package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cachebench/internal/coordinator"
	"cachebench/internal/events"
	"cachebench/internal/logger"
)

func newCoordinatorCmd(opts *options) *cobra.Command {
	var withSetup bool

	cmd := &cobra.Command{
		Use:   "coordinator <experiment-size>",
		Short: "Run one experiment and wait for every load generator",
		Long: `Send the experiment size to the load generating hosts and block until
all of them acknowledge.

For an experiment of size N the hosts [N/2, N) generate load against the
cache servers on the first N/2 hosts. Sizes 0 and 1 contact no host.`,
		Example: `  cachebench coordinator 8
  cachebench coordinator 16 --setup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.Atoi(args[0])
			if err != nil || size < 0 {
				return fmt.Errorf("experiment size must be a non-negative integer, got %q", args[0])
			}

			coord, err := newCoordinator(opts)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if withSetup {
				report, err := coord.RunSetup(ctx)
				if report != nil {
					fmt.Fprintln(cmd.OutOrStdout(), report)
				}
				if err != nil {
					return err
				}
			}

			report, err := coord.RunExperiment(ctx, size)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&withSetup, "setup", false, "run the fill phase before the experiment")
	return cmd
}

func newSetupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Fill the caches on the server hosts",
		Long: `Send the setup command to the lower half of the cluster. Each of those
hosts fills its own cache, and the command returns once all of them
acknowledge.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := newCoordinator(opts)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			report, err := coord.RunSetup(ctx)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

// newCoordinator は設定からコーディネーターを作成し、進捗イベントをデバッグログに流す
func newCoordinator(opts *options) (*coordinator.Coordinator, error) {
	topo, err := opts.cfg.ToTopology()
	if err != nil {
		return nil, err
	}
	cfg, err := opts.cfg.ToCoordinatorConfig()
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(cfg, topo)

	if opts.debug {
		bus := events.NewBus()
		bus.Listen(context.Background(), func(ev events.Event) {
			logger.Debug(ev.Host, "event %s phase=%s index=%d %+v", ev.Type, ev.PhaseID, ev.Index, ev.Data)
		})
		coord.SetEventBus(bus)
	}
	return coord, nil
}
