package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cachebench/internal/loadgen"
	"cachebench/internal/logger"
	"cachebench/internal/topology"
	"cachebench/internal/worker"
)

func newWorkerCmd(opts *options) *cobra.Command {
	var (
		index  int
		listen string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the per-host benchmark worker",
		Long: `Run the worker service on this host.

The worker accepts one command per connection, fills its own cache or
generates load when its index has a role in the requested phase, and
acknowledges with a single byte once the load generator has exited.`,
		Example: `  # resolve the index from this machine's addresses
  cachebench worker

  # explicit index and listen address
  cachebench worker --index 3 --listen :15000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := opts.cfg.ToTopology()
			if err != nil {
				return err
			}

			cfg, err := opts.cfg.ToWorkerConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}

			cfg.Index, err = resolveIndex(topo, index)
			if err != nil {
				return err
			}

			host, _ := topo.HostAt(cfg.Index)
			runner := &loadgen.ExecRunner{
				Stdout: opts.log.Writer(logger.LevelInfo, host),
				Stderr: opts.log.Writer(logger.LevelWarn, host),
			}

			srv, err := worker.New(cfg, topo, runner)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&index, "index", -1, "this host's index in the cluster (default: resolve from local addresses)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: :<worker_port>)")
	return cmd
}

// resolveIndex は明示指定がなければローカルアドレスから自ホストのインデックスを求める
func resolveIndex(topo *topology.Topology, index int) (int, error) {
	if index >= 0 {
		if _, err := topo.HostAt(index); err != nil {
			return -1, fmt.Errorf("--index: %w", err)
		}
		return index, nil
	}

	candidates, err := topology.LocalAddresses()
	if err != nil && len(candidates) == 0 {
		return -1, err
	}
	i, err := topo.Resolve(candidates)
	if err != nil {
		return -1, fmt.Errorf("%w; pass --index explicitly", err)
	}
	logger.Info("", "Resolved worker index %d from local addresses", i)
	return i, nil
}
