package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cachebench/internal/protocol"
	"cachebench/internal/topology"
)

func newTopologyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "topology [experiment-size]",
		Short: "Print each host's role for a phase",
		Long: `Print the role of every host for the given experiment size, or for the
setup phase when no size is given. Nothing is contacted.`,
		Example: `  cachebench topology
  cachebench topology 8`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := opts.cfg.ToTopology()
			if err != nil {
				return err
			}

			size := topology.SetupSize
			if len(args) == 1 {
				size, err = strconv.Atoi(args[0])
				if err != nil || size < 0 {
					return fmt.Errorf("experiment size must be a non-negative integer, got %q", args[0])
				}
			}
			return printRoles(cmd.OutOrStdout(), topo, size)
		},
	}
}

// printRoles は各ホストの役割を表形式で出力する
func printRoles(out io.Writer, topo *topology.Topology, size int) error {
	req := protocol.RunRequest{ExperimentSize: size}
	fmt.Fprintf(out, "Phase: %s, cluster size: %d\n", req, topo.Size())
	if !req.IsSetup() {
		fmt.Fprintf(out, "Servers: %s\n", topo.ServerList(size))
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tHOST\tROLE")
	for i, host := range topo.Hosts() {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, host, topo.RoleOf(i, size))
	}
	return w.Flush()
}
