package commands

import (
	"github.com/spf13/cobra"

	"github.com/flowsight/flowsight/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

// Execute builds the root command tree and runs it against os.Args.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowtrace",
		Short: "Reconstruct operator graphs and statistics from dataflow event logs",
		Long: "flowtrace replays structured event logs emitted by a distributed dataflow\n" +
			"runtime and reconstructs a cross-worker picture of the computation: the\n" +
			"operator/channel graph, per-operator activation statistics, program and\n" +
			"worker rollups, and a per-worker start/stop timeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging and full trace sampling")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the startup banner and progress output")

	root.AddCommand(newRunCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newDescribeCommand())
	root.AddCommand(newMetricsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the flowtrace version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("flowtrace %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
			return nil
		},
	}
}
