package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/flowsight/flowsight/pkg/metrics"
	"github.com/flowsight/flowsight/pkg/pipeline"
)

// runConfigOptions describes the run command's configuration surface using
// the same self-describing shape the teacher gives its pluggable analyzer
// options, so the CLI's own --help text and a machine-readable listing stay
// grounded in one declarative source instead of diverging free-hand.
func runConfigOptions() []pipeline.ConfigurationOption {
	return []pipeline.ConfigurationOption{
		{Name: "workers", Flag: "workers", Type: pipeline.IntConfigurationOption, Default: 0,
			Description: "analyzer parallelism (0 = derive from memory budget)"},
		{Name: "timely_connections", Flag: "timely-connections", Type: pipeline.IntConfigurationOption, Default: 1,
			Description: "expected source fan-in per protocol (TCP mode)"},
		{Name: "replay_logs", Flag: "replay-logs", Type: pipeline.PathConfigurationOption, Default: "",
			Description: "directory of .ddshow replay log files"},
		{Name: "tcp_listen_addr", Flag: "tcp-listen-addr", Type: pipeline.StringConfigurationOption, Default: "",
			Description: "TCP listen address; run rejects it (live capture is the serve command's --listen-addr, timely connections only)"},
		{Name: "stream_encoding", Flag: "stream-encoding", Type: pipeline.StringConfigurationOption, Default: "self-describing",
			Description: "self-describing or legacy"},
		{Name: "memory_budget", Flag: "memory-budget", Type: pipeline.StringConfigurationOption, Default: "",
			Description: "total memory budget (e.g. 2GiB), drives worker-count sizing (fuel stays at the default)"},
		{Name: "disable_timeline", Flag: "disable-timeline", Type: pipeline.BoolConfigurationOption, Default: false,
			Description: "skip start/stop timeline correlation"},
		{Name: "dump_json", Flag: "dump-json", Type: pipeline.BoolConfigurationOption, Default: false,
			Description: "dump the full report as JSON"},
		{Name: "output_dir", Flag: "output-dir", Type: pipeline.PathConfigurationOption, Default: "./flowsight-report",
			Description: "directory for the report and rendered graph"},
	}
}

func newDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the run command's configuration options",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Flag", "Type", "Default", "Description"})
			for _, opt := range runConfigOptions() {
				t.AppendRow(table.Row{"--" + opt.Flag, opt.Type.String(), opt.FormatDefault(), opt.Description})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}

func newMetricsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "List the rollups the report assembles",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := metrics.StandardRegistry()
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Description"})
			for _, name := range sortedNames(registry) {
				m, _ := registry.Get(name)
				describer, ok := m.(interface {
					DisplayName() string
					Description() string
					Type() string
				})
				if !ok {
					continue
				}
				t.AppendRow(table.Row{describer.DisplayName(), describer.Type(), describer.Description()})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}

func sortedNames(r *metrics.Registry) []string {
	names := r.Names()
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
