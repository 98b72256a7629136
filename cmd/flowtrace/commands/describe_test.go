package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsight/flowsight/pkg/metrics"
)

func TestRunConfigOptions_CoversEveryDocumentedRunFlag(t *testing.T) {
	opts := runConfigOptions()
	flags := map[string]bool{}
	for _, o := range opts {
		flags[o.Flag] = true
	}
	for _, want := range []string{
		"workers", "timely-connections", "replay-logs", "tcp-listen-addr",
		"stream-encoding", "memory-budget", "disable-timeline", "dump-json", "output-dir",
	} {
		require.True(t, flags[want], "missing documented flag %q", want)
	}
}

func TestDescribeCommand_RendersAFlagTable(t *testing.T) {
	cmd := newDescribeCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.RunE(cmd, nil))

	rendered := out.String()
	require.Contains(t, rendered, "--workers")
	require.Contains(t, rendered, "--replay-logs")
	require.Contains(t, rendered, "Flag")
	require.Contains(t, rendered, "Description")
}

func TestMetricsCommand_RendersEveryStandardMetric(t *testing.T) {
	cmd := newMetricsCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.RunE(cmd, nil))

	rendered := out.String()
	registry := metrics.StandardRegistry()
	for _, name := range registry.Names() {
		m, ok := registry.Get(name)
		require.True(t, ok)
		describer, ok := m.(interface{ DisplayName() string })
		require.True(t, ok)
		require.Contains(t, rendered, describer.DisplayName())
	}
}

func TestSortedNames_ReturnsNamesInAscendingOrder(t *testing.T) {
	registry := metrics.StandardRegistry()
	names := sortedNames(registry)
	require.Len(t, names, len(registry.Names()))
	for i := 1; i < len(names); i++ {
		require.LessOrEqual(t, names[i-1], names[i])
	}
}
