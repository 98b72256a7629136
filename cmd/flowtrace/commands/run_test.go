package commands

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/flowsight/flowsight/pkg/config"
)

func TestSourceKind_ReportsTCPWhenListenAddrSetOtherwiseReplay(t *testing.T) {
	require.Equal(t, "tcp", sourceKind(&config.Config{TCPListenAddr: "127.0.0.1:9000"}))
	require.Equal(t, "replay", sourceKind(&config.Config{}))
}

func TestNewRunCommand_WiresRealImplementationsByDefault(t *testing.T) {
	rc := NewRunCommand()
	require.NotNil(t, rc.loadConfig)
	require.NotNil(t, rc.initObservability)
	require.NotNil(t, rc.runPipeline)
}

func TestNewRunCommand_DefinesEveryDocumentedFlag(t *testing.T) {
	cmd := newRunCommand()
	for _, name := range []string{
		"config", "workers", "timely-connections", "replay-logs", "tcp-listen-addr",
		"stream-encoding", "save-logs", "memory-budget", "disable-timeline", "dump-json",
		"no-report-file", "report-file", "output-dir", "otlp-endpoint",
	} {
		require.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

// setChanged marks a flag as explicitly set on fs, the condition
// applyFlagOverrides checks before copying a flag's value onto cfg.
func setChanged(t *testing.T, fs *pflag.FlagSet, name, value string) {
	t.Helper()
	require.NoError(t, fs.Set(name, value))
}

func newOverrideFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 0, "")
	fs.Int("timely-connections", 0, "")
	fs.String("replay-logs", "", "")
	fs.String("tcp-listen-addr", "", "")
	fs.String("stream-encoding", "", "")
	fs.String("save-logs", "", "")
	fs.String("memory-budget", "", "")
	fs.Bool("disable-timeline", false, "")
	fs.Bool("dump-json", false, "")
	fs.Bool("no-report-file", false, "")
	fs.String("report-file", "", "")
	fs.String("output-dir", "", "")
	return fs
}

func TestApplyFlagOverrides_OnlyOverridesExplicitlyChangedFlags(t *testing.T) {
	fs := newOverrideFlagSet()
	setChanged(t, fs, "workers", "4")
	setChanged(t, fs, "dump-json", "true")

	cfg := &config.Config{Workers: 1, ReplayLogs: "/logs", DumpJSON: false}
	applyFlagOverrides(cfg, flagOverrides{workers: 4, replayLogs: "/ignored", dumpJSON: true}, fs)

	require.Equal(t, 4, cfg.Workers)
	require.True(t, cfg.DumpJSON)
	// replay-logs was never marked Changed, so the loaded config value survives.
	require.Equal(t, "/logs", cfg.ReplayLogs)
}

func TestApplyFlagOverrides_NoFlagsChangedLeavesConfigUntouched(t *testing.T) {
	fs := newOverrideFlagSet()
	cfg := &config.Config{Workers: 9, ReplayLogs: "/logs", StreamEncoding: "legacy"}
	applyFlagOverrides(cfg, flagOverrides{workers: 1, replayLogs: "/other", streamEncoding: "self_describing"}, fs)

	require.Equal(t, 9, cfg.Workers)
	require.Equal(t, "/logs", cfg.ReplayLogs)
	require.Equal(t, "legacy", cfg.StreamEncoding)
}

func TestApplyFlagOverrides_EveryFieldIsReachableWhenChanged(t *testing.T) {
	fs := newOverrideFlagSet()
	for _, name := range []string{
		"workers", "timely-connections", "replay-logs", "tcp-listen-addr", "stream-encoding",
		"save-logs", "memory-budget", "disable-timeline", "dump-json", "no-report-file",
		"report-file", "output-dir",
	} {
		f := fs.Lookup(name)
		require.NotNil(t, f)
		switch f.Value.Type() {
		case "bool":
			setChanged(t, fs, name, "true")
		case "int":
			setChanged(t, fs, name, "3")
		default:
			setChanged(t, fs, name, "x")
		}
	}

	cfg := &config.Config{}
	o := flagOverrides{
		workers: 3, timelyConns: 3, replayLogs: "x", tcpListenAddr: "x", streamEncoding: "x",
		saveLogs: "x", memoryBudget: "x", disableTimeline: true, dumpJSON: true,
		noReportFile: true, reportFile: "x", outputDir: "x",
	}
	applyFlagOverrides(cfg, o, fs)

	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 3, cfg.TimelyConnections)
	require.Equal(t, "x", cfg.ReplayLogs)
	require.Equal(t, "x", cfg.TCPListenAddr)
	require.Equal(t, "x", cfg.StreamEncoding)
	require.Equal(t, "x", cfg.SaveLogs)
	require.Equal(t, "x", cfg.MemoryBudget)
	require.True(t, cfg.DisableTimeline)
	require.True(t, cfg.DumpJSON)
	require.True(t, cfg.NoReportFile)
	require.Equal(t, "x", cfg.ReportFile)
	require.Equal(t, "x", cfg.OutputDir)
}
