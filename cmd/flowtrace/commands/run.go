package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowsight/flowsight/pkg/config"
	"github.com/flowsight/flowsight/pkg/observability"
	"github.com/flowsight/flowsight/pkg/version"
)

// RunCommand bundles the run subcommand's behavior behind injectable
// function fields, so a test can substitute a fake config loader,
// observability initializer, or pipeline runner without touching the real
// filesystem, OTLP endpoint, or dataflow sources.
type RunCommand struct {
	loadConfig        func(configPath string) (*config.Config, error)
	initObservability func(cfg config.Config) (observability.Providers, error)
	runPipeline       func(ctx context.Context, deps pipelineDeps) (Report, error)
}

// NewRunCommand returns a RunCommand wired to the real implementations.
func NewRunCommand() *RunCommand {
	return &RunCommand{
		loadConfig:        config.LoadConfig,
		initObservability: observability.Init,
		runPipeline:       runPipeline,
	}
}

func newRunCommand() *cobra.Command {
	rc := NewRunCommand()

	var (
		flagConfigPath      string
		flagWorkers         int
		flagTimelyConns     int
		flagReplayLogs      string
		flagTCPListenAddr   string
		flagStreamEncoding  string
		flagSaveLogs        string
		flagMemoryBudget    string
		flagDisableTimeline bool
		flagDumpJSON        bool
		flagNoReportFile    bool
		flagReportFile      string
		flagOutputDir       string
		flagOTLPEndpoint    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay event logs and produce a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.loadConfig(flagConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			applyFlagOverrides(cfg, flagOverrides{
				workers:         flagWorkers,
				timelyConns:     flagTimelyConns,
				replayLogs:      flagReplayLogs,
				tcpListenAddr:   flagTCPListenAddr,
				streamEncoding:  flagStreamEncoding,
				saveLogs:        flagSaveLogs,
				memoryBudget:    flagMemoryBudget,
				disableTimeline: flagDisableTimeline,
				dumpJSON:        flagDumpJSON,
				noReportFile:    flagNoReportFile,
				reportFile:      flagReportFile,
				outputDir:       flagOutputDir,
			}, cmd.Flags())

			obsCfg := observability.DefaultConfig()
			obsCfg.ServiceVersion = version.Version
			if flagOTLPEndpoint != "" {
				obsCfg.OTLPEndpoint = flagOTLPEndpoint
			} else {
				obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
			}
			if verbose {
				obsCfg.LogLevel = slog.LevelDebug
				obsCfg.DebugTrace = true
			}
			if cfg.TCPListenAddr != "" {
				obsCfg.Mode = observability.ModeServe
			}

			providers, err := rc.initObservability(obsCfg)
			if err != nil {
				return fmt.Errorf("init observability: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = providers.Shutdown(shutdownCtx)
			}()

			redMetrics, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return fmt.Errorf("create RED metrics: %w", err)
			}
			analysisMetrics, err := observability.NewAnalysisMetrics(providers.Meter)
			if err != nil {
				return fmt.Errorf("create analysis metrics: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctx, span := providers.Tracer.Start(ctx, "flowtrace.run", trace.WithAttributes(
				attribute.String("source.kind", sourceKind(cfg)),
			))
			defer span.End()

			start := time.Now()
			done := redMetrics.TrackInflight(ctx, "run")
			defer done()

			rpt, err := rc.runPipeline(ctx, pipelineDeps{
				cfg:             cfg,
				providers:       providers,
				redMetrics:      redMetrics,
				analysisMetrics: analysisMetrics,
				quiet:           quiet,
			})

			status := "ok"
			if err != nil {
				status = "error"
				observability.RecordSpanError(span, err, observability.ErrTypeFatalSource, observability.ErrSourceStream)
			}
			redMetrics.RecordRequest(ctx, "run", status, time.Since(start))

			if err != nil {
				return err
			}

			return writeReport(cmd, cfg, rpt)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&flagConfigPath, "config", "", "path to a flowsight config file")
	flags.IntVar(&flagWorkers, "workers", 0, "analyzer parallelism (0 = derive from memory budget)")
	flags.IntVar(&flagTimelyConns, "timely-connections", 0, "expected source fan-in per protocol (TCP mode)")
	flags.StringVar(&flagReplayLogs, "replay-logs", "", "directory of .ddshow replay log files")
	flags.StringVar(&flagTCPListenAddr, "tcp-listen-addr", "", "TCP listen address; run rejects it (live capture is the serve command's --listen-addr, timely connections only)")
	flags.StringVar(&flagStreamEncoding, "stream-encoding", "", "self-describing or legacy")
	flags.StringVar(&flagSaveLogs, "save-logs", "", "directory to tee incoming event streams into")
	flags.StringVar(&flagMemoryBudget, "memory-budget", "", "total memory budget (e.g. 2GiB), drives worker-count sizing (fuel stays at the default)")
	flags.BoolVar(&flagDisableTimeline, "disable-timeline", false, "skip start/stop timeline correlation")
	flags.BoolVar(&flagDumpJSON, "dump-json", false, "dump the full report as JSON")
	flags.BoolVar(&flagNoReportFile, "no-report-file", false, "write the report to stdout instead of a file")
	flags.StringVar(&flagReportFile, "report-file", "", "report file name, relative to --output-dir")
	flags.StringVar(&flagOutputDir, "output-dir", "", "directory for the report and rendered graph")
	flags.StringVar(&flagOTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address")

	return cmd
}

func sourceKind(cfg *config.Config) string {
	if cfg.TCPListenAddr != "" {
		return "tcp"
	}
	return "replay"
}

type flagOverrides struct {
	workers         int
	timelyConns     int
	replayLogs      string
	tcpListenAddr   string
	streamEncoding  string
	saveLogs        string
	memoryBudget    string
	disableTimeline bool
	dumpJSON        bool
	noReportFile    bool
	reportFile      string
	outputDir       string
}

// applyFlagOverrides layers explicitly-set CLI flags over the viper-loaded
// config, so a flag takes precedence only when the user actually passed it
// (cfg otherwise keeps its file/env/default value).
func applyFlagOverrides(cfg *config.Config, o flagOverrides, changed interface{ Changed(string) bool }) {
	if changed.Changed("workers") {
		cfg.Workers = o.workers
	}
	if changed.Changed("timely-connections") {
		cfg.TimelyConnections = o.timelyConns
	}
	if changed.Changed("replay-logs") {
		cfg.ReplayLogs = o.replayLogs
	}
	if changed.Changed("tcp-listen-addr") {
		cfg.TCPListenAddr = o.tcpListenAddr
	}
	if changed.Changed("stream-encoding") {
		cfg.StreamEncoding = o.streamEncoding
	}
	if changed.Changed("save-logs") {
		cfg.SaveLogs = o.saveLogs
	}
	if changed.Changed("memory-budget") {
		cfg.MemoryBudget = o.memoryBudget
	}
	if changed.Changed("disable-timeline") {
		cfg.DisableTimeline = o.disableTimeline
	}
	if changed.Changed("dump-json") {
		cfg.DumpJSON = o.dumpJSON
	}
	if changed.Changed("no-report-file") {
		cfg.NoReportFile = o.noReportFile
	}
	if changed.Changed("report-file") {
		cfg.ReportFile = o.reportFile
	}
	if changed.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
}
