package commands

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowsight/flowsight/pkg/config"
	"github.com/flowsight/flowsight/pkg/events"
	"github.com/flowsight/flowsight/pkg/extractor"
	"github.com/flowsight/flowsight/pkg/framing"
	"github.com/flowsight/flowsight/pkg/observability"
	"github.com/flowsight/flowsight/pkg/opstats"
	"github.com/flowsight/flowsight/pkg/replay"
	"github.com/flowsight/flowsight/pkg/report"
	"github.com/flowsight/flowsight/pkg/rewire"
	"github.com/flowsight/flowsight/pkg/safeconv"
	"github.com/flowsight/flowsight/pkg/wire"
)

// newServeCommand implements the live-capture run mode (§6 tcp_listen_addr):
// one timely connection per worker, accepted and replayed as it arrives
// rather than read back from a directory of files. Differential and
// progress connections are not accepted in this mode — live capture only
// reconstructs the operator/channel graph and activation stats, the subset
// that needs no cross-connection correlation buffer.
func newServeCommand() *cobra.Command {
	var flagListenAddr string
	var flagConnections int
	var flagOTLPEndpoint string
	var flagDiagnosticsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept live timely connections and report as workers disconnect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flagListenAddr != "" {
				cfg.TCPListenAddr = flagListenAddr
			}
			if cfg.TCPListenAddr == "" {
				return fmt.Errorf("serve: --listen-addr is required")
			}
			if flagConnections > 0 {
				cfg.TimelyConnections = flagConnections
			}

			obsCfg := observability.DefaultConfig()
			obsCfg.Mode = observability.ModeServe
			if flagOTLPEndpoint != "" {
				obsCfg.OTLPEndpoint = flagOTLPEndpoint
			}
			providers, err := observability.Init(obsCfg)
			if err != nil {
				return fmt.Errorf("init observability: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = providers.Shutdown(shutdownCtx)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.TCPListenAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.TCPListenAddr, err)
			}
			defer ln.Close()

			if flagDiagnosticsAddr != "" {
				diag, err := observability.NewDiagnosticsServer(flagDiagnosticsAddr)
				if err != nil {
					return fmt.Errorf("start diagnostics server: %w", err)
				}
				defer diag.Close()
				providers.Logger.InfoContext(ctx, "diagnostics server listening", "addr", diag.Addr())
			}

			providers.Logger.InfoContext(ctx, "flowtrace: accepting live timely connections",
				"addr", cfg.TCPListenAddr, "want_connections", cfg.TimelyConnections)

			results := make(chan workerResult, cfg.TimelyConnections)
			var accepted atomic.Int64

			go func() {
				<-ctx.Done()
				_ = ln.Close()
			}()

			for i := 0; i < cfg.TimelyConnections; i++ {
				conn, err := ln.Accept()
				if err != nil {
					providers.Logger.WarnContext(ctx, "accept failed, stopping early", "err", err)
					break
				}
				accepted.Add(1)
				go func(worker int) {
					observability.ConnMiddleware(providers.Tracer, providers.Logger, conn, func(c net.Conn) {
						res, err := serveOneConnection(events.WorkerId(safeconv.MustIntToUint(worker)), c)
						if err != nil {
							providers.Logger.ErrorContext(ctx, "connection replay failed", "worker", worker, "err", err)
							return
						}
						results <- res
					})
				}(i)
			}

			var allChannels []events.Channel
			var allDataflows []events.DataflowStats
			var allOperatorStats []events.OperatorStats
			workerStats := make(map[events.WorkerId]events.CountStats)
			for i := int64(0); i < accepted.Load(); i++ {
				res := <-results
				allChannels = append(allChannels, res.channels...)
				allDataflows = append(allDataflows, res.dataflowStats...)
				allOperatorStats = append(allOperatorStats, res.operatorStats...)
				workerStats[events.WorkerId(i)] = res.countStats
			}

			rpt := report.Report{
				WorkerStats:     workerStats,
				Dataflows:       allDataflows,
				Channels:        allChannels,
				AggregatedStats: opstats.Aggregate(allOperatorStats),
			}
			return report.WriteText(cmd.OutOrStdout(), rpt)
		},
	}

	cmd.Flags().StringVar(&flagListenAddr, "listen-addr", "", "TCP address to accept timely connections on")
	cmd.Flags().IntVar(&flagConnections, "connections", 0, "number of worker connections to accept before reporting")
	cmd.Flags().StringVar(&flagOTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address")
	cmd.Flags().StringVar(&flagDiagnosticsAddr, "diagnostics-addr", "", "address to serve /healthz, /readyz, and /metrics on")
	return cmd
}

// serveOneConnection replays a single live timely connection to
// completion (the peer closing the socket is this source's EOF) and
// computes that worker's rewired channels, operator/subgraph/channel counts
// and operator stats, a subset of the offline per-worker path in
// pipeline.go: no differential/progress legs and no dataflow stats.
func serveOneConnection(worker events.WorkerId, conn net.Conn) (workerResult, error) {
	isRunning := replay.NewRunningFlag()
	source := framing.NewSource[replay.WireEvent[events.TimelyEvent]](conn, framing.SelfDescribing, wire.DecodeTimely)
	driver := replay.New([]*framing.Source[replay.WireEvent[events.TimelyEvent]]{source}, isRunning, replay.Config{}, workerLogger{})

	ex := extractor.New(worker, false)
	opBuilder := opstats.NewBuilder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if driver.Activate() == replay.Terminate {
				return
			}
			time.Sleep(driver.ReactivateDelay())
		}
	}()
	for out := range driver.Output {
		for _, d := range out.Data {
			ex.Enqueue(events.Envelope[events.TimelyEvent]{Time: out.Time, Worker: worker, Data: d})
		}
	}
	<-done

	for ex.Drain(extractor.DefaultFuel) {
	}
	outputs := ex.Outputs()
	for _, a := range outputs.ActivationDurations {
		opBuilder.AddActivation(a.WorkerOperator, a.Duration)
	}

	var addrs []events.OperatorAddr
	for _, addr := range outputs.OperatorAddrs {
		addrs = append(addrs, addr)
	}
	subgraphs := rewire.BuildSubgraphSet(addrs)
	channels := rewire.Rewire(outputs.RawChannels, subgraphs)

	countStats := events.CountStats{
		Workers:   1,
		Operators: uint64(len(outputs.RawOperators)),
		Subgraphs: uint64(len(subgraphs)),
		Channels:  uint64(len(channels)),
	}

	return workerResult{channels: channels, countStats: countStats, operatorStats: opBuilder.Stats()}, nil
}
