package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowsight/flowsight/pkg/budget"
	"github.com/flowsight/flowsight/pkg/config"
	"github.com/flowsight/flowsight/pkg/correlate"
	"github.com/flowsight/flowsight/pkg/dfstats"
	"github.com/flowsight/flowsight/pkg/events"
	"github.com/flowsight/flowsight/pkg/extractor"
	"github.com/flowsight/flowsight/pkg/framing"
	"github.com/flowsight/flowsight/pkg/observability"
	"github.com/flowsight/flowsight/pkg/opstats"
	"github.com/flowsight/flowsight/pkg/progress"
	"github.com/flowsight/flowsight/pkg/progstats"
	"github.com/flowsight/flowsight/pkg/replay"
	"github.com/flowsight/flowsight/pkg/report"
	"github.com/flowsight/flowsight/pkg/rewire"
	"github.com/flowsight/flowsight/pkg/safeconv"
	"github.com/flowsight/flowsight/pkg/sink"
	"github.com/flowsight/flowsight/pkg/streaming"
	"github.com/flowsight/flowsight/pkg/wire"
)

// pipelineDeps is everything runPipeline needs, collected so the run
// command can inject a fake for testing without touching real sources.
type pipelineDeps struct {
	cfg             *config.Config
	providers       observability.Providers
	redMetrics      *observability.REDMetrics
	analysisMetrics *observability.AnalysisMetrics
	quiet           bool
}

// Report is what the CLI hands to the report/render layer: the core's
// derived collections plus the list of replay files that were opened and
// the operator labels (the banner prints only per-kind file counts).
type Report struct {
	report.Report
	Sources        []string
	OperatorLabels map[string]string
}

func discoverWorkerCount(cfg *config.Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	budgetBytes, err := cfg.MemoryBudgetBytes()
	if err != nil || budgetBytes == 0 {
		return budget.DefaultAnalyzerConfig().Workers
	}
	acfg, err := budget.SolveForBudget(budgetBytes)
	if err != nil {
		return budget.DefaultAnalyzerConfig().Workers
	}
	return acfg.Workers
}

// discoverReplayFiles groups every *.ddshow file under dir by its stream
// kind, keyed on the basename prefix convention in §6 ("timely", "differential", "progress").
func discoverReplayFiles(dir string) (timely, differential, prog []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read replay-logs dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".ddshow" {
			continue
		}
		full := filepath.Join(dir, e.Name())
		switch {
		case strings.HasPrefix(e.Name(), "timely"):
			timely = append(timely, full)
		case strings.HasPrefix(e.Name(), "differential"):
			differential = append(differential, full)
		case strings.HasPrefix(e.Name(), "progress"):
			prog = append(prog, full)
		}
	}
	return timely, differential, prog, nil
}

// runPipeline discovers sources, assigns them to workers, replays and
// extracts every worker's events concurrently, then rewires and aggregates
// the results into one Report.
func runPipeline(ctx context.Context, deps pipelineDeps) (Report, error) {
	cfg := deps.cfg
	log := deps.providers.Logger

	if cfg.TCPListenAddr != "" {
		return Report{}, fmt.Errorf("tcp-listen-addr run mode requires an active accept loop: %w", errTCPModeUnimplementedHere)
	}

	timelyFiles, differentialFiles, progressFiles, err := discoverReplayFiles(cfg.ReplayLogs)
	if err != nil {
		return Report{}, err
	}
	if len(timelyFiles) == 0 {
		log.WarnContext(ctx, "missing expected source: no timely.*.ddshow files found", "dir", cfg.ReplayLogs)
	}

	workers := discoverWorkerCount(cfg)
	planner := &streaming.Planner{Workers: workers}
	timelyPlan := planner.Plan(timelyFiles)
	differentialPlan := planner.Plan(differentialFiles)
	progressPlan := planner.Plan(progressFiles)

	// A config flag set true forces a channel on; left false, enablement
	// defers to the Detector's auto-sampling (§4.A/§6: differential and
	// progress channels are optional per source).
	detector := streaming.NewDetector(autoModeFor(cfg.DifferentialEnabled), autoModeFor(cfg.ProgressEnabled))
	detector.Observe(len(differentialFiles) > 0, len(progressFiles) > 0)

	printBanner(deps, timelyPlan, differentialPlan, progressPlan)

	isRunning := replay.NewRunningFlag()
	guard := streaming.NewShutdownGuard(isRunning, log)
	defer guard.Close()
	go func() {
		<-ctx.Done()
		isRunning.Store(false)
	}()

	encoding := framing.SelfDescribing
	if config.StreamEncoding(cfg.StreamEncoding) == config.EncodingLegacy {
		encoding = framing.Legacy
	}

	var (
		mu               sync.Mutex
		allOperatorStats []events.OperatorStats
		allDataflows     []events.DataflowStats
		allChannels      []events.Channel
		workerStats      = make(map[events.WorkerId]events.CountStats)
		operatorLabels   = make(map[string]string)
		progressAgg      = progress.New()
	)
	// Operator Stats is the one derived collection routed through the Sink
	// Layer end to end (§4.I): one bounded sink per worker, drained here by
	// a single fuel-governed Extractor once every worker has closed its
	// sink. The other collections are merged directly under mu, since
	// nothing downstream needs their backpressure semantics.
	opStatsSink := sink.NewExtractor()
	opSinks := make([]*sink.Sink[events.OperatorStats], workers)
	for w := 0; w < workers; w++ {
		s := sink.New[events.OperatorStats](fmt.Sprintf("operator_stats.worker_%d", w))
		opSinks[w] = s
		sink.Attach(opStatsSink, s, func(b sink.Batch[events.OperatorStats]) {
			mu.Lock()
			allOperatorStats = append(allOperatorStats, b.Data...)
			mu.Unlock()
		})
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()

			res, err := runWorker(ctx, workerInputs{
				worker:       events.WorkerId(safeconv.MustIntToUint(w)),
				timelyPaths:  pathsFor(timelyPlan, w),
				diffPaths:    pathsFor(differentialPlan, w),
				progPaths:    pathsFor(progressPlan, w),
				encoding:     encoding,
				isRunning:    isRunning,
				saveLogsDir:  cfg.SaveLogs,
				timelineOn:   !cfg.DisableTimeline,
				detector:     detector,
				progressAgg:  progressAgg,
				opSink:       opSinks[w],
				mu:           &mu,
			})
			if err != nil {
				log.ErrorContext(ctx, "worker failed", "worker", w, "err", err)
				isRunning.Store(false)
				return
			}

			mu.Lock()
			allDataflows = append(allDataflows, res.dataflowStats...)
			allChannels = append(allChannels, res.channels...)
			workerStats[events.WorkerId(safeconv.MustIntToUint(w))] = res.countStats
			for k, name := range res.operatorLabels {
				operatorLabels[k] = name
			}
			mu.Unlock()

			deps.analysisMetrics.RecordRun(ctx, observability.AnalysisStats{
				Events: int64(res.countStats.Events),
			})
		}()
	}
	wg.Wait()

	for !opStatsSink.Drain(sink.DefaultFuel) {
	}

	rpt := Report{
		Report: report.Report{
			ProgramStats:    progstats.ProgramStats(valuesOf(workerStats)),
			WorkerStats:     workerStats,
			Dataflows:       allDataflows,
			AggregatedStats: opstats.Aggregate(allOperatorStats),
			Channels:        allChannels,
			Progress:        progressAgg.Results(),
		},
		Sources:        append(append(append([]string{}, timelyFiles...), differentialFiles...), progressFiles...),
		OperatorLabels: operatorLabels,
	}

	return rpt, nil
}

func valuesOf(m map[events.WorkerId]events.CountStats) []events.CountStats {
	out := make([]events.CountStats, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// autoModeFor turns a config force-enable flag into a streaming.Mode: true
// always enables the channel, false leaves it to the Detector's sampling
// rather than forcing it off.
func autoModeFor(enabled bool) streaming.Mode {
	if enabled {
		return streaming.ModeOn
	}
	return streaming.ModeAuto
}

func pathsFor(plan []streaming.WorkerAssignment, worker int) []string {
	for _, a := range plan {
		if a.Worker == worker {
			return a.Paths
		}
	}
	return nil
}

type workerInputs struct {
	worker      events.WorkerId
	timelyPaths []string
	diffPaths   []string
	progPaths   []string
	encoding    framing.Encoding
	isRunning   *atomic.Bool
	saveLogsDir string
	timelineOn  bool
	detector    *streaming.Detector
	progressAgg *progress.Aggregator
	opSink      *sink.Sink[events.OperatorStats]
	mu          *sync.Mutex
}

type workerResult struct {
	dataflowStats []events.DataflowStats
	channels      []events.Channel
	countStats    events.CountStats
	// operatorStats is populated only by the live-capture path (serve.go),
	// which has no Sink Layer extractor draining it centrally; the offline
	// path routes operator stats through opSink instead.
	operatorStats []events.OperatorStats
	// operatorLabels maps an operator address key to its resolved name,
	// for the HTML graph's node labels.
	operatorLabels map[string]string
}

// runWorker replays and extracts one analyzer partition's sources to
// completion, then computes its local rewire/stats rollups.
func runWorker(ctx context.Context, in workerInputs) (workerResult, error) {
	timelySources, timelyClosers, err := openSources(in.timelyPaths, in.encoding, in.saveLogsDir, wire.DecodeTimely)
	if err != nil {
		return workerResult{}, err
	}
	defer closeAll(timelyClosers)

	timelyDriver := replay.New(timelySources, in.isRunning, replay.Config{}, workerLogger{})

	ex := extractor.New(in.worker, in.timelineOn)
	opBuilder := opstats.NewBuilder()
	mergeCorrelator := correlate.New()

	var eventCount uint64
	var minT, maxT events.TimeNanos
	var haveEvents bool
	trackEvent := func(t events.TimeNanos) {
		eventCount++
		if !haveEvents || t < minT {
			minT = t
		}
		if !haveEvents || t > maxT {
			maxT = t
		}
		haveEvents = true
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			action := timelyDriver.Activate()
			if action == replay.Terminate {
				return
			}
			time.Sleep(timelyDriver.ReactivateDelay())
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for out := range timelyDriver.Output {
			for _, d := range out.Data {
				trackEvent(out.Time)
				ex.Enqueue(events.Envelope[events.TimelyEvent]{Time: out.Time, Worker: in.worker, Data: d})
			}
		}
	}()

	if len(in.diffPaths) > 0 && in.detector.DifferentialEnabled() {
		diffSources, diffClosers, err := openSources(in.diffPaths, in.encoding, in.saveLogsDir, wire.DecodeDifferential)
		if err != nil {
			return workerResult{}, err
		}
		defer closeAll(diffClosers)
		diffDriver := replay.New(diffSources, in.isRunning, replay.Config{}, workerLogger{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				if diffDriver.Activate() == replay.Terminate {
					return
				}
				time.Sleep(diffDriver.ReactivateDelay())
			}
		}()
		go func() {
			defer wg.Done()
			for out := range diffDriver.Output {
				for _, d := range out.Data {
					trackEvent(out.Time)
					processMerge(mergeCorrelator, opBuilder, in.worker, out.Time, d)
				}
			}
		}()
	}

	if len(in.progPaths) > 0 && in.detector.ProgressEnabled() {
		progSources, progClosers, err := openSources(in.progPaths, in.encoding, in.saveLogsDir, wire.DecodeProgress)
		if err != nil {
			return workerResult{}, err
		}
		defer closeAll(progClosers)
		progDriver := replay.New(progSources, in.isRunning, replay.Config{}, workerLogger{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				if progDriver.Activate() == replay.Terminate {
					return
				}
				time.Sleep(progDriver.ReactivateDelay())
			}
		}()
		go func() {
			defer wg.Done()
			for out := range progDriver.Output {
				for _, d := range out.Data {
					trackEvent(out.Time)
					in.mu.Lock()
					in.progressAgg.Add(d)
					in.mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	for ex.Drain(extractor.DefaultFuel) {
	}

	outputs := ex.Outputs()
	for _, a := range outputs.ActivationDurations {
		opBuilder.AddActivation(a.WorkerOperator, a.Duration)
	}

	var addrs []events.OperatorAddr
	labels := make(map[string]string, len(outputs.OperatorAddrs))
	for wo, addr := range outputs.OperatorAddrs {
		addrs = append(addrs, addr)
		if name := outputs.OperatorNames[wo]; name != "" {
			labels[addr.Key()] = name
		}
	}
	subgraphs := rewire.BuildSubgraphSet(addrs)
	channels := rewire.Rewire(outputs.RawChannels, subgraphs)

	lifespans := make(map[events.OperatorId]events.Lifespan)
	for _, l := range outputs.Lifespans {
		lifespans[l.Operator] = l.Lifespan
	}
	var channelScopes []events.OperatorAddr
	for _, s := range outputs.ChannelScopeAddrs {
		channelScopes = append(channelScopes, s)
	}
	var dataflowIds []events.OperatorId
	for _, wo := range outputs.DataflowIds {
		dataflowIds = append(dataflowIds, wo.Operator)
	}
	addrsByOp := make(map[events.OperatorId]events.OperatorAddr, len(outputs.OperatorAddrs))
	for wo, addr := range outputs.OperatorAddrs {
		addrsByOp[wo.Operator] = addr
	}

	dataflowStats := dfstats.Compute(dfstats.Input{
		Worker:        in.worker,
		OperatorAddrs: addrsByOp,
		Subgraphs:     subgraphs,
		ChannelScopes: channelScopes,
		Lifespans:     lifespans,
		DataflowIds:   dataflowIds,
	})

	operatorStats := opBuilder.Stats()
	for !in.opSink.TrySend(sink.Batch[events.OperatorStats]{Data: operatorStats}) {
		// Bounded sink is momentarily full; the consuming Extractor is
		// fuel-governed, not always-on, so a producer retries rather than
		// blocking (§4.I backpressure contract).
		time.Sleep(replay.DefaultReactivateDelay)
	}
	in.opSink.Close()

	countStats := progstats.WorkerStats(progstats.WorkerInput{
		Worker:    in.worker,
		Dataflows: uint64(len(dataflowIds)),
		Operators: uint64(len(outputs.RawOperators)),
		Subgraphs: uint64(len(subgraphs)),
		Channels:  uint64(len(channels)),
		Events:    eventCount,
		MinEventT: minT,
		MaxEventT: maxT,
		HasEvents: haveEvents,
	})

	return workerResult{
		dataflowStats:  dataflowStats,
		channels:       channels,
		countStats:     countStats,
		operatorLabels: labels,
	}, nil
}

// processMerge folds one DifferentialEvent into the worker's merge
// correlator and, on a closed span, records arrangement-maintenance
// activity against the operator's stats (§4.F: merge-event durations are
// bucketed per operator into a best-effort arrangement-size band).
func processMerge(c *correlate.Correlator, b *opstats.Builder, worker events.WorkerId, t events.TimeNanos, d events.DifferentialEvent) {
	op := d.Merge.Operator
	if d.Merge.Outcome == events.MergeBegin {
		c.MergeStart(worker, op, t)
		return
	}
	if _, ok := c.MergeClose(worker, op, t); ok {
		b.AddMergeActivity(events.WorkerOperator{Worker: worker, Operator: op})
	}
}

// openSources opens one framing.Source per path, returning every
// underlying closer (the source file, plus its --save-logs tee target if
// any) so the caller can release them once the driver built over these
// sources has terminated.
func openSources[T any](paths []string, enc framing.Encoding, saveLogsDir string, decode framing.Decode[T]) ([]*framing.Source[T], []io.Closer, error) {
	sources := make([]*framing.Source[T], 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("open %s: %w", p, err)
		}
		closers = append(closers, f)

		var r io.Reader = f
		if saveLogsDir != "" {
			tee, terr := os.Create(filepath.Join(saveLogsDir, filepath.Base(p)+".copy"))
			if terr == nil {
				r = io.TeeReader(f, tee)
				closers = append(closers, tee)
			}
		}
		sources = append(sources, framing.NewSource(r, enc, decode))
	}
	return sources, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

// errTCPModeUnimplementedHere marks that the live-capture accept loop
// lives in serve.go, not here; runPipeline only handles offline replay.
var errTCPModeUnimplementedHere = fmt.Errorf("use the serve command for tcp-listen-addr")

type workerLogger struct{}

func (workerLogger) Warn(msg string, args ...any)  {}
func (workerLogger) Debug(msg string, args ...any) {}
