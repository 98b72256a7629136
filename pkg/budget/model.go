// Package budget computes analyzer resource allocation (worker count,
// decode-window and sink-buffer sizing) proportional to a single memory
// budget; fuel per activation is always DefaultFuel and is not scaled. It
// uses the same percentage-allocation strategy the
// teacher codebase uses for its own memory planning, repurposed here for
// the dataflow-log analyzer's resource shape instead of a git-history
// pipeline's blob/diff caches.
package budget

import "github.com/flowsight/flowsight/pkg/units"

// Size unit multipliers (binary, 1024-based), re-exported from pkg/units so
// callers outside this package don't need a second import for budget math.
const (
	KiB = units.KiB
	MiB = units.MiB
	GiB = units.GiB
)

// Component memory sizes, mirrored from the analogous git-pipeline
// constants but re-measured against the analyzer's own shape: per-worker
// dataflow state, the framed-source decode window, and sink channel
// buffers.
const (
	// BaseOverhead is the fixed Go runtime overhead plus the incremental
	// engine's bookkeeping structures, independent of worker count.
	BaseOverhead = 64 * MiB

	// WorkerStateOverhead is the per-worker memory for its dataflow copy:
	// the event_map stacks, lifespan/activation maps, and operator
	// address index.
	WorkerStateOverhead = 16 * MiB

	// MinDecodeWindow is the smallest allowed Framed Event Source sliding
	// decode window (§4.A requires an initial capacity >= 1 MiB).
	MinDecodeWindow = 1 * MiB

	// MaxDecodeWindow caps the per-source decode window; beyond this,
	// enlarging the window only helps pathologically large single
	// frames, which are rare.
	MaxDecodeWindow = 16 * MiB

	// AvgSinkBatchSize estimates the bytes held in one buffered sink
	// batch, used to size the SPSC channel capacity's memory footprint.
	AvgSinkBatchSize = 64 * KiB
)

// Allocation percentages of the usable (post-overhead) budget.
const (
	WorkerAllocationPercent = 60
	DecodeWindowPercent     = 25
	SinkBufferPercent       = 15
	percentDivisor          = 100
)

// Resource bounds.
const (
	MinWorkers           = 1
	MaxWorkers           = 256
	MinFuelPerActivation = 10_000
	DefaultFuel          = 1_000_000
	MinimumBudget        = 128 * MiB
)

// AnalyzerConfig is the resource shape the Replay Driver, Framed Event
// Source, and Sink Layer are configured with.
type AnalyzerConfig struct {
	Workers           int
	DecodeWindowBytes int64
	FuelPerActivation int64
	SinkBufferBatches int
}

// DefaultAnalyzerConfig returns a config usable with no budget solver at
// all — the zero-config path.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Workers:           MinWorkers,
		DecodeWindowBytes: MinDecodeWindow,
		FuelPerActivation: DefaultFuel,
		SinkBufferBatches: 2,
	}
}

// EstimateMemoryUsage approximates total resident memory for cfg, the
// inverse of SolveForBudget, for checking that a solved configuration fits
// back under its budget; SolveForBudget does not call it itself.
func EstimateMemoryUsage(cfg AnalyzerConfig) int64 {
	workerMemory := int64(cfg.Workers) * WorkerStateOverhead
	decodeMemory := int64(cfg.Workers) * cfg.DecodeWindowBytes
	sinkMemory := int64(cfg.SinkBufferBatches) * AvgSinkBatchSize
	return BaseOverhead + workerMemory + decodeMemory + sinkMemory
}
