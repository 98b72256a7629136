package budget

import (
	"errors"
	"runtime"
)

// SlackPercent is reserved for runtime overhead not otherwise modeled.
const SlackPercent = 5

// OptimalWorkerRatio is the percentage of CPU cores used as the worker
// count ceiling; contention overhead makes using every core counter-
// productive once past roughly this ratio.
const OptimalWorkerRatio = 75

// ErrBudgetTooSmall indicates the budget is below MinimumBudget.
var ErrBudgetTooSmall = errors.New("budget: memory budget is too small")

// SolveForBudget distributes a single memory budget across worker count,
// decode-window size, and sink buffer depth, the same proportional
// allocation strategy as the teacher's git-pipeline solver, retargeted at
// the analyzer's own resource shape.
func SolveForBudget(totalBudget int64) (AnalyzerConfig, error) {
	if totalBudget < MinimumBudget {
		return AnalyzerConfig{}, ErrBudgetTooSmall
	}

	usable := totalBudget * (percentDivisor - SlackPercent) / percentDivisor
	available := usable - BaseOverhead
	if available <= 0 {
		return AnalyzerConfig{}, ErrBudgetTooSmall
	}

	workerAlloc := available * WorkerAllocationPercent / percentDivisor
	decodeAlloc := available * DecodeWindowPercent / percentDivisor
	sinkAlloc := available * SinkBufferPercent / percentDivisor

	return deriveKnobs(workerAlloc, decodeAlloc, sinkAlloc), nil
}

func deriveKnobs(workerAlloc, decodeAlloc, sinkAlloc int64) AnalyzerConfig {
	maxWorkers := max(MinWorkers, runtime.NumCPU()*OptimalWorkerRatio/percentDivisor)
	workers := max(MinWorkers, min(maxWorkers, int(workerAlloc/WorkerStateOverhead)))
	workers = min(workers, MaxWorkers)

	decodeWindow := MinDecodeWindow
	if workers > 0 {
		perWorker := decodeAlloc / int64(workers)
		decodeWindow = int(max(int64(MinDecodeWindow), min(perWorker, MaxDecodeWindow)))
	}

	sinkBatches := max(2, int(sinkAlloc/AvgSinkBatchSize))

	return AnalyzerConfig{
		Workers:           workers,
		DecodeWindowBytes: int64(decodeWindow),
		FuelPerActivation: DefaultFuel,
		SinkBufferBatches: sinkBatches,
	}
}
