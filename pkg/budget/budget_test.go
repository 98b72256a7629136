package budget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveForBudget_RejectsBelowMinimum(t *testing.T) {
	_, err := SolveForBudget(MinimumBudget - 1)
	require.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestSolveForBudget_AtMinimumProducesBoundedConfig(t *testing.T) {
	cfg, err := SolveForBudget(MinimumBudget)
	require.NoError(t, err)
	require.GreaterOrEqual(t, cfg.Workers, MinWorkers)
	require.LessOrEqual(t, cfg.Workers, MaxWorkers)
	require.GreaterOrEqual(t, cfg.DecodeWindowBytes, int64(MinDecodeWindow))
	require.LessOrEqual(t, cfg.DecodeWindowBytes, int64(MaxDecodeWindow))
	require.GreaterOrEqual(t, cfg.SinkBufferBatches, 2)
	require.Equal(t, int64(DefaultFuel), cfg.FuelPerActivation)
}

func TestSolveForBudget_LargerBudgetNeverShrinksWorkerCount(t *testing.T) {
	small, err := SolveForBudget(MinimumBudget)
	require.NoError(t, err)
	large, err := SolveForBudget(MinimumBudget * 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, large.Workers, small.Workers)
}

func TestEstimateMemoryUsage_ScalesWithWorkersAndSinkBatches(t *testing.T) {
	base := EstimateMemoryUsage(AnalyzerConfig{Workers: 1, DecodeWindowBytes: MinDecodeWindow, SinkBufferBatches: 2})
	doubled := EstimateMemoryUsage(AnalyzerConfig{Workers: 2, DecodeWindowBytes: MinDecodeWindow, SinkBufferBatches: 2})
	require.Greater(t, doubled, base)
	require.Equal(t, doubled-base, int64(WorkerStateOverhead+MinDecodeWindow))
}

func TestDefaultAnalyzerConfig_IsTheZeroConfigPath(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	require.Equal(t, MinWorkers, cfg.Workers)
	require.Equal(t, int64(MinDecodeWindow), cfg.DecodeWindowBytes)
	require.Equal(t, int64(DefaultFuel), cfg.FuelPerActivation)
	require.Equal(t, 2, cfg.SinkBufferBatches)
}
