package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	require.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
	require.Equal(t, 0.0, Mean(nil))
}

func TestMeanStdDev(t *testing.T) {
	mean, stddev := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.InDelta(t, 5.0, mean, 1e-9)
	require.InDelta(t, 2.0, stddev, 1e-9)

	mean, stddev = MeanStdDev(nil)
	require.Equal(t, 0.0, mean)
	require.Equal(t, 0.0, stddev)
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	require.InDelta(t, 2.5, Percentile(values, PercentileMedian), 1e-9)
	require.InDelta(t, 1.0, Percentile(values, 0), 1e-9)
	require.InDelta(t, 4.0, Percentile(values, 1), 1e-9)
	require.Equal(t, []float64{1, 2, 3, 4}, values, "Percentile must not mutate its input")
}

func TestMedian(t *testing.T) {
	require.InDelta(t, 3.0, Median([]float64{5, 1, 3}), 1e-9)
	require.Equal(t, 0.0, Median(nil))
}

func TestClamp(t *testing.T) {
	require.Equal(t, 5, Clamp(5, 0, 10))
	require.Equal(t, 0, Clamp(-3, 0, 10))
	require.Equal(t, 10, Clamp(20, 0, 10))
}

func TestMinMaxSum(t *testing.T) {
	require.Equal(t, 1, Min([]int{3, 1, 2}))
	require.Equal(t, 3, Max([]int{3, 1, 2}))
	require.Equal(t, 6, Sum([]int{3, 1, 2}))
	require.Equal(t, 0, Min[int](nil))
	require.Equal(t, 0, Max[int](nil))
	require.Equal(t, 0, Sum[int](nil))
}

func TestEMA_FirstUpdateInitializesToValue(t *testing.T) {
	e := NewEMA(0.5)
	require.False(t, e.Initialized())

	require.Equal(t, 10.0, e.Update(10))
	require.True(t, e.Initialized())
	require.Equal(t, 10.0, e.Value())
}

func TestEMA_SubsequentUpdatesBlend(t *testing.T) {
	e := NewEMA(0.5)
	e.Update(10)
	got := e.Update(20)
	require.InDelta(t, 15.0, got, 1e-9)
	require.InDelta(t, 15.0, e.Value(), 1e-9)
}
