package correlate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsight/flowsight/pkg/events"
)

func TestStartStop_PairsWithinOneWorker(t *testing.T) {
	c := New()
	key := SpanKey{Kind: KindOperatorActivation, Operator: 5}

	_, ok := c.StartStop(1, key, events.Start, 100)
	require.False(t, ok)

	rec, ok := c.StartStop(1, key, events.Stop, 150)
	require.True(t, ok)
	require.Equal(t, events.TimeNanos(100), rec.Start)
	require.Equal(t, events.TimeNanos(150), rec.End)
	require.Equal(t, events.TimeNanos(50), rec.Duration)
}

func TestStartStop_NestedSpansUseStackOrder(t *testing.T) {
	c := New()
	key := SpanKey{Kind: KindApplication, Discriminator: 7}

	c.StartStop(1, key, events.Start, 10)
	c.StartStop(1, key, events.Start, 20)

	rec1, ok := c.StartStop(1, key, events.Stop, 30)
	require.True(t, ok)
	require.Equal(t, events.TimeNanos(20), rec1.Start)

	rec2, ok := c.StartStop(1, key, events.Stop, 40)
	require.True(t, ok)
	require.Equal(t, events.TimeNanos(10), rec2.Start)
}

func TestStartStop_OrphanStopReturnsFalse(t *testing.T) {
	c := New()
	key := SpanKey{Kind: KindOperatorActivation, Operator: 1}

	_, ok := c.StartStop(1, key, events.Stop, 100)
	require.False(t, ok)
}

func TestStartStop_TimeRegressionClampsToZero(t *testing.T) {
	c := New()
	key := SpanKey{Kind: KindOperatorActivation, Operator: 1}

	c.StartStop(1, key, events.Start, 100)
	rec, ok := c.StartStop(1, key, events.Stop, 50)
	require.True(t, ok)
	require.Equal(t, events.TimeNanos(0), rec.Duration)
}

func TestStartStop_WorkersAreIndependent(t *testing.T) {
	c := New()
	key := SpanKey{Kind: KindOperatorActivation, Operator: 1}

	c.StartStop(1, key, events.Start, 100)
	_, ok := c.StartStop(2, key, events.Stop, 200)
	require.False(t, ok, "worker 2 has no open span at this key")
}

func TestMergeStart_NestedMergeClosesOuterSilently(t *testing.T) {
	c := New()
	c.MergeStart(1, 9, 10)
	c.MergeStart(1, 9, 20) // closes the first without emitting

	rec, ok := c.MergeClose(1, 9, 30)
	require.True(t, ok)
	require.Equal(t, events.TimeNanos(20), rec.Start)
}

func TestReleaseReferencing_DrainsOnlyMatchingOpenSpans(t *testing.T) {
	c := New()
	c.StartStop(1, SpanKey{Kind: KindOperatorActivation, Operator: 5}, events.Start, 10)
	c.StartStop(1, SpanKey{Kind: KindOperatorActivation, Operator: 6}, events.Start, 20)
	c.MergeStart(1, 5, 15)

	released := c.ReleaseReferencing(1, 5, 100)
	require.Len(t, released, 2, "both the activation and merge spans reference operator 5")

	for _, r := range released {
		require.Equal(t, events.TimeNanos(100), r.End)
	}

	// Operator 6's span should remain open and drainable independently.
	rec, ok := c.StartStop(1, SpanKey{Kind: KindOperatorActivation, Operator: 6}, events.Stop, 200)
	require.True(t, ok)
	require.Equal(t, events.TimeNanos(20), rec.Start)
}

func TestSpanKey_ReferencesOperator(t *testing.T) {
	require.True(t, SpanKey{Kind: KindOperatorActivation, Operator: 5}.ReferencesOperator(5))
	require.True(t, SpanKey{Kind: KindMerge, Operator: 5}.ReferencesOperator(5))
	require.False(t, SpanKey{Kind: KindOperatorActivation, Operator: 6}.ReferencesOperator(5))
	require.False(t, SpanKey{Kind: KindApplication, Discriminator: 5}.ReferencesOperator(5))
}

func TestRecord_ToTimelineEvent(t *testing.T) {
	rec := Record{
		Worker: 2, Key: SpanKey{Kind: KindOperatorActivation, Operator: 9},
		Start: 10, End: 20, Duration: 10,
	}
	ev := rec.ToTimelineEvent("map")
	require.Equal(t, events.TimelineOperatorActivation, ev.Kind)
	require.Equal(t, events.OperatorId(9), ev.Operator)
	require.Equal(t, "map", ev.OperatorName)
	require.Equal(t, events.TimeNanos(10), ev.StartTime)
	require.Equal(t, events.TimeNanos(10), ev.Duration)
}
