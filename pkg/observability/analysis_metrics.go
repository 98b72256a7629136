package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricEventsTotal       = "flowsight.replay.events.total"
	metricActivationsTotal  = "flowsight.extractor.activations.total"
	metricFuelDuration      = "flowsight.replay.activation.duration.seconds"
	metricSinkHitsTotal     = "flowsight.sink.drained.total"
	metricSinkBackpressure  = "flowsight.sink.backpressure.total"

	attrSink = "sink"
)

// AnalysisMetrics holds OTel instruments for the replay-and-correlation
// pipeline's own metrics, decoupled from any particular pipeline type.
type AnalysisMetrics struct {
	eventsTotal      metric.Int64Counter
	activationsTotal metric.Int64Counter
	activationDur    metric.Float64Histogram
	sinkDrained      metric.Int64Counter
	sinkBackpressure metric.Int64Counter
}

// AnalysisStats holds the statistics for a single replay run.
type AnalysisStats struct {
	Events             int64
	Activations        int
	ActivationDurations []time.Duration
	SinkDrained         map[string]int64
	SinkBackpressured   map[string]int64
}

// NewAnalysisMetrics creates the pipeline metric instruments from mt.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	events, err := mt.Int64Counter(metricEventsTotal,
		metric.WithDescription("Total wire events consumed by the replay driver"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEventsTotal, err)
	}

	activations, err := mt.Int64Counter(metricActivationsTotal,
		metric.WithDescription("Total operator activation spans closed"),
		metric.WithUnit("{activation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricActivationsTotal, err)
	}

	dur, err := mt.Float64Histogram(metricFuelDuration,
		metric.WithDescription("Per-activation driver processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFuelDuration, err)
	}

	drained, err := mt.Int64Counter(metricSinkHitsTotal,
		metric.WithDescription("Batches drained from a sink, by sink name"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSinkHitsTotal, err)
	}

	backpressure, err := mt.Int64Counter(metricSinkBackpressure,
		metric.WithDescription("Sink send attempts that hit backpressure, by sink name"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSinkBackpressure, err)
	}

	return &AnalysisMetrics{
		eventsTotal:      events,
		activationsTotal: activations,
		activationDur:    dur,
		sinkDrained:      drained,
		sinkBackpressure: backpressure,
	}, nil
}

// RecordRun records replay statistics for a completed or in-progress run.
// Safe to call on a nil receiver (no-op).
func (am *AnalysisMetrics) RecordRun(ctx context.Context, stats AnalysisStats) {
	if am == nil {
		return
	}

	am.eventsTotal.Add(ctx, stats.Events)
	am.activationsTotal.Add(ctx, int64(stats.Activations))

	for _, d := range stats.ActivationDurations {
		am.activationDur.Record(ctx, d.Seconds())
	}

	for name, n := range stats.SinkDrained {
		am.sinkDrained.Add(ctx, n, metric.WithAttributes(attribute.String(attrSink, name)))
	}
	for name, n := range stats.SinkBackpressured {
		am.sinkBackpressure.Add(ctx, n, metric.WithAttributes(attribute.String(attrSink, name)))
	}
}
