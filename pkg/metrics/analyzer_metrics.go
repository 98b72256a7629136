package metrics

import (
	"github.com/flowsight/flowsight/pkg/dfstats"
	"github.com/flowsight/flowsight/pkg/events"
	"github.com/flowsight/flowsight/pkg/opstats"
	"github.com/flowsight/flowsight/pkg/progress"
	"github.com/flowsight/flowsight/pkg/progstats"
)

// Metric type categories used by the analyzer's reporting metrics.
const (
	TypeAggregate  = "aggregate"
	TypeTimeSeries = "time_series"
)

// OperatorStatsMetric computes per-(worker, operator) activation statistics
// from an opstats.Builder (component F).
type OperatorStatsMetric struct {
	MetricMeta
}

// NewOperatorStatsMetric returns the standard operator-activation metric.
func NewOperatorStatsMetric() OperatorStatsMetric {
	return OperatorStatsMetric{MetricMeta{
		MetricName:        "operator_stats",
		MetricDisplayName: "Operator Activation Stats",
		MetricDescription: "Per-(worker, operator) activation counts and durations, with a best-effort arrangement-size band derived from observed merge activity.",
		MetricType:        TypeAggregate,
	}}
}

// Compute materializes OperatorStats from the builder's accumulated state.
func (OperatorStatsMetric) Compute(b *opstats.Builder) []events.OperatorStats {
	return b.Stats()
}

// AggregatedOperatorStatsMetric sums per-worker OperatorStats across workers,
// keyed solely by OperatorId.
type AggregatedOperatorStatsMetric struct {
	MetricMeta
}

// NewAggregatedOperatorStatsMetric returns the cross-worker rollup metric.
func NewAggregatedOperatorStatsMetric() AggregatedOperatorStatsMetric {
	return AggregatedOperatorStatsMetric{MetricMeta{
		MetricName:        "aggregated_operator_stats",
		MetricDisplayName: "Aggregated Operator Stats",
		MetricDescription: "Operator activation stats summed across every worker that touched the operator.",
		MetricType:        TypeAggregate,
	}}
}

// Compute aggregates perWorker into one AggregatedOperatorStats per operator.
func (AggregatedOperatorStatsMetric) Compute(perWorker []events.OperatorStats) []events.AggregatedOperatorStats {
	return opstats.Aggregate(perWorker)
}

// DataflowStatsMetric computes per-dataflow operator/subgraph/channel counts
// (component G).
type DataflowStatsMetric struct {
	MetricMeta
}

// NewDataflowStatsMetric returns the dataflow-rollup metric.
func NewDataflowStatsMetric() DataflowStatsMetric {
	return DataflowStatsMetric{MetricMeta{
		MetricName:        "dataflow_stats",
		MetricDisplayName: "Dataflow Stats",
		MetricDescription: "Nested operator, subgraph, and channel counts for each top-level dataflow, plus its lifespan.",
		MetricType:        TypeAggregate,
	}}
}

// Compute derives DataflowStats from the given Input.
func (DataflowStatsMetric) Compute(in dfstats.Input) []events.DataflowStats {
	return dfstats.Compute(in)
}

// ProgramStatsMetric sums worker CountStats into one program-wide total
// (component H).
type ProgramStatsMetric struct {
	MetricMeta
}

// NewProgramStatsMetric returns the program-rollup metric.
func NewProgramStatsMetric() ProgramStatsMetric {
	return ProgramStatsMetric{MetricMeta{
		MetricName:        "program_stats",
		MetricDisplayName: "Program Stats",
		MetricDescription: "Counts summed and runtime maxed across every worker.",
		MetricType:        TypeAggregate,
	}}
}

// Compute sums perWorker into one CountStats.
func (ProgramStatsMetric) Compute(perWorker []events.CountStats) events.CountStats {
	return progstats.ProgramStats(perWorker)
}

// ProgressMetric computes per-channel progress send/recv totals (component J).
type ProgressMetric struct {
	MetricMeta
}

// NewProgressMetric returns the progress-aggregation metric.
func NewProgressMetric() ProgressMetric {
	return ProgressMetric{MetricMeta{
		MetricName:        "progress_totals",
		MetricDisplayName: "Progress Totals",
		MetricDescription: "Per-(operator address, channel) send and receive counts accumulated across every progress message observed.",
		MetricType:        TypeAggregate,
	}}
}

// Compute returns the accumulated results from agg.
func (ProgressMetric) Compute(agg *progress.Aggregator) []events.ProgressInfo {
	return agg.Results()
}

// StandardRegistry returns a Registry pre-populated with every reporting
// metric the analyzer exposes. Callers can Get a metric by name to decide
// which rollups to compute for a given report, without hardcoding the full
// set of pipeline stages.
func StandardRegistry() *Registry {
	r := NewRegistry()
	Register[*opstats.Builder, []events.OperatorStats](r, NewOperatorStatsMetric())
	Register[[]events.OperatorStats, []events.AggregatedOperatorStats](r, NewAggregatedOperatorStatsMetric())
	Register[dfstats.Input, []events.DataflowStats](r, NewDataflowStatsMetric())
	Register[[]events.CountStats, events.CountStats](r, NewProgramStatsMetric())
	Register[*progress.Aggregator, []events.ProgressInfo](r, NewProgressMetric())

	return r
}
