package events

// ChannelKind distinguishes the three ways a raw channel can classify after
// rewiring.
type ChannelKind int

const (
	ChannelNormal ChannelKind = iota
	ChannelScopeIngress
	ChannelScopeEgress
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelNormal:
		return "Normal"
	case ChannelScopeIngress:
		return "ScopeIngress"
	case ChannelScopeEgress:
		return "ScopeEgress"
	default:
		return "Unknown"
	}
}

// Channel is the rewired, globally-addressed edge produced by the Channel
// Rewirer (component E). SourceAddr/TargetAddr are fully qualified
// (scope_addr ++ [operator-local-index]).
type Channel struct {
	Kind       ChannelKind
	ChannelId  ChannelId
	SourceAddr OperatorAddr
	TargetAddr OperatorAddr
}

// TargetKey returns a map key over TargetAddr, used by the egress
// antijoin-against-subgraphs pass.
func (c Channel) TargetKey() string { return c.TargetAddr.Key() }

// Lifespan is the [Start, End) interval an operator was alive, closed at
// Shutdown time.
type Lifespan struct {
	Start TimeNanos
	End   TimeNanos
}

// ArrangementSizeBand is a best-effort min/max over merge-activity observed
// during an operator's schedule window (see design note: "a pretty much a
// guess" in the source this behavior is grounded on).
type ArrangementSizeBand struct {
	Min, Max uint64
}

// OperatorStats is the per-(worker, operator) activation statistics record.
type OperatorStats struct {
	Worker             WorkerId
	Operator           OperatorId
	Activations        uint64
	Min, Max, Total    TimeNanos
	Average            float64
	ActivationDurations []TimeNanos
	ArrangementSize    *ArrangementSizeBand
}

// AggregatedOperatorStats is OperatorStats summed across workers, keyed
// solely by OperatorId.
type AggregatedOperatorStats struct {
	Operator            OperatorId
	Activations         uint64
	Min, Max, Total      TimeNanos
	Average             float64
}

// DataflowStats is the per-(worker, dataflow) structural rollup.
type DataflowStats struct {
	Worker    WorkerId
	Addr      OperatorAddr
	Operators uint64
	Subgraphs uint64
	Channels  uint64
	Lifespan  Lifespan
}

// WorkerStats / ProgramStats share this shape: counts plus a runtime span.
type CountStats struct {
	Workers   uint64
	Dataflows uint64
	Operators uint64
	Subgraphs uint64
	Channels  uint64
	Events    uint64
	Runtime   TimeNanos
}

// TimelineEventKind names the discriminated union carried by TimelineEvent.
type TimelineEventKind int

const (
	TimelineOperatorActivation TimelineEventKind = iota
	TimelineApplication
	TimelineParked
	TimelineInput
	TimelineMessage
	TimelineProgress
	TimelineMerge
)

// TimelineEvent is one entry in a worker's start/stop timeline, produced by
// the Span Correlator (component D).
type TimelineEvent struct {
	Worker          WorkerId
	Kind            TimelineEventKind
	Operator        OperatorId // meaningful for OperatorActivation, Merge
	OperatorName    string     // resolved name, meaningful for the same two kinds
	StartTime       TimeNanos
	Duration        TimeNanos
	CollapsedEvents uint64
	EventId         uint64
}

// ProgressInfo is the aggregated per-channel send/receive count produced by
// the Progress Aggregator (component J).
type ProgressInfo struct {
	Addr      OperatorAddr
	Channel   ChannelId
	SendCount int64
	RecvCount int64
}
