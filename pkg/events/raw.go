package events

import "time"

// StartStop distinguishes the two halves of a paired span event.
type StartStop int

const (
	Start StartStop = iota
	Stop
)

// Operates declares that an operator exists at addr with the given name.
type Operates struct {
	Id   OperatorId
	Addr OperatorAddr
	Name string
}

// Channels declares an edge inside ScopeAddr, from Source to Target, both
// given as (operator-local-index, port) pairs scoped to ScopeAddr.
type Channels struct {
	Id        ChannelId
	ScopeAddr OperatorAddr
	Source    Port
	Target    Port
}

// Schedule reports an operator entering or leaving its scheduled slice.
type Schedule struct {
	Operator OperatorId
	Kind     StartStop
}

// Shutdown reports an operator's final teardown; an implicit Stop for any
// span referencing Operator still open in the Span Correlator.
type Shutdown struct {
	Operator OperatorId
}

// Application is one half of a paired application span (Start tells which); Id
// is the discriminator shared by the matching Start/Stop pair.
type Application struct {
	Id    uint64
	Start bool
}

// GuardedMessage brackets message-handler execution.
type GuardedMessage struct {
	Kind StartStop
}

// GuardedProgress brackets progress-handler execution.
type GuardedProgress struct {
	Kind StartStop
}

// Input brackets an input-handle poll.
type Input struct {
	Kind StartStop
}

// ParkEvent distinguishes a worker going idle (Park) from resuming (Unpark).
type ParkEvent int

const (
	Park ParkEvent = iota
	Unpark
)

// Park_ carries the park variant and a Duration, which the wire decoder
// reads for both Park and Unpark; Duration is advisory (used for display,
// never for correlation).
type Park_ struct {
	Kind     ParkEvent
	Duration time.Duration
}

// MergeOutcome classifies how an arrangement merge span closed.
type MergeOutcome int

const (
	// MergeBegin starts a span (outcome byte 0 in the wire encoding).
	MergeBegin MergeOutcome = iota
	MergeComplete
	MergeShortfall
	MergeDrop
)

// Merge reports arrangement maintenance activity for Operator. A START has
// Outcome == MergeBegin; any other outcome closes the span.
type Merge struct {
	Operator OperatorId
	Outcome  MergeOutcome
}

// TimelyEvent is the sum type of the main worker log stream. Exactly one
// field is meaningful per decoded event; Kind names which.
type TimelyEventKind int

const (
	KindOperates TimelyEventKind = iota
	KindChannels
	KindSchedule
	KindShutdown
	KindApplication
	KindGuardedMessage
	KindGuardedProgress
	KindInput
	KindPark
)

type TimelyEvent struct {
	Kind            TimelyEventKind
	Operates        Operates
	Channels        Channels
	Schedule        Schedule
	Shutdown        Shutdown
	Application     Application
	GuardedMessage  GuardedMessage
	GuardedProgress GuardedProgress
	Input           Input
	Park            Park_
}

// DifferentialEvent is the sum type of the arrangement-maintenance stream.
// Today Merge is the only variant the analyzer cares about.
type DifferentialEvent struct {
	Merge Merge
}

// ProgressDelta is one (time, count) pair within a ProgressEvent.
type ProgressDelta struct {
	Time  uint64
	Count int64
}

// ProgressEvent reports send/receive deltas for a channel, addressed by the
// operator address on the sending/receiving side.
type ProgressEvent struct {
	Addr    OperatorAddr
	Channel ChannelId
	Deltas  []ProgressDelta
	IsSend  bool
}

// TimeNanos is the wire timestamp: nanoseconds since an arbitrary epoch
// fixed for the lifetime of a single replay.
type TimeNanos uint64

// Envelope wraps a decoded payload with its wire time and source worker,
// the common shape of every record crossing the Framed Event Source.
type Envelope[T any] struct {
	Time   TimeNanos
	Worker WorkerId
	Data   T
}
