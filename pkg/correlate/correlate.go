// Package correlate implements the Span Correlator (component D): pairs
// START/STOP events into duration records, keyed by worker and a
// discriminator unique per span, tolerating shutdown events that
// invalidate any spans still open.
//
// Grounded directly on the "Associate Timely Start/Stop Events" and
// "Associate Differential Start/Stop Events" operators: a stack per key is
// used rather than a single slot, because nested spans of the same kind
// legitimately occur (e.g. two Application spans with the same id nested
// inside one another).
package correlate

import (
	"log/slog"

	"github.com/flowsight/flowsight/pkg/events"
)

// SpanKeyKind discriminates the span variants the correlator tracks.
type SpanKeyKind int

const (
	KindOperatorActivation SpanKeyKind = iota
	KindApplication
	KindMessage
	KindProgress
	KindInput
	KindPark
	KindMerge
)

// SpanKey identifies one span series. Operator is meaningful for
// OperatorActivation and Merge; Discriminator is meaningful for
// Application (it carries the paired start/stop's shared id).
type SpanKey struct {
	Kind          SpanKeyKind
	Operator      events.OperatorId
	Discriminator uint64
}

// ReferencesOperator reports whether this key's span is tied to op, the
// condition remove_referencing uses to select stacks to drain on Shutdown.
func (k SpanKey) ReferencesOperator(op events.OperatorId) bool {
	return (k.Kind == KindOperatorActivation || k.Kind == KindMerge) && k.Operator == op
}

type mapKey struct {
	Worker events.WorkerId
	Span   SpanKey
}

type stackEntry struct {
	start events.TimeNanos
}

// Record is one completed span: a (worker, kind, duration) triple, ready
// to become a TimelineEvent once any operator name has been resolved.
type Record struct {
	Worker    events.WorkerId
	Key       SpanKey
	Start     events.TimeNanos
	End       events.TimeNanos
	Duration  events.TimeNanos
}

// ToTimelineEvent converts a Record into the public TimelineEvent shape,
// filling OperatorName when the span kind carries an operator id.
func (r Record) ToTimelineEvent(operatorName string) events.TimelineEvent {
	kind, op := spanKindToTimeline(r.Key)
	return events.TimelineEvent{
		Worker:       r.Worker,
		Kind:         kind,
		Operator:     op,
		OperatorName: operatorName,
		StartTime:    r.Start,
		Duration:     r.Duration,
	}
}

func spanKindToTimeline(k SpanKey) (events.TimelineEventKind, events.OperatorId) {
	switch k.Kind {
	case KindOperatorActivation:
		return events.TimelineOperatorActivation, k.Operator
	case KindApplication:
		return events.TimelineApplication, 0
	case KindMessage:
		return events.TimelineMessage, 0
	case KindProgress:
		return events.TimelineProgress, 0
	case KindInput:
		return events.TimelineInput, 0
	case KindPark:
		return events.TimelineParked, 0
	case KindMerge:
		return events.TimelineMerge, k.Operator
	default:
		return events.TimelineOperatorActivation, 0
	}
}

// Correlator owns the event_map described in §4.D: a stack of open spans
// per (worker, SpanKey).
type Correlator struct {
	stacks map[mapKey][]stackEntry
	log    *slog.Logger
}

// New returns an empty Correlator using the default slog logger.
func New() *Correlator { return &Correlator{stacks: make(map[mapKey][]stackEntry), log: slog.Default()} }

// WithLogger sets the logger used for orphan-STOP and time-regression
// warnings.
func (c *Correlator) WithLogger(l *slog.Logger) *Correlator { c.log = l; return c }

// insert pushes (time) onto the stack at (worker, key) — the START half.
func (c *Correlator) insert(worker events.WorkerId, key SpanKey, t events.TimeNanos) {
	mk := mapKey{worker, key}
	c.stacks[mk] = append(c.stacks[mk], stackEntry{start: t})
}

// remove pops the most recent open span at (worker, key) and emits a
// completion Record — the STOP half. Returns ok=false on an orphan STOP
// (§7: logged, dropped, no output).
func (c *Correlator) remove(worker events.WorkerId, key SpanKey, t events.TimeNanos) (Record, bool) {
	mk := mapKey{worker, key}
	stack := c.stacks[mk]
	if len(stack) == 0 {
		c.log.Warn("orphan STOP with no matching START", "worker", worker, "kind", key.Kind, "operator", key.Operator)
		return Record{}, false
	}
	top := stack[len(stack)-1]
	c.stacks[mk] = stack[:len(stack)-1]
	if len(c.stacks[mk]) == 0 {
		delete(c.stacks, mk)
	}

	dur := t - top.start
	if t < top.start {
		c.log.Debug("time regression on span close, clamping duration to zero", "worker", worker, "kind", key.Kind)
		dur = 0
	}
	return Record{Worker: worker, Key: key, Start: top.start, End: t, Duration: dur}, true
}

// StartStop dispatches to insert or remove depending on ss, matching §4.D's
// start_stop operation. For a Start it always returns ok=false (nothing to
// emit yet); for a Stop it returns the closed Record, or ok=false on an
// orphan STOP.
func (c *Correlator) StartStop(worker events.WorkerId, key SpanKey, ss events.StartStop, t events.TimeNanos) (Record, bool) {
	if ss == events.Start {
		c.insert(worker, key, t)
		return Record{}, false
	}
	return c.remove(worker, key, t)
}

// MergeStart opens a Merge span for op, honoring the nested-merge design
// note (§9 open question 2): a Merge-start observed while one is already
// open for the same operator closes the outer span without emitting a
// completion record, then opens the new (inner) one. This is a known
// approximation, not a correctness guarantee.
func (c *Correlator) MergeStart(worker events.WorkerId, op events.OperatorId, t events.TimeNanos) {
	key := SpanKey{Kind: KindMerge, Operator: op}
	mk := mapKey{worker, key}
	if len(c.stacks[mk]) > 0 {
		c.log.Debug("nested merge start observed, closing outer span without emitting", "worker", worker, "operator", op)
		c.stacks[mk] = c.stacks[mk][:len(c.stacks[mk])-1]
		if len(c.stacks[mk]) == 0 {
			delete(c.stacks, mk)
		}
	}
	c.insert(worker, key, t)
}

// MergeClose closes a Merge span for op regardless of which terminal
// outcome (complete, shortfall, drop) triggered it — all three close an
// open Merge span, with shortfall/drop additionally warned about by the
// caller.
func (c *Correlator) MergeClose(worker events.WorkerId, op events.OperatorId, t events.TimeNanos) (Record, bool) {
	return c.remove(worker, SpanKey{Kind: KindMerge, Operator: op}, t)
}

// ReleaseReferencing drains every stack whose key references op — called
// on operator Shutdown (§4.D remove_referencing) — emitting one completion
// record per still-open entry, using shutdownTime as the end time. A
// scratch slice of keys-to-delete is built first so the map is not
// mutated while its keys are being iterated.
func (c *Correlator) ReleaseReferencing(worker events.WorkerId, op events.OperatorId, shutdownTime events.TimeNanos) []Record {
	var toDrain []mapKey
	for mk := range c.stacks {
		if mk.Worker == worker && mk.Span.ReferencesOperator(op) {
			toDrain = append(toDrain, mk)
		}
	}

	var released []Record
	for _, mk := range toDrain {
		stack := c.stacks[mk]
		delete(c.stacks, mk)
		for _, entry := range stack {
			c.log.Warn("dangling START released on shutdown", "worker", worker, "operator", op)
			released = append(released, Record{
				Worker: worker, Key: mk.Span, Start: entry.start, End: shutdownTime, Duration: shutdownTime - entry.start,
			})
		}
	}
	return released
}
