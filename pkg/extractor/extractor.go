// Package extractor implements the Timely Event Extractor (component C):
// decodes the raw worker event stream into typed sub-collections, exchanged
// on WorkerId so a given source worker's events always land on the same
// analyzer partition.
package extractor

import (
	"github.com/flowsight/flowsight/pkg/correlate"
	"github.com/flowsight/flowsight/pkg/events"
)

// ProgramNsGranularity is the rounding unit applied to every non-timeline
// output's timestamp before it reaches the incremental engine (§4.C).
const ProgramNsGranularity = 1_000_000 // 1 ms, in nanoseconds

// roundUp rounds t up to the next ProgramNsGranularity boundary.
func roundUp(t events.TimeNanos) events.TimeNanos {
	r := events.TimeNanos(ProgramNsGranularity)
	if t%r == 0 {
		return t
	}
	return (t/r + 1) * r
}

// DefaultFuel bounds how many queued frames a single Drain call processes
// before returning control to the caller (§4.C: "processes under a fuel
// budget").
const DefaultFuel = 1_000_000

// Outputs collects every independent collection the extractor emits, each
// logically carrying its own capability in the source dataflow.
type Outputs struct {
	Lifespans            []WorkerLifespan
	ActivationDurations  []WorkerActivation
	OperatorCreations    []events.Operates
	ChannelCreations     []events.Channels
	RawOperators         []events.Operates
	RawChannels          []events.Channels
	OperatorNames        map[events.WorkerOperator]string
	OperatorIds          []events.WorkerOperator
	OperatorAddrs        map[events.WorkerOperator]events.OperatorAddr
	ChannelScopeAddrs    map[channelKey]events.OperatorAddr
	DataflowIds          []events.WorkerOperator
	TimelineEvents       []events.TimelineEvent
}

type channelKey struct {
	Worker events.WorkerId
	Id     events.ChannelId
}

// WorkerLifespan is a closed (start, end) pair for one (worker, operator).
type WorkerLifespan struct {
	events.WorkerOperator
	Lifespan events.Lifespan
}

// WorkerActivation is one closed Schedule span: ((worker, op), (start, dur)).
type WorkerActivation struct {
	events.WorkerOperator
	Start    events.TimeNanos
	Duration events.TimeNanos
}

// Extractor owns the three small per-(worker, operator) maps described in
// §4.C; event_map is delegated entirely to the Span Correlator.
type Extractor struct {
	worker         events.WorkerId
	timelineOn     bool
	lifespanMap    map[events.WorkerOperator]events.TimeNanos
	activationMap  map[events.WorkerOperator]events.TimeNanos
	correlator     *correlate.Correlator
	queue          []events.Envelope[events.TimelyEvent]
	out            Outputs
}

// New returns an extractor for partition worker, optionally recording a
// start/stop timeline (§6 disable_timeline).
func New(worker events.WorkerId, timelineEnabled bool) *Extractor {
	return &Extractor{
		worker:        worker,
		timelineOn:    timelineEnabled,
		lifespanMap:   make(map[events.WorkerOperator]events.TimeNanos),
		activationMap: make(map[events.WorkerOperator]events.TimeNanos),
		correlator:    correlate.New(),
		out: Outputs{
			OperatorNames:     make(map[events.WorkerOperator]string),
			OperatorAddrs:     make(map[events.WorkerOperator]events.OperatorAddr),
			ChannelScopeAddrs: make(map[channelKey]events.OperatorAddr),
		},
	}
}

// Enqueue buffers one incoming envelope for the next Drain call; this is
// the "drains frames into a work queue" half of §4.C.
func (e *Extractor) Enqueue(env events.Envelope[events.TimelyEvent]) {
	e.queue = append(e.queue, env)
}

// Drain processes the work queue under a fuel budget, returning whether
// the queue still has pending frames (in which case the caller must
// reactivate this extractor, per §4.C's closing sentence).
func (e *Extractor) Drain(fuel int64) (hasMore bool) {
	n := 0
	for n < len(e.queue) && fuel > 0 {
		e.process(e.queue[n])
		n++
		fuel--
	}
	e.queue = e.queue[n:]
	return len(e.queue) > 0
}

// Outputs returns the collections accumulated so far; called once the
// replay has fully drained, or periodically for a streaming report.
func (e *Extractor) Outputs() *Outputs { return &e.out }

func (e *Extractor) key(op events.OperatorId) events.WorkerOperator {
	return events.WorkerOperator{Worker: e.worker, Operator: op}
}

func (e *Extractor) process(env events.Envelope[events.TimelyEvent]) {
	t := env.Time
	ev := env.Data

	switch ev.Kind {
	case events.KindOperates:
		k := e.key(ev.Operates.Id)
		e.out.RawOperators = append(e.out.RawOperators, ev.Operates)
		e.out.OperatorNames[k] = ev.Operates.Name
		e.out.OperatorAddrs[k] = ev.Operates.Addr
		e.out.OperatorIds = append(e.out.OperatorIds, k)
		if ev.Operates.Addr.IsDataflow() {
			e.out.DataflowIds = append(e.out.DataflowIds, k)
		}
		e.out.OperatorCreations = append(e.out.OperatorCreations, ev.Operates)
		e.lifespanMap[k] = roundUp(t)

	case events.KindChannels:
		e.out.RawChannels = append(e.out.RawChannels, ev.Channels)
		e.out.ChannelCreations = append(e.out.ChannelCreations, ev.Channels)
		e.out.ChannelScopeAddrs[channelKey{e.worker, ev.Channels.Id}] = ev.Channels.ScopeAddr

	case events.KindSchedule:
		k := e.key(ev.Schedule.Operator)
		switch ev.Schedule.Kind {
		case events.Start:
			e.activationMap[k] = t
			if e.timelineOn {
				e.correlator.StartStop(e.worker, correlate.SpanKey{Kind: correlate.KindOperatorActivation, Operator: ev.Schedule.Operator}, events.Start, t)
			}
		case events.Stop:
			start, ok := e.activationMap[k]
			if !ok {
				break // orphan STOP: logged by caller's policy, dropped here
			}
			delete(e.activationMap, k)
			dur := t - start
			if t < start {
				dur = 0
			}
			e.out.ActivationDurations = append(e.out.ActivationDurations, WorkerActivation{
				WorkerOperator: k, Start: roundUp(start), Duration: dur,
			})
			if e.timelineOn {
				if rec, ok := e.correlator.StartStop(e.worker, correlate.SpanKey{Kind: correlate.KindOperatorActivation, Operator: ev.Schedule.Operator}, events.Stop, t); ok {
					e.out.TimelineEvents = append(e.out.TimelineEvents, rec.ToTimelineEvent(e.out.OperatorNames[k]))
				}
			}
		}

	case events.KindShutdown:
		k := e.key(ev.Shutdown.Operator)
		if start, ok := e.lifespanMap[k]; ok {
			delete(e.lifespanMap, k)
			e.out.Lifespans = append(e.out.Lifespans, WorkerLifespan{
				WorkerOperator: k, Lifespan: events.Lifespan{Start: start, End: roundUp(t)},
			})
		}
		if e.timelineOn {
			for _, rec := range e.correlator.ReleaseReferencing(e.worker, ev.Shutdown.Operator, t) {
				e.out.TimelineEvents = append(e.out.TimelineEvents, rec.ToTimelineEvent(e.out.OperatorNames[k]))
			}
		}

	case events.KindApplication:
		if !e.timelineOn {
			return
		}
		sk := correlate.SpanKey{Kind: correlate.KindApplication, Discriminator: ev.Application.Id}
		ss := events.Stop
		if ev.Application.Start {
			ss = events.Start
		}
		if rec, ok := e.correlator.StartStop(e.worker, sk, ss, t); ok {
			e.out.TimelineEvents = append(e.out.TimelineEvents, rec.ToTimelineEvent(""))
		}

	case events.KindGuardedMessage:
		e.timelineSpan(correlate.KindMessage, ev.GuardedMessage.Kind, t)
	case events.KindGuardedProgress:
		e.timelineSpan(correlate.KindProgress, ev.GuardedProgress.Kind, t)
	case events.KindInput:
		e.timelineSpan(correlate.KindInput, ev.Input.Kind, t)
	case events.KindPark:
		ss := events.Stop
		if ev.Park.Kind == events.Park {
			ss = events.Start
		}
		e.timelineSpan(correlate.KindPark, ss, t)
	}
}

func (e *Extractor) timelineSpan(kind correlate.SpanKeyKind, ss events.StartStop, t events.TimeNanos) {
	if !e.timelineOn {
		return
	}
	if rec, ok := e.correlator.StartStop(e.worker, correlate.SpanKey{Kind: kind}, ss, t); ok {
		e.out.TimelineEvents = append(e.out.TimelineEvents, rec.ToTimelineEvent(""))
	}
}
