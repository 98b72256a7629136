// Package opstats implements Operator Stats (component F): per-(worker,
// operator) activation statistics, merge-event-derived arrangement size
// bands, and cross-worker aggregation.
package opstats

import (
	"github.com/flowsight/flowsight/pkg/alg/stats"
	"github.com/flowsight/flowsight/pkg/events"
)

// Builder accumulates activation records into OperatorStats, grouped by
// (worker, operator).
type Builder struct {
	durations map[events.WorkerOperator][]events.TimeNanos
	merges    map[events.WorkerOperator]uint64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		durations: make(map[events.WorkerOperator][]events.TimeNanos),
		merges:    make(map[events.WorkerOperator]uint64),
	}
}

// AddActivation records one closed Schedule span's duration.
func (b *Builder) AddActivation(key events.WorkerOperator, duration events.TimeNanos) {
	b.durations[key] = append(b.durations[key], duration)
}

// AddMergeActivity records one closed Merge span observed inside op's
// schedule window, the best-effort arrangement-size proxy described in
// §4.F and flagged in §9 as "a pretty much a guess."
func (b *Builder) AddMergeActivity(key events.WorkerOperator) {
	b.merges[key]++
}

// Stats materializes OperatorStats for every (worker, operator) seen.
func (b *Builder) Stats() []events.OperatorStats {
	out := make([]events.OperatorStats, 0, len(b.durations))
	for key, durs := range b.durations {
		out = append(out, statsFor(key, durs, b.merges[key]))
	}
	return out
}

func statsFor(key events.WorkerOperator, durs []events.TimeNanos, mergeCount uint64) events.OperatorStats {
	floats := make([]float64, len(durs))
	var total events.TimeNanos
	min, max := durs[0], durs[0]
	for i, d := range durs {
		floats[i] = float64(d)
		total += d
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	s := events.OperatorStats{
		Worker:              key.Worker,
		Operator:            key.Operator,
		Activations:         uint64(len(durs)),
		Min:                 min,
		Max:                 max,
		Total:               total,
		Average:             stats.Mean(floats),
		ActivationDurations: durs,
	}
	if mergeCount > 0 {
		s.ArrangementSize = &events.ArrangementSizeBand{Min: 1, Max: mergeCount}
	}
	return s
}

// Aggregate sums per-worker OperatorStats into AggregatedOperatorStats,
// keyed solely by OperatorId, across every worker that touched it.
func Aggregate(perWorker []events.OperatorStats) []events.AggregatedOperatorStats {
	type acc struct {
		count      uint64
		total      events.TimeNanos
		min, max   events.TimeNanos
		haveMinMax bool
	}
	byOp := make(map[events.OperatorId]*acc)
	order := make([]events.OperatorId, 0)
	for _, s := range perWorker {
		a, ok := byOp[s.Operator]
		if !ok {
			a = &acc{}
			byOp[s.Operator] = a
			order = append(order, s.Operator)
		}
		a.count += s.Activations
		a.total += s.Total
		if !a.haveMinMax {
			a.min, a.max = s.Min, s.Max
			a.haveMinMax = true
		} else {
			if s.Min < a.min {
				a.min = s.Min
			}
			if s.Max > a.max {
				a.max = s.Max
			}
		}
	}

	out := make([]events.AggregatedOperatorStats, 0, len(order))
	for _, op := range order {
		a := byOp[op]
		avg := 0.0
		if a.count > 0 {
			avg = float64(a.total) / float64(a.count)
		}
		out = append(out, events.AggregatedOperatorStats{
			Operator:    op,
			Activations: a.count,
			Min:         a.min,
			Max:         a.max,
			Total:       a.total,
			Average:     avg,
		})
	}
	return out
}
