// Package progstats implements Program/Worker Stats (component H): rollups
// of operator, channel, subgraph, dataflow, and event counts plus runtime,
// per worker and program-wide.
package progstats

import "github.com/flowsight/flowsight/pkg/events"

// WorkerInput is what one worker contributes toward its own CountStats.
type WorkerInput struct {
	Worker      events.WorkerId
	Dataflows   uint64
	Operators   uint64
	Subgraphs   uint64
	Channels    uint64
	Events      uint64
	MinEventT   events.TimeNanos
	MaxEventT   events.TimeNanos
	HasEvents   bool
}

// WorkerStats computes one worker's CountStats; runtime is the span
// between its first and last observed event time.
func WorkerStats(in WorkerInput) events.CountStats {
	var runtime events.TimeNanos
	if in.HasEvents && in.MaxEventT >= in.MinEventT {
		runtime = in.MaxEventT - in.MinEventT
	}
	return events.CountStats{
		Workers:   1,
		Dataflows: in.Dataflows,
		Operators: in.Operators,
		Subgraphs: in.Subgraphs,
		Channels:  in.Channels,
		Events:    in.Events,
		Runtime:   runtime,
	}
}

// ProgramStats sums worker counts and takes the max runtime across workers
// (§4.H: "Program stats are the sum across workers for counts, max for
// runtime").
func ProgramStats(perWorker []events.CountStats) events.CountStats {
	var out events.CountStats
	for _, w := range perWorker {
		out.Workers += w.Workers
		out.Dataflows += w.Dataflows
		out.Operators += w.Operators
		out.Subgraphs += w.Subgraphs
		out.Channels += w.Channels
		out.Events += w.Events
		if w.Runtime > out.Runtime {
			out.Runtime = w.Runtime
		}
	}
	return out
}
