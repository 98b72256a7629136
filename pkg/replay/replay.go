// Package replay implements the Replay Driver (component B): a single
// operator multiplexing N framed byte sources into the analytical
// dataflow, managing per-source frontiers, honoring cooperative shutdown,
// and metering work by a Fuel budget.
package replay

import (
	"sync/atomic"
	"time"

	"github.com/flowsight/flowsight/pkg/antichain"
	"github.com/flowsight/flowsight/pkg/events"
	"github.com/flowsight/flowsight/pkg/framing"
)

// DefaultFuel is the per-activation work budget (§5: "default ~1,000,000
// units per activation").
const DefaultFuel = 1_000_000

// DefaultReactivateDelay is how long the driver asks to be rescheduled
// after an activation that made progress but did not finish (§4.B step 5).
const DefaultReactivateDelay = 10 * time.Millisecond

// Action is the outcome of one Activate call, mirroring the two terminal
// states a cooperatively-scheduled operator can report.
type Action int

const (
	// Reactivate asks the host runtime to schedule another activation
	// after ReactivateDelay.
	Reactivate Action = iota
	// Terminate reports the operator is done: no reactivation needed.
	Terminate
)

// WireKind distinguishes the two payload shapes a framed source emits.
type WireKind int

const (
	WireProgress WireKind = iota
	WireMessages
)

// ProgressUpdate is one timestamp/delta pair inside a Progress frame.
type ProgressUpdate struct {
	Time  events.TimeNanos
	Delta int64
}

// WireEvent is the decoded shape of a single frame, as produced by a
// framing.Source[WireEvent[D]]: either a batch of frontier updates or a
// timestamped batch of application data.
type WireEvent[D any] struct {
	Kind     WireKind
	Progress []ProgressUpdate
	Time     events.TimeNanos
	Data     []D
}

// Output is what the driver hands downstream: a batch of D at a logical
// time, matching the "emit a session at t with data" language of §4.B.
type Output[D any] struct {
	Time events.TimeNanos
	Data []D
}

// Logger is the minimal interface the driver needs; satisfied by *slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Driver multiplexes N framed sources of WireEvent[D] into a single output
// stream, tracking one MutableAntichain per source plus their join.
type Driver[D any] struct {
	sources   []*framing.Source[WireEvent[D]]
	frontiers []*antichain.MutableAntichain[uint64]
	finished  []bool

	fuelPerActivation int64
	reactivateDelay   time.Duration

	isRunning *atomic.Bool // shared cancellation flag, §5
	rr        int          // round-robin cursor across sources
	first     bool

	log Logger

	Output chan Output[D]
}

// Config bundles the driver's tunables; zero values fall back to the §5/§4.B
// defaults.
type Config struct {
	FuelPerActivation int64
	ReactivateDelay   time.Duration
	OutputBuffer      int
}

// New builds a Driver over sources, sharing isRunning with every sibling
// driver and the main cancellation loop (§5 shared mutable state).
func New[D any](sources []*framing.Source[WireEvent[D]], isRunning *atomic.Bool, cfg Config, log Logger) *Driver[D] {
	if cfg.FuelPerActivation <= 0 {
		cfg.FuelPerActivation = DefaultFuel
	}
	if cfg.ReactivateDelay <= 0 {
		cfg.ReactivateDelay = DefaultReactivateDelay
	}
	if cfg.OutputBuffer <= 0 {
		cfg.OutputBuffer = 16
	}
	frontiers := make([]*antichain.MutableAntichain[uint64], len(sources))
	for i := range frontiers {
		frontiers[i] = antichain.New[uint64]()
	}
	return &Driver[D]{
		sources:           sources,
		frontiers:         frontiers,
		finished:          make([]bool, len(sources)),
		fuelPerActivation: cfg.FuelPerActivation,
		reactivateDelay:   cfg.ReactivateDelay,
		isRunning:         isRunning,
		first:             true,
		log:               log,
		Output:            make(chan Output[D], cfg.OutputBuffer),
	}
}

// ReactivateDelay exposes the configured delay so a caller scheduling
// reactivation can honor it.
func (d *Driver[D]) ReactivateDelay() time.Duration { return d.reactivateDelay }

// Frontier returns the join of every per-source frontier: the minimal set
// of logical times not yet closed across all N inputs (§4.B invariant).
func (d *Driver[D]) Frontier() []uint64 {
	return antichain.Join(d.frontiers...)
}

// Activate performs one operator activation per §4.B: round-robins the N
// sources under a fresh fuel budget, merges progress, emits message
// batches, and reports whether the host should reactivate this driver.
func (d *Driver[D]) Activate() Action {
	if d.first {
		// Capability split: the driver owns one capability but must
		// behave as though it held N independent ones. Without a host
		// runtime exposing per-input capabilities, this is represented
		// purely by tracking N independent frontiers from the start —
		// there is no separate counter to inflate in this model.
		d.first = false
	}

	fuel := d.fuelPerActivation
	shutdownRequested := !d.isRunning.Load()

	n := len(d.sources)
	for step := 0; step < n && fuel > 0 && !shutdownRequested; step++ {
		idx := d.rr % n
		d.rr++
		if d.finished[idx] {
			continue
		}

		// Drain this source under the remaining fuel budget before moving
		// on to the next one round-robin, rather than pulling just one
		// event per source per activation. A poll that finds no full frame
		// returns a zero-value event, which is applied as an empty progress
		// batch costing 1 fuel; the loop does not move on to the next
		// source then, but stays here until fuel runs out, the source
		// reports finished, or shutdown is requested.
		for fuel > 0 && !shutdownRequested {
			event, sourceFinished, err := d.sources[idx].Next()
			if err != nil {
				d.log.Warn("fatal source error, stopping driver", "source", idx, "err", err)
				d.isRunning.Store(false)
				shutdownRequested = true
				break
			}

			if sourceFinished {
				d.finished[idx] = true
				break
			}

			fuel -= d.applyEvent(idx, event)

			if !shutdownRequested {
				shutdownRequested = !d.isRunning.Load()
			}
		}
	}

	allFinished := true
	for _, f := range d.finished {
		if !f {
			allFinished = false
			break
		}
	}

	if shutdownRequested || allFinished {
		d.releaseAll()
		close(d.Output)
		return Terminate
	}
	return Reactivate
}

// applyEvent merges one decoded frame into the driver's state, returning
// the fuel it cost (1 per progress batch, len(data) per message batch —
// §4.B step 3).
func (d *Driver[D]) applyEvent(sourceIdx int, event WireEvent[D]) int64 {
	switch event.Kind {
	case WireProgress:
		times := make([]uint64, len(event.Progress))
		deltas := make([]int64, len(event.Progress))
		for i, u := range event.Progress {
			times[i] = uint64(u.Time)
			deltas[i] = u.Delta
		}
		d.frontiers[sourceIdx].UpdateIter(times, deltas)
		return 1
	case WireMessages:
		d.Output <- Output[D]{Time: event.Time, Data: event.Data}
		return int64(len(event.Data))
	default:
		return 0
	}
}

// releaseAll drops every still-open frontier element for every source, the
// "emit negative progress for each remaining frontier element" step that
// runs on shutdown or stream exhaustion (§4.B step 4).
func (d *Driver[D]) releaseAll() {
	for i, f := range d.frontiers {
		released := f.ReleaseAll()
		if len(released) > 0 {
			d.log.Debug("released outstanding frontier on shutdown", "source", i, "times", len(released))
		}
	}
}

// NewRunningFlag returns a fresh shared is_running flag, initialized true.
func NewRunningFlag() *atomic.Bool {
	flag := &atomic.Bool{}
	flag.Store(true)
	return flag
}
