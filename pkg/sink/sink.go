// Package sink implements the Sink Layer (component I): for each derived
// collection, a bounded single-producer/single-consumer channel with
// backpressure, drained by the extractor under a shared fuel budget.
package sink

import (
	"sync/atomic"

	"github.com/flowsight/flowsight/pkg/events"
)

// capacity is the bounded channel depth in batches, per §4.I ("capacity 1
// or 2 batches").
const capacity = 2

// Batch is one outgoing (timestamp, data, diff) tuple group pushed by a
// sink operator on a single output activation.
type Batch[T any] struct {
	Time events.TimeNanos
	Data []T
	Diff []int64
}

// Sink is a bounded SPSC channel carrying a derived collection's output
// batches from its producing operator to the Extractor.
type Sink[T any] struct {
	Name   string
	ch     chan Batch[T]
	closed atomic.Bool
}

// New creates a Sink named name.
func New[T any](name string) *Sink[T] {
	return &Sink[T]{
		Name: name,
		ch:   make(chan Batch[T], capacity),
	}
}

// TrySend attempts to push batch without blocking. Returns false if the
// channel is full, in which case the caller (a dataflow operator holding a
// capability) must retain that capability and retry on its next
// activation — backpressure never drops a record (§7).
func (s *Sink[T]) TrySend(batch Batch[T]) bool {
	select {
	case s.ch <- batch:
		return true
	default:
		return false
	}
}

// TryRecv attempts to pull one pending batch without blocking; used by the
// fuel-governed Extractor pump.
func (s *Sink[T]) TryRecv() (Batch[T], bool) {
	select {
	case b := <-s.ch:
		return b, true
	default:
		return Batch[T]{}, false
	}
}

// Close signals no further batches will be sent; safe to call once the
// producer side has drained (driver shutdown or stream exhaustion).
func (s *Sink[T]) Close() {
	s.closed.Store(true)
	close(s.ch)
}

// Drained reports whether the channel has been closed and fully consumed.
// Tracks closure with an explicit flag rather than peeking the channel, since
// a receive-based peek would consume a still-pending batch as a side effect
// and silently drop it — violating the no-drop backpressure guarantee above.
func (s *Sink[T]) Drained() bool {
	return s.closed.Load() && len(s.ch) == 0
}
