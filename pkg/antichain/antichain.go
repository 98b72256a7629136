// Package antichain implements a mutable frontier: the minimal set of
// logical times not yet closed by every tracked source, as referenced by
// the Replay Driver (component B) and the Span Correlator's capability
// bookkeeping (component D).
package antichain

import "sort"

// Time is any totally-ordered logical timestamp the antichain tracks.
// The analyzer instantiates this over events.TimeNanos.
type Time interface {
	~uint64
}

// count tracks how many outstanding updates currently hold a time open;
// a time leaves the frontier once its count drops to zero.
type entry[T Time] struct {
	time  T
	count int64
}

// MutableAntichain tracks the minimal elements of a multiset of times,
// updated incrementally as sources advance or retract their frontiers.
// It mirrors timely dataflow's MutableAntichain: an update at a time
// increments or decrements a reference count, and the antichain is the
// set of times with positive count that are not dominated by another
// positive-count time.
type MutableAntichain[T Time] struct {
	counts   map[T]int64
	frontier []T
}

// New returns an empty antichain.
func New[T Time]() *MutableAntichain[T] {
	return &MutableAntichain[T]{counts: make(map[T]int64)}
}

// Frontier returns the current minimal elements, sorted ascending. The
// returned slice is owned by the caller.
func (a *MutableAntichain[T]) Frontier() []T {
	out := make([]T, len(a.frontier))
	copy(out, a.frontier)
	return out
}

// IsEmpty reports whether every time has drained (count reached zero for
// all tracked times), i.e. the frontier is empty.
func (a *MutableAntichain[T]) IsEmpty() bool { return len(a.frontier) == 0 }

// Update applies delta to time's reference count and recomputes the
// frontier. Positive delta opens the time further out; negative delta
// retracts it. Called once per Progress(vec) entry pulled by the Replay
// Driver, and once per capability release on shutdown (with delta < 0).
func (a *MutableAntichain[T]) Update(time T, delta int64) {
	a.counts[time] += delta
	if a.counts[time] == 0 {
		delete(a.counts, time)
	}
	a.recompute()
}

// UpdateIter applies a batch of (time, delta) pairs as produced by a single
// Progress event, recomputing the frontier once afterward.
func (a *MutableAntichain[T]) UpdateIter(times []T, deltas []int64) {
	for i := range times {
		a.counts[times[i]] += deltas[i]
		if a.counts[times[i]] == 0 {
			delete(a.counts, times[i])
		}
	}
	a.recompute()
}

// ReleaseAll retracts every currently-open time with its full outstanding
// count, the action taken when a source shuts down: every remaining
// frontier element is released via negative progress (§4.B step 4).
func (a *MutableAntichain[T]) ReleaseAll() []T {
	released := make([]T, 0, len(a.counts))
	for t := range a.counts {
		released = append(released, t)
	}
	for _, t := range released {
		delete(a.counts, t)
	}
	a.recompute()
	sort.Slice(released, func(i, j int) bool { return released[i] < released[j] })
	return released
}

// recompute rebuilds the minimal-elements frontier from the positive-count
// set. For a totally-ordered time this is simply the minimum; kept as a
// sorted slice so a future partially-ordered time type can be substituted
// without changing callers.
func (a *MutableAntichain[T]) recompute() {
	if len(a.counts) == 0 {
		a.frontier = a.frontier[:0]
		return
	}
	min, found := T(0), false
	for t := range a.counts {
		if !found || t < min {
			min = t
			found = true
		}
	}
	a.frontier = append(a.frontier[:0], min)
}

// Join merges two antichains' frontiers, returning the pointwise minimum —
// the combined frontier the Replay Driver reports as the join of its N
// per-source frontiers (§4.B invariant).
func Join[T Time](chains ...*MutableAntichain[T]) []T {
	var min T
	found := false
	for _, c := range chains {
		for _, t := range c.Frontier() {
			if !found || t < min {
				min = t
				found = true
			}
		}
	}
	if !found {
		return nil
	}
	return []T{min}
}
