package sink

// DefaultFuel is the per-call fuel budget the driver thread grants the
// extractor before it must yield, matching the Fuel default used
// throughout the dataflow (§5: "default ~1,000,000 units per activation").
const DefaultFuel = 1_000_000

// pump is the type-erased handle Extractor uses to drain a Sink[T] of any
// T without the Extractor itself being generic over every collection's
// element type.
type pump interface {
	// drainOne consumes at most one pending batch, returning the fuel it
	// spent and whether a batch was actually consumed.
	drainOne() (spent int64, ok bool)
	drained() bool
}

type sinkPump[T any] struct {
	sink    *Sink[T]
	consume func(Batch[T])
}

func (p *sinkPump[T]) drainOne() (int64, bool) {
	batch, ok := p.sink.TryRecv()
	if !ok {
		return 0, false
	}
	p.consume(batch)
	return int64(len(batch.Data)) + 1, true
}

func (p *sinkPump[T]) drained() bool { return p.sink.Drained() }

// Extractor drains every attached sink under a shared fuel budget, the
// consumer side described in §4.I: "the driver thread calls it in a loop
// until all workers report completion."
type Extractor struct {
	pumps []pump
}

// NewExtractor returns an Extractor with no attached sinks.
func NewExtractor() *Extractor { return &Extractor{} }

// Attach registers s with the extractor; consume is invoked once per
// drained batch.
func Attach[T any](e *Extractor, s *Sink[T], consume func(Batch[T])) {
	e.pumps = append(e.pumps, &sinkPump[T]{sink: s, consume: consume})
}

// Drain pulls batches from every attached sink in round-robin order until
// either every sink is drained or fuel is exhausted, returning whether all
// sinks were drained. The caller loops on this until true.
func (e *Extractor) Drain(fuel int64) (allDrained bool) {
	remaining := fuel
	for remaining > 0 {
		progressed := false
		allDone := true
		for _, p := range e.pumps {
			if p.drained() {
				continue
			}
			allDone = false
			spent, ok := p.drainOne()
			if ok {
				remaining -= spent
				progressed = true
			}
			if remaining <= 0 {
				return false
			}
		}
		if allDone {
			return true
		}
		if !progressed {
			// Every live sink reported empty this pass; nothing more to
			// drain until the producer side emits again.
			return false
		}
	}
	return false
}
