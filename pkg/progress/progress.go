// Package progress implements the Progress Aggregator (component J):
// groups per-channel progress messages by (OperatorAddr, ChannelId) and
// sums send/receive counts. A single reduction; no cross-worker
// correlation is required.
package progress

import "github.com/flowsight/flowsight/pkg/events"

type key struct {
	addr string
	ch   events.ChannelId
}

// Aggregator accumulates ProgressEvent deltas into per-channel totals.
type Aggregator struct {
	totals map[key]*events.ProgressInfo
}

// New returns an empty Aggregator.
func New() *Aggregator { return &Aggregator{totals: make(map[key]*events.ProgressInfo)} }

// Add folds one ProgressEvent's deltas into the running totals for its
// (addr, channel) key.
func (a *Aggregator) Add(ev events.ProgressEvent) {
	k := key{addr: ev.Addr.Key(), ch: ev.Channel}
	info, ok := a.totals[k]
	if !ok {
		info = &events.ProgressInfo{Addr: ev.Addr, Channel: ev.Channel}
		a.totals[k] = info
	}
	var sum int64
	for _, d := range ev.Deltas {
		sum += d.Count
	}
	if ev.IsSend {
		info.SendCount += sum
	} else {
		info.RecvCount += sum
	}
}

// Results returns every accumulated (addr, channel) record.
func (a *Aggregator) Results() []events.ProgressInfo {
	out := make([]events.ProgressInfo, 0, len(a.totals))
	for _, v := range a.totals {
		out = append(out, *v)
	}
	return out
}
