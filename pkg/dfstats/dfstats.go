// Package dfstats implements Dataflow Stats (component G): for each
// top-level dataflow, the count of nested operators, subgraphs, and
// channels, plus the dataflow operator's own lifespan.
package dfstats

import "github.com/flowsight/flowsight/pkg/events"

// Input bundles what dfstats needs from the extractor and rewirer stages
// for a single worker: the OperatorId→OperatorAddr association as built by
// the extractor (never reconstructed from an address's trailing path
// component, which is a different namespace — §4: OperatorId is a
// per-worker integer, OperatorAddr's last element is only the operator's
// local index within its parent scope), the subgraph subset of those, the
// scope address of every raw channel the extractor recorded, and the
// per-operator lifespan table.
type Input struct {
	Worker        events.WorkerId
	OperatorAddrs map[events.OperatorId]events.OperatorAddr
	Subgraphs     map[string]struct{} // OperatorAddr.Key() set
	ChannelScopes []events.OperatorAddr
	Lifespans     map[events.OperatorId]events.Lifespan
	DataflowIds   []events.OperatorId
}

// Compute derives one DataflowStats per top-level dataflow operator, via a
// chain of equijoins against the address index — here, linear scans keyed
// by prefix, since this component's cost is dominated by I/O, not CPU
// (§4.G: "ties broken by longest matching prefix, handled naturally by the
// semijoin against the subgraph set").
func Compute(in Input) []events.DataflowStats {
	out := make([]events.DataflowStats, 0, len(in.DataflowIds))

	for _, dfOp := range in.DataflowIds {
		addr, ok := in.OperatorAddrs[dfOp]
		if !ok || !addr.IsDataflow() {
			continue
		}
		var operators, subgraphs, channelsCount uint64
		for _, a := range in.OperatorAddrs {
			if addr.IsAncestorOf(a) {
				operators++
				if _, isSub := in.Subgraphs[a.Key()]; isSub {
					subgraphs++
				}
			}
		}
		for _, scope := range in.ChannelScopes {
			if addr.IsAncestorOf(scope) || addr.Key() == scope.Key() {
				channelsCount++
			}
		}
		out = append(out, events.DataflowStats{
			Worker:    in.Worker,
			Addr:      addr,
			Operators: operators,
			Subgraphs: subgraphs,
			Channels:  channelsCount,
			Lifespan:  in.Lifespans[dfOp],
		})
	}
	return out
}
