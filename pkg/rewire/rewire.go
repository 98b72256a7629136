// Package rewire implements the Channel Rewirer (component E): turns raw,
// subgraph-local channel records into globally meaningful Normal /
// ScopeIngress / ScopeEgress edges by iterative path propagation across
// subgraph boundaries.
//
// Grounded directly on rewire_channels / subgraph_ingress / subgraph_egress
// / subgraph_normal: the three sub-passes concatenate and consolidate. The
// ingress/egress passes are expressed here as a least fixed point over a
// plain Go map rather than a differential join. Each pass iterates until an
// iteration adds no new link, or at most maxIterationSafety times; the cap
// is a fixed constant and is not derived from the nesting depth of the
// address set.
package rewire

import "github.com/flowsight/flowsight/pkg/events"

// maxIterationSafety bounds each pass's fixed-point loop; no nesting depth
// is computed from the address set. Real dataflows never nest anywhere
// near this deep.
const maxIterationSafety = 64

// linkKey is a qualified (address, port) endpoint.
type linkKey struct {
	addr string // events.OperatorAddr.Key()
	port uint64
}

type link struct {
	source linkKey
	target linkKey
	path   []events.ChannelId
}

func pathKey(p []events.ChannelId) string {
	b := make([]byte, 0, len(p)*2)
	for _, id := range p {
		b = append(b, byte(id), byte(id>>8))
	}
	return string(b)
}

// SubgraphSet is the set of qualified addresses known to be subgraphs
// (operators that are a strict prefix of some other operator's address).
type SubgraphSet map[string]struct{}

// BuildSubgraphSet derives the subgraph address set from the full set of
// known operator addresses.
func BuildSubgraphSet(addrs []events.OperatorAddr) SubgraphSet {
	set := make(SubgraphSet)
	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = a.Key()
	}
	for i, a := range addrs {
		for j, b := range addrs {
			if i == j {
				continue
			}
			if a.IsAncestorOf(b) {
				set[keys[i]] = struct{}{}
				break
			}
		}
	}
	return set
}

// Rewire classifies raw channels into Normal / ScopeIngress / ScopeEgress,
// returning the consolidated, deduplicated result (§4.E).
func Rewire(channels []events.Channels, subgraphs SubgraphSet) []events.Channel {
	var out []events.Channel
	out = append(out, normal(channels, subgraphs)...)
	out = append(out, ingress(channels, subgraphs)...)
	out = append(out, egress(channels, subgraphs)...)
	return consolidate(out)
}

// qualify turns a channel's subgraph-relative endpoint into a fully
// qualified address: scope_addr ++ [operator-local-index].
func qualify(channel events.Channels, p events.Port) events.OperatorAddr {
	return channel.ScopeAddr.Push(p.Operator)
}

func normal(channels []events.Channels, subgraphs SubgraphSet) []events.Channel {
	var out []events.Channel
	for _, c := range channels {
		if c.Source.IsBoundary() || c.Target.IsBoundary() {
			continue
		}
		srcAddr := qualify(c, c.Source)
		tgtAddr := qualify(c, c.Target)
		if _, isSub := subgraphs[srcAddr.Key()]; isSub {
			continue
		}
		if _, isSub := subgraphs[tgtAddr.Key()]; isSub {
			continue
		}
		out = append(out, events.Channel{
			Kind: events.ChannelNormal, ChannelId: c.Id, SourceAddr: srcAddr, TargetAddr: tgtAddr,
		})
	}
	return out
}

// baseLinks builds the (qualified-source -> qualified-target) edge set
// shared by the ingress and egress passes, each edge carrying its
// single-channel path so far.
func baseLinks(channels []events.Channels) []link {
	links := make([]link, 0, len(channels))
	for _, c := range channels {
		srcAddr := qualify(c, c.Source)
		tgtAddr := qualify(c, c.Target)
		links = append(links, link{
			source: linkKey{addr: srcAddr.Key(), port: c.Source.Port},
			target: linkKey{addr: tgtAddr.Key(), port: c.Target.Port},
			path:   []events.ChannelId{c.Id},
		})
	}
	return links
}

func extendPath(a, b []events.ChannelId, aFirst bool) []events.ChannelId {
	out := make([]events.ChannelId, 0, len(a)+len(b))
	if aFirst {
		out = append(out, a...)
		out = append(out, b...)
	} else {
		out = append(out, b...)
		out = append(out, a...)
	}
	return out
}

// boundaryOf returns the scope-boundary child of k: (addr ++ [0], port).
// Appending to the '/'-joined key string is equivalent to appending to the
// address and re-keying, since Key() never emits a trailing separator.
func boundaryOf(k linkKey) linkKey {
	return linkKey{addr: k.addr + "/0", port: k.port}
}

func ingress(channels []events.Channels, subgraphs SubgraphSet) []events.Channel {
	links := baseLinks(channels)

	bySource := make(map[linkKey][]link)
	for _, l := range links {
		bySource[l.source] = append(bySource[l.source], l)
	}

	seen := make(map[linkKey]map[string]struct{})
	frontier := links
	for iter := 0; iter < maxIterationSafety && len(frontier) > 0; iter++ {
		var next []link
		for _, e := range frontier {
			candidate := boundaryOf(e.target)
			for _, r := range bySource[candidate] {
				if pathKey(r.path) == pathKey(e.path) {
					continue
				}
				merged := extendPath(e.path, r.path, true)
				key := e.source
				if seen[key] == nil {
					seen[key] = make(map[string]struct{})
				}
				combo := pathKey(merged) + "|" + r.target.addr
				if _, dup := seen[key][combo]; dup {
					continue
				}
				seen[key][combo] = struct{}{}
				newLink := link{source: e.source, target: r.target, path: merged}
				next = append(next, newLink)
				bySource[e.source] = append(bySource[e.source], newLink)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	// Reduce: per source, pick the entry with path length >= 2 and the
	// longest path — the deepest traced ingress terminal.
	best := make(map[linkKey]link)
	for _, l := range append(append([]link{}, links...), flattenBySource(bySource)...) {
		if len(l.path) < 2 {
			continue
		}
		cur, ok := best[l.source]
		if !ok || len(l.path) > len(cur.path) {
			best[l.source] = l
		}
	}

	var out []events.Channel
	for _, l := range best {
		out = append(out, events.Channel{
			Kind:       events.ChannelScopeIngress,
			ChannelId:  l.path[0],
			SourceAddr: addrFromKey(l.source),
			TargetAddr: addrFromKey(l.target),
		})
	}
	return out
}

func egress(channels []events.Channels, subgraphs SubgraphSet) []events.Channel {
	links := baseLinks(channels)

	byTarget := make(map[linkKey][]link)
	for _, l := range links {
		byTarget[l.target] = append(byTarget[l.target], l)
	}

	seen := make(map[linkKey]map[string]struct{})
	frontier := links
	for iter := 0; iter < maxIterationSafety && len(frontier) > 0; iter++ {
		var next []link
		for _, e := range frontier {
			candidate := boundaryOf(e.source)
			for _, r := range byTarget[candidate] {
				if pathKey(r.path) == pathKey(e.path) {
					continue
				}
				merged := extendPath(r.path, e.path, true)
				key := e.target
				if seen[key] == nil {
					seen[key] = make(map[string]struct{})
				}
				combo := pathKey(merged) + "|" + r.source.addr
				if _, dup := seen[key][combo]; dup {
					continue
				}
				seen[key][combo] = struct{}{}
				newLink := link{source: r.source, target: e.target, path: merged}
				next = append(next, newLink)
				byTarget[e.target] = append(byTarget[e.target], newLink)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	best := make(map[linkKey]link)
	for _, l := range append(append([]link{}, links...), flattenByTarget(byTarget)...) {
		if len(l.path) < 2 {
			continue
		}
		cur, ok := best[l.target]
		if !ok || len(l.path) > len(cur.path) {
			best[l.target] = l
		}
	}

	var out []events.Channel
	for _, l := range best {
		tgtAddr := addrFromKey(l.target)
		// Subgraph-terminated egresses are spurious (antijoin against
		// the subgraph set on the target address).
		if _, isSub := subgraphs[tgtAddr.Key()]; isSub {
			continue
		}
		out = append(out, events.Channel{
			Kind:       events.ChannelScopeEgress,
			ChannelId:  l.path[0],
			SourceAddr: addrFromKey(l.source),
			TargetAddr: tgtAddr,
		})
	}
	return out
}

func flattenBySource(m map[linkKey][]link) []link {
	var out []link
	for _, v := range m {
		out = append(out, v...)
	}
	return out
}

func flattenByTarget(m map[linkKey][]link) []link {
	var out []link
	for _, v := range m {
		out = append(out, v...)
	}
	return out
}

// addrFromKey reconstructs an OperatorAddr from its '/'-joined key form.
// linkKey only ever stores real qualified addresses as final source/target
// endpoints (boundary keys are lookup candidates, never emitted), so this
// round-trips losslessly.
func addrFromKey(k linkKey) events.OperatorAddr {
	return parseAddrKey(k.addr)
}

func parseAddrKey(key string) events.OperatorAddr {
	if key == "" {
		return nil
	}
	var addr events.OperatorAddr
	var cur uint64
	started := false
	for i := 0; i <= len(key); i++ {
		if i == len(key) || key[i] == '/' {
			if started {
				addr = append(addr, cur)
			}
			cur = 0
			started = false
			continue
		}
		cur = cur*10 + uint64(key[i]-'0')
		started = true
	}
	return addr
}

func consolidate(channels []events.Channel) []events.Channel {
	type dedupKey struct {
		kind events.ChannelKind
		id   events.ChannelId
		src  string
		tgt  string
	}
	seen := make(map[dedupKey]struct{})
	var out []events.Channel
	for _, c := range channels {
		k := dedupKey{c.Kind, c.ChannelId, c.SourceAddr.Key(), c.TargetAddr.Key()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
