package rewire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsight/flowsight/pkg/events"
)

func TestBuildSubgraphSet_MarksStrictAncestors(t *testing.T) {
	addrs := []events.OperatorAddr{
		{0}, {0, 1}, {0, 1, 3}, {0, 5},
	}
	set := BuildSubgraphSet(addrs)

	require.Contains(t, set, events.OperatorAddr{0}.Key())
	require.Contains(t, set, events.OperatorAddr{0, 1}.Key())
	require.NotContains(t, set, events.OperatorAddr{0, 1, 3}.Key())
	require.NotContains(t, set, events.OperatorAddr{0, 5}.Key())
}

func TestRewire_NormalChannelNeitherEndpointIsBoundaryOrSubgraph(t *testing.T) {
	channels := []events.Channels{
		{
			Id:        1,
			ScopeAddr: events.OperatorAddr{0},
			Source:    events.Port{Operator: 3, Port: 1},
			Target:    events.Port{Operator: 4, Port: 1},
		},
	}
	subgraphs := BuildSubgraphSet([]events.OperatorAddr{{0}, {0, 3}, {0, 4}})

	out := Rewire(channels, subgraphs)
	require.Len(t, out, 1)
	require.Equal(t, events.ChannelNormal, out[0].Kind)
	require.Equal(t, events.OperatorAddr{0, 3}, out[0].SourceAddr)
	require.Equal(t, events.OperatorAddr{0, 4}, out[0].TargetAddr)
}

func TestRewire_BoundaryCrossingChannelsClassifyAsIngress(t *testing.T) {
	// Outer scope {0}: a regular operator at local index 5 feeds into
	// subgraph 1's boundary port.
	chanA := events.Channels{
		Id:        1,
		ScopeAddr: events.OperatorAddr{0},
		Source:    events.Port{Operator: 5, Port: 1},
		Target:    events.Port{Operator: 1, Port: 0},
	}
	// Inside subgraph {0,1}: its boundary feeds an inner operator at local
	// index 3.
	chanB := events.Channels{
		Id:        2,
		ScopeAddr: events.OperatorAddr{0, 1},
		Source:    events.Port{Operator: 0, Port: 0},
		Target:    events.Port{Operator: 3, Port: 1},
	}

	addrs := []events.OperatorAddr{{0}, {0, 1}, {0, 1, 3}, {0, 5}}
	subgraphs := BuildSubgraphSet(addrs)

	out := Rewire([]events.Channels{chanA, chanB}, subgraphs)

	require.Len(t, out, 1, "both raw channels touch a boundary port so neither survives as Normal")
	require.Equal(t, events.ChannelScopeIngress, out[0].Kind)
	require.Equal(t, events.ChannelId(1), out[0].ChannelId)
	require.Equal(t, events.OperatorAddr{0, 5}, out[0].SourceAddr)
	require.Equal(t, events.OperatorAddr{0, 1, 3}, out[0].TargetAddr)
}

func TestRewire_DeduplicatesIdenticalChannels(t *testing.T) {
	channels := []events.Channels{
		{Id: 1, ScopeAddr: events.OperatorAddr{0}, Source: events.Port{Operator: 3, Port: 1}, Target: events.Port{Operator: 4, Port: 1}},
		{Id: 1, ScopeAddr: events.OperatorAddr{0}, Source: events.Port{Operator: 3, Port: 1}, Target: events.Port{Operator: 4, Port: 1}},
	}
	subgraphs := BuildSubgraphSet([]events.OperatorAddr{{0}, {0, 3}, {0, 4}})

	out := Rewire(channels, subgraphs)
	require.Len(t, out, 1)
}
