package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsight/flowsight/pkg/events"
)

func TestDefaultPalette_ColorsAllThreeChannelKinds(t *testing.T) {
	p := DefaultPalette()
	require.Len(t, p, 3)
	require.NotEmpty(t, p[events.ChannelNormal])
	require.NotEmpty(t, p[events.ChannelScopeIngress])
	require.NotEmpty(t, p[events.ChannelScopeEgress])
}

func TestOperatorLabel_WithAndWithoutName(t *testing.T) {
	addr := events.OperatorAddr{0, 2}
	require.Equal(t, "[0 2] Input", OperatorLabel(addr, "Input"))
	require.Equal(t, "[0 2]", OperatorLabel(addr, ""))
}

func TestBuildGraph_DeduplicatesSharedNodesAcrossChannels(t *testing.T) {
	channels := []events.Channel{
		{Kind: events.ChannelNormal, ChannelId: 1, SourceAddr: events.OperatorAddr{0, 1}, TargetAddr: events.OperatorAddr{0, 2}},
		{Kind: events.ChannelScopeIngress, ChannelId: 2, SourceAddr: events.OperatorAddr{0, 2}, TargetAddr: events.OperatorAddr{0, 3}},
	}
	names := map[string]string{"0/1": "Source", "0/2": "Map"}

	graph := BuildGraph(names, channels, DefaultPalette())
	require.NotNil(t, graph)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, graph))
	out := buf.String()
	require.Contains(t, out, "0/1 (Source)")
	require.Contains(t, out, "0/2 (Map)")
	require.Contains(t, out, "0/3")
}

func TestBuildGraph_EmptyChannelsProducesEmptyGraph(t *testing.T) {
	graph := BuildGraph(nil, nil, DefaultPalette())
	require.NotNil(t, graph)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, graph))
}
