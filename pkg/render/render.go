// Package render builds the HTML operator/channel graph using go-echarts,
// an external collaborator per the specification: the core only produces
// the Channel collection this package visualizes.
package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/flowsight/flowsight/pkg/events"
)

// Palette names the color scheme applied to channel links by kind; concrete
// colors are an external collaborator detail, so only the hook is kept
// here.
type Palette map[events.ChannelKind]string

// DefaultPalette colors each channel kind distinctly.
func DefaultPalette() Palette {
	return Palette{
		events.ChannelNormal:       "#5470c6",
		events.ChannelScopeIngress: "#91cc75",
		events.ChannelScopeEgress:  "#ee6666",
	}
}

// BuildGraph renders operators as nodes and rewired channels as links in a
// go-echarts force-directed graph chart.
func BuildGraph(operatorNames map[string]string, channels []events.Channel, palette Palette) *charts.Graph {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "Dataflow Operator Graph"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make(map[string]string)
	labelFor := func(addrKey string) string {
		if l, ok := labels[addrKey]; ok {
			return l
		}
		label := addrKey
		if name := operatorNames[addrKey]; name != "" {
			label = fmt.Sprintf("%s (%s)", addrKey, name)
		}
		labels[addrKey] = label
		return label
	}

	seen := make(map[string]struct{})
	var nodes []opts.GraphNode
	addNode := func(addrKey string) {
		label := labelFor(addrKey)
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		nodes = append(nodes, opts.GraphNode{Name: label, Value: float32(1), SymbolSize: 20, Category: 0})
	}

	var links []opts.GraphLink
	for _, c := range channels {
		srcKey := c.SourceAddr.Key()
		tgtKey := c.TargetAddr.Key()
		addNode(srcKey)
		addNode(tgtKey)
		links = append(links, opts.GraphLink{
			Source:    labelFor(srcKey),
			Target:    labelFor(tgtKey),
			Value:     float32(c.ChannelId),
			LineStyle: &opts.LineStyle{Color: palette[c.Kind]},
		})
	}

	graph.AddSeries("operators", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Roam:               opts.Bool(true),
			Layout:             "force",
			Force:              &opts.GraphForce{Repulsion: 120},
			FocusNodeAdjacency: opts.Bool(true),
		}),
	)
	return graph
}

// WriteHTML renders a full standalone HTML page containing graph to w, the
// --output-dir HTML artifact referenced in §6.
func WriteHTML(w io.Writer, graph *charts.Graph) error {
	page := components.NewPage()
	page.PageTitle = "flowsight dataflow report"
	page.AddCharts(graph)
	return page.Render(w)
}

// OperatorLabel builds a human-readable node label combining the operator
// address and its resolved name. BuildGraph does not use it; it builds its
// own "key (name)" node labels.
func OperatorLabel(addr events.OperatorAddr, name string) string {
	if name == "" {
		return fmt.Sprint([]uint64(addr))
	}
	return fmt.Sprintf("%v %s", []uint64(addr), name)
}
