// Package report renders the analyzer's derived collections as a textual
// report (go-pretty tables) and as a JSON dump. Both are external
// collaborators of the core per the specification — the core only
// produces the collections this package formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/flowsight/flowsight/pkg/events"
)

// Report bundles every derived collection the CLI can render after a
// replay completes.
type Report struct {
	ProgramStats    events.CountStats
	WorkerStats     map[events.WorkerId]events.CountStats
	Dataflows       []events.DataflowStats
	AggregatedStats []events.AggregatedOperatorStats
	Channels        []events.Channel
	Progress        []events.ProgressInfo
}

// WriteText renders a human-readable report to w using go-pretty tables,
// one per collection, in the teacher's table-formatting idiom (light
// style, footer totals).
func WriteText(w io.Writer, r Report) error {
	fmt.Fprintln(w, "=== PROGRAM SUMMARY ===")
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"Workers", "Dataflows", "Operators", "Subgraphs", "Channels", "Events", "Runtime (ns)"})
	summary.AppendRow(table.Row{
		r.ProgramStats.Workers, r.ProgramStats.Dataflows, r.ProgramStats.Operators,
		r.ProgramStats.Subgraphs, r.ProgramStats.Channels, r.ProgramStats.Events, r.ProgramStats.Runtime,
	})
	summary.Render()

	fmt.Fprintln(w, "\n=== WORKER STATS ===")
	workerTbl := table.NewWriter()
	workerTbl.SetOutputMirror(w)
	workerTbl.SetStyle(table.StyleLight)
	workerTbl.AppendHeader(table.Row{"Worker", "Dataflows", "Operators", "Subgraphs", "Channels", "Events", "Runtime (ns)"})
	for _, wid := range sortedWorkerIds(r.WorkerStats) {
		s := r.WorkerStats[wid]
		workerTbl.AppendRow(table.Row{wid, s.Dataflows, s.Operators, s.Subgraphs, s.Channels, s.Events, s.Runtime})
	}
	workerTbl.AppendFooter(table.Row{"Total", "", "", "", "", fmt.Sprintf("%d workers", len(r.WorkerStats))})
	workerTbl.Render()

	fmt.Fprintln(w, "\n=== DATAFLOWS ===")
	dfTbl := table.NewWriter()
	dfTbl.SetOutputMirror(w)
	dfTbl.SetStyle(table.StyleLight)
	dfTbl.AppendHeader(table.Row{"Worker", "Addr", "Operators", "Subgraphs", "Channels", "Lifespan Start", "Lifespan End"})
	for _, d := range r.Dataflows {
		dfTbl.AppendRow(table.Row{d.Worker, fmt.Sprint([]uint64(d.Addr)), d.Operators, d.Subgraphs, d.Channels, d.Lifespan.Start, d.Lifespan.End})
	}
	dfTbl.Render()

	fmt.Fprintln(w, "\n=== OPERATOR STATS (aggregated) ===")
	opTbl := table.NewWriter()
	opTbl.SetOutputMirror(w)
	opTbl.SetStyle(table.StyleLight)
	opTbl.AppendHeader(table.Row{"Operator", "Activations", "Min (ns)", "Max (ns)", "Avg (ns)", "Total (ns)"})
	for _, s := range r.AggregatedStats {
		opTbl.AppendRow(table.Row{s.Operator, s.Activations, s.Min, s.Max, fmt.Sprintf("%.1f", s.Average), s.Total})
	}
	opTbl.AppendFooter(table.Row{"Total", fmt.Sprintf("%d operators", len(r.AggregatedStats))})
	opTbl.Render()

	fmt.Fprintln(w, "\n=== CHANNELS ===")
	chTbl := table.NewWriter()
	chTbl.SetOutputMirror(w)
	chTbl.SetStyle(table.StyleLight)
	chTbl.Style().Options.SeparateRows = false
	chTbl.AppendHeader(table.Row{"Kind", "Channel Id", "Source", "Target"})
	for _, c := range r.Channels {
		chTbl.AppendRow(table.Row{c.Kind.String(), c.ChannelId, fmt.Sprint([]uint64(c.SourceAddr)), fmt.Sprint([]uint64(c.TargetAddr))})
	}
	chTbl.Render()

	return nil
}

func sortedWorkerIds(m map[events.WorkerId]events.CountStats) []events.WorkerId {
	out := make([]events.WorkerId, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// jsonDoc is the wire shape for --dump-json; field names are stable since
// this is a documented external interface.
type jsonDoc struct {
	ProgramStats    events.CountStats                       `json:"program_stats"`
	WorkerStats     map[events.WorkerId]events.CountStats    `json:"worker_stats"`
	Dataflows       []events.DataflowStats                  `json:"dataflows"`
	AggregatedStats []events.AggregatedOperatorStats         `json:"operator_stats"`
	Channels        []events.Channel                        `json:"channels"`
	Progress        []events.ProgressInfo                   `json:"progress"`
}

// WriteJSON dumps the full report as indented JSON, the --dump-json output
// referenced in §6.
func WriteJSON(w io.Writer, r Report) error {
	doc := jsonDoc{
		ProgramStats:    r.ProgramStats,
		WorkerStats:     r.WorkerStats,
		Dataflows:       r.Dataflows,
		AggregatedStats: r.AggregatedStats,
		Channels:        r.Channels,
		Progress:        r.Progress,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
