package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flowsight/flowsight/pkg/config"
	"github.com/flowsight/flowsight/pkg/render"
	"github.com/flowsight/flowsight/pkg/report"
	"github.com/flowsight/flowsight/pkg/streaming"
)

// printBanner announces what flowtrace is about to replay: how many
// workers, and how many files of each kind each one was assigned. It prints
// counts only; source paths and peer addresses are not listed. Silenced by
// --quiet.
func printBanner(deps pipelineDeps, timely, differential, progress []streaming.WorkerAssignment) {
	if deps.quiet {
		return
	}

	bold := color.New(color.FgCyan, color.Bold)
	bold.Fprintf(os.Stderr, "flowtrace")
	fmt.Fprintf(os.Stderr, " replaying %s across %d worker(s)\n",
		humanize.Comma(int64(countPaths(timely)+countPaths(differential)+countPaths(progress))),
		len(timely))

	for _, a := range timely {
		fmt.Fprintf(os.Stderr, "  worker %d: %d timely, %d differential, %d progress source(s)\n",
			a.Worker, len(a.Paths), len(pathsFor(differential, a.Worker)), len(pathsFor(progress, a.Worker)))
	}
}

func countPaths(plan []streaming.WorkerAssignment) int {
	n := 0
	for _, a := range plan {
		n += len(a.Paths)
	}
	return n
}

// writeReport renders rpt per the CLI's output flags: stdout when
// --no-report-file is set, otherwise a file under --output-dir named by
// --report-file, in either go-pretty text or --dump-json form (§6).
func writeReport(cmd *cobra.Command, cfg *config.Config, rpt Report) error {
	w := cmd.OutOrStdout()
	path := ""
	if !cfg.NoReportFile && cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		path = filepath.Join(cfg.OutputDir, cfg.ReportFile)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if cfg.DumpJSON {
		if err := report.WriteJSON(w, rpt.Report); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	} else {
		if err := report.WriteText(w, rpt.Report); err != nil {
			return fmt.Errorf("write text report: %w", err)
		}
	}

	if path != "" {
		color.New(color.FgGreen).Fprintf(os.Stderr, "report written to %s\n", path)
	}

	if cfg.OutputDir != "" {
		if err := writeGraph(cfg, rpt); err != nil {
			return err
		}
	}
	return nil
}

// writeGraph renders rpt's rewired channels as an HTML force-directed
// graph under --output-dir, the visual counterpart to the text/JSON report
// (§6: "an HTML graph artifact alongside the report").
func writeGraph(cfg *config.Config, rpt Report) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	graph := render.BuildGraph(rpt.OperatorLabels, rpt.Channels, render.DefaultPalette())
	path := filepath.Join(cfg.OutputDir, "graph.html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	defer f.Close()
	if err := render.WriteHTML(f, graph); err != nil {
		return fmt.Errorf("write graph html: %w", err)
	}
	color.New(color.FgGreen).Fprintf(os.Stderr, "graph written to %s\n", path)
	return nil
}
