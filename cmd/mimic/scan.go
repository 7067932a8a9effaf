package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/bitgrove/mimic/internal/output"
	"github.com/bitgrove/mimic/internal/progress"
	"github.com/bitgrove/mimic/internal/scanner"
	"github.com/bitgrove/mimic/pkg/clones"
	"github.com/bitgrove/mimic/pkg/config"
	"github.com/bitgrove/mimic/pkg/source"
)

func scanCmd() *cli.Command {
	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "ext",
			Usage: "File extensions to include (repeatable, e.g. --ext .py --ext js)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude (repeatable, e.g. '**/vendor/**')",
		},
		&cli.IntFlag{
			Name:  "hotspots",
			Value: config.DefaultConfig().Output.Hotspots,
			Usage: "Max hotspot rows to display (0 hides the table)",
		},
	}
	flags = append(flags, detectorFlags()...)

	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"detect"},
		Usage:     "Detect code clones under one or more paths",
		ArgsUsage: "[path...]",
		Flags:     flags,
		Action:    runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	paths := getPaths(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyDetectorFlags(c, cfg)
	if c.IsSet("ext") {
		cfg.Scan.Extensions = c.StringSlice("ext")
	}
	if c.IsSet("exclude") {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, c.StringSlice("exclude")...)
	}

	scan := scanner.NewScanner(cfg)
	spinner := progress.NewSpinner("Scanning files...")
	var files []string
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			spinner.FinishError(err)
			return fmt.Errorf("invalid path %s: %w", path, err)
		}
		found, err := scan.ScanDir(absPath)
		if err != nil {
			spinner.FinishError(err)
			return fmt.Errorf("failed to scan directory %s: %w", path, err)
		}
		files = append(files, found...)
	}
	spinner.FinishSuccess()

	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	type skip struct {
		path string
		err  error
	}
	var skips []skip

	tracker := progress.NewTracker("Detecting clones...", len(files))
	opts := analyzerOptions(c, cfg)
	opts = append(opts, clones.WithProgress(tracker.Tick))
	opts = append(opts, clones.WithSkipHandler(func(path string, err error) {
		skips = append(skips, skip{path: path, err: err})
	}))

	detector := clones.New(opts...)
	report, err := detector.Analyze(c.Context, files, source.NewFilesystem())
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishSuccess()

	if c.Bool("verbose") {
		for _, s := range skips {
			formatter.Warning("Skipped %s: %v", s.path, s.err)
		}
	}

	if formatter.Format() == output.FormatJSON || formatter.Format() == output.FormatTOON {
		return formatter.Output(report)
	}

	if len(report.Clones) == 0 {
		formatter.Success("No clones found in %d files (%d lines)",
			report.Summary.FilesAnalyzed, report.Summary.TotalLines)
		return nil
	}

	var rows [][]string
	for _, clone := range report.Clones {
		a, b := clone.Locations[0], clone.Locations[1]
		rows = append(rows, []string{
			truncate(fmt.Sprintf("%s:%d-%d", a.File, a.StartLine, a.EndLine), 60),
			truncate(fmt.Sprintf("%s:%d-%d", b.File, b.StartLine, b.EndLine), 60),
			string(clone.Type),
			fmt.Sprintf("%.0f%%", clone.Similarity*100),
			fmt.Sprintf("%d", a.EndLine-a.StartLine+1),
		})
	}

	clonesTable := output.NewTable(
		"Code Clones Detected",
		[]string{"Location A", "Location B", "Type", "Similarity", "Lines"},
		rows,
		[]string{
			fmt.Sprintf("Total: %d", report.Summary.ClonePairsFound),
			fmt.Sprintf("Type-1: %d", report.Metrics.ByType["Type-1"]),
			fmt.Sprintf("Type-2: %d", report.Metrics.ByType["Type-2"]),
			fmt.Sprintf("Type-3: %d", report.Metrics.ByType["Type-3"]),
			fmt.Sprintf("Avg Sim: %.0f%%", report.Metrics.SimilarityMean*100),
		},
		nil,
	)

	sections := []output.Renderable{clonesTable}

	maxHotspots := cfg.Output.Hotspots
	if c.IsSet("hotspots") {
		maxHotspots = c.Int("hotspots")
	}
	if maxHotspots > 0 && len(report.Hotspots) > 0 {
		var hotRows [][]string
		for i, h := range report.Hotspots {
			if i >= maxHotspots {
				break
			}
			score := fmt.Sprintf("%.1f%%", h.Score*100)
			if formatter.Colored() {
				score = output.SeverityColor(severityForScore(h.Score), score)
			}
			hotRows = append(hotRows, []string{
				truncate(h.File, 60),
				fmt.Sprintf("%d", h.CloneCount),
				fmt.Sprintf("%d/%d", h.DuplicatedLines, h.TotalLines),
				score,
			})
		}
		sections = append(sections, output.NewTable(
			"Duplication Hotspots",
			[]string{"File", "Clones", "Dup/Total Lines", "Score"},
			hotRows,
			nil,
			nil,
		))
	}

	sections = append(sections, &output.Section{
		Title: "Summary",
		Content: fmt.Sprintf(
			"Files analyzed: %d\nTotal lines: %d\nClone pairs: %d\nEstimated duplication: %s\nAnalysis time: %dms",
			report.Summary.FilesAnalyzed,
			report.Summary.TotalLines,
			report.Summary.ClonePairsFound,
			report.Summary.EstimatedDuplication,
			report.Summary.AnalysisTimeMs,
		),
	})

	return formatter.Output(&output.Report{
		Title:    "Clone Analysis",
		Sections: sections,
		Data:     report,
	})
}
