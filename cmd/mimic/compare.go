package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/bitgrove/mimic/internal/output"
	"github.com/bitgrove/mimic/internal/scanner"
	"github.com/bitgrove/mimic/pkg/clones"
	"github.com/bitgrove/mimic/pkg/source"
)

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Detect clones between exactly two files",
		ArgsUsage: "<file-a> <file-b>",
		Flags:     detectorFlags(),
		Action:    runCompareCmd,
	}
}

func runCompareCmd(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("compare requires exactly two files, got %d", c.Args().Len())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyDetectorFlags(c, cfg)

	scan := scanner.NewScanner(cfg)
	files := make([]string, 2)
	for i, arg := range c.Args().Slice() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", arg, err)
		}
		ok, err := scan.ScanFile(abs)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if !ok {
			return fmt.Errorf("%s is not a supported source file", arg)
		}
		files[i] = abs
	}

	detector := clones.New(analyzerOptions(c, cfg)...)
	report, err := detector.Compare(c.Context, files[0], files[1], source.NewFilesystem())
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON || formatter.Format() == output.FormatTOON {
		return formatter.Output(report)
	}

	if len(report.Clones) == 0 {
		formatter.Info("No clones found between %s and %s", c.Args().Get(0), c.Args().Get(1))
		return nil
	}

	var rows [][]string
	for _, clone := range report.Clones {
		a, b := clone.Locations[0], clone.Locations[1]
		rows = append(rows, []string{
			clone.ID,
			fmt.Sprintf("%d-%d", a.StartLine, a.EndLine),
			fmt.Sprintf("%d-%d", b.StartLine, b.EndLine),
			string(clone.Type),
			fmt.Sprintf("%.0f%%", clone.Similarity*100),
		})
	}

	table := output.NewTable(
		fmt.Sprintf("Clones: %s vs %s", filepath.Base(files[0]), filepath.Base(files[1])),
		[]string{"ID", "Lines A", "Lines B", "Type", "Similarity"},
		rows,
		[]string{
			fmt.Sprintf("Total: %d", report.Summary.ClonePairsFound),
			"", "", "",
			fmt.Sprintf("Avg: %.0f%%", report.Metrics.SimilarityMean*100),
		},
		report,
	)

	return formatter.Output(table)
}
