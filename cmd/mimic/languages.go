package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/bitgrove/mimic/internal/output"
	"github.com/bitgrove/mimic/internal/scanner"
	"github.com/bitgrove/mimic/pkg/lexer"
)

func languagesCmd() *cli.Command {
	return &cli.Command{
		Name:      "languages",
		Usage:     "List supported languages, or count source files by language",
		ArgsUsage: "[path...]",
		Action:    runLanguagesCmd,
	}
}

func runLanguagesCmd(c *cli.Context) error {
	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if c.Args().Len() == 0 {
		var rows [][]string
		for _, lang := range lexer.Languages() {
			rows = append(rows, []string{lang.String(), strings.Join(lexer.Extensions(lang), " ")})
		}
		return formatter.Output(output.NewTable(
			"Supported Languages",
			[]string{"Language", "Extensions"},
			rows,
			nil,
			nil,
		))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	scan := scanner.NewScanner(cfg)
	var files []string
	for _, path := range c.Args().Slice() {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", path, err)
		}
		found, err := scan.ScanDir(absPath)
		if err != nil {
			return fmt.Errorf("failed to scan directory %s: %w", path, err)
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	groups := scan.GroupByLanguage(files)
	langs := make([]lexer.Language, 0, len(groups))
	counts := make(map[string]int, len(groups))
	for lang, paths := range groups {
		langs = append(langs, lang)
		counts[lang.String()] = len(paths)
	}
	sort.Slice(langs, func(i, j int) bool {
		ni, nj := len(groups[langs[i]]), len(groups[langs[j]])
		if ni != nj {
			return ni > nj
		}
		return langs[i].String() < langs[j].String()
	})

	var rows [][]string
	for _, lang := range langs {
		rows = append(rows, []string{lang.String(), fmt.Sprintf("%d", len(groups[lang]))})
	}

	return formatter.Output(output.NewTable(
		"Source Files by Language",
		[]string{"Language", "Files"},
		rows,
		[]string{"Total", fmt.Sprintf("%d", len(files))},
		counts,
	))
}
