package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/bitgrove/mimic/internal/output"
	"github.com/bitgrove/mimic/internal/scanner"
	"github.com/bitgrove/mimic/pkg/clones"
	"github.com/bitgrove/mimic/pkg/config"
	"github.com/bitgrove/mimic/pkg/source"
)

// Common input structures for tools

// AnalyzeInput is the base input for the scan tool.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Paths to scan. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// ScanInput adds detection options to the base scan input.
type ScanInput struct {
	AnalyzeInput
	WindowSize  int     `json:"window_size,omitempty" jsonschema:"Sliding window size in tokens. Default 10."`
	MinTokens   int     `json:"min_tokens,omitempty" jsonschema:"Minimum clone length in tokens. Default 30."`
	Threshold   float64 `json:"threshold,omitempty" jsonschema:"Similarity threshold for Type-3 extension (0.0-1.0]. Default 0.7."`
	DetectType3 bool    `json:"detect_type3,omitempty" jsonschema:"Also detect gapped Type-3 clones."`
	MaxGap      int     `json:"max_gap,omitempty" jsonschema:"Largest insertion the Type-3 extender will cross. Default 5."`
	Hotspots    int     `json:"hotspots,omitempty" jsonschema:"Limit hotspots in the result. Default 10."`
}

// CompareInput is the input for the compare tool.
type CompareInput struct {
	FileA       string  `json:"file_a" jsonschema:"First file to compare."`
	FileB       string  `json:"file_b" jsonschema:"Second file to compare."`
	Format      string  `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	Threshold   float64 `json:"threshold,omitempty" jsonschema:"Similarity threshold for Type-3 extension (0.0-1.0]. Default 0.7."`
	DetectType3 bool    `json:"detect_type3,omitempty" jsonschema:"Also detect gapped Type-3 clones."`
}

// Helper functions

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func scanFiles(paths []string) ([]string, error) {
	cfg := config.LoadOrDefault()
	scan := scanner.NewScanner(cfg)

	var files []string
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", path, err)
		}
		found, err := scan.ScanDir(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		// For markdown, wrap in code block
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "\n```", nil
	default:
		// TOON format (default)
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// detectorOptions maps tool input onto analyzer options, leaving analyzer
// defaults in place for anything the caller did not set.
func detectorOptions(in ScanInput) []clones.Option {
	opts := []clones.Option{
		clones.WithType3Detection(in.DetectType3),
	}
	if in.WindowSize > 0 {
		opts = append(opts, clones.WithWindowSize(in.WindowSize))
	}
	if in.MinTokens > 0 {
		opts = append(opts, clones.WithMinCloneTokens(in.MinTokens))
	}
	if in.Threshold > 0 {
		opts = append(opts, clones.WithSimilarityThreshold(in.Threshold))
	}
	if in.MaxGap > 0 {
		opts = append(opts, clones.WithMaxGapTokens(in.MaxGap))
	}
	return opts
}

// Tool handlers

func handleScanClones(ctx context.Context, req *mcp.CallToolRequest, input ScanInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.AnalyzeInput)
	format := getFormat(input.Format)

	files, err := scanFiles(paths)
	if err != nil {
		return toolError(err.Error())
	}

	if len(files) == 0 {
		return toolError("no source files found")
	}

	detector := clones.New(detectorOptions(input)...)
	report, err := detector.Analyze(ctx, files, source.NewFilesystem())
	if err != nil {
		return toolError(fmt.Sprintf("analysis failed: %v", err))
	}

	// Limit hotspot rows if requested
	top := input.Hotspots
	if top <= 0 {
		top = 10
	}
	if len(report.Hotspots) > top {
		report.Hotspots = report.Hotspots[:top]
	}

	return toolResult(report, format)
}

func handleCompareFiles(ctx context.Context, req *mcp.CallToolRequest, input CompareInput) (*mcp.CallToolResult, any, error) {
	if input.FileA == "" || input.FileB == "" {
		return toolError("file_a and file_b are required")
	}
	format := getFormat(input.Format)

	scan := scanner.NewScanner(config.LoadOrDefault())
	files := make([]string, 2)
	for i, path := range []string{input.FileA, input.FileB} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return toolError(fmt.Sprintf("invalid path %s: %v", path, err))
		}
		ok, err := scan.ScanFile(abs)
		if err != nil {
			return toolError(fmt.Sprintf("cannot read %s: %v", path, err))
		}
		if !ok {
			return toolError(fmt.Sprintf("%s is not a supported source file", path))
		}
		files[i] = abs
	}

	opts := []clones.Option{
		clones.WithType3Detection(input.DetectType3),
	}
	if input.Threshold > 0 {
		opts = append(opts, clones.WithSimilarityThreshold(input.Threshold))
	}

	detector := clones.New(opts...)
	report, err := detector.Compare(ctx, files[0], files[1], source.NewFilesystem())
	if err != nil {
		return toolError(fmt.Sprintf("comparison failed: %v", err))
	}

	return toolResult(report, format)
}
