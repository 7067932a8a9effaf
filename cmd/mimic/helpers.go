package main

import (
	"github.com/bitgrove/mimic/pkg/clones"
	"github.com/bitgrove/mimic/pkg/config"
	"github.com/urfave/cli/v2"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig resolves the effective configuration. An explicit --config path
// must load cleanly; otherwise the working directory is probed for mimic.*
// files, falling back to defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(), nil
}

// detectorFlags is the flag set shared by every command that runs detection.
func detectorFlags() []cli.Flag {
	d := config.DefaultConfig().Detector
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "window",
			Value: d.WindowSize,
			Usage: "Sliding window size in tokens",
		},
		&cli.IntFlag{
			Name:  "min-tokens",
			Value: d.MinCloneTokens,
			Usage: "Minimum clone length in tokens",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Value: d.SimilarityThreshold,
			Usage: "Minimum similarity for extended clones (0.0-1.0]",
		},
		&cli.BoolFlag{
			Name:  "type2",
			Value: d.DetectType2,
			Usage: "Detect renamed clones (Type-2)",
		},
		&cli.BoolFlag{
			Name:  "type3",
			Value: d.DetectType3,
			Usage: "Detect gapped clones (Type-3)",
		},
		&cli.IntFlag{
			Name:  "max-gap",
			Value: d.MaxGapTokens,
			Usage: "Largest insertion the Type-3 extender will cross",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Value:   d.Workers,
			Usage:   "Worker count for parallel phases (0 = one per CPU)",
		},
	}
}

// applyDetectorFlags folds explicitly set detector flags over the loaded
// config, so config-file values survive unless the user overrides them.
func applyDetectorFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("window") {
		cfg.Detector.WindowSize = c.Int("window")
	}
	if c.IsSet("min-tokens") {
		cfg.Detector.MinCloneTokens = c.Int("min-tokens")
	}
	if c.IsSet("threshold") {
		cfg.Detector.SimilarityThreshold = c.Float64("threshold")
	}
	if c.IsSet("type2") {
		cfg.Detector.DetectType2 = c.Bool("type2")
	}
	if c.IsSet("type3") {
		cfg.Detector.DetectType3 = c.Bool("type3")
	}
	if c.IsSet("max-gap") {
		cfg.Detector.MaxGapTokens = c.Int("max-gap")
	}
	if c.IsSet("workers") {
		cfg.Detector.Workers = c.Int("workers")
	}
}

// analyzerOptions translates config plus the global --no-cache flag into
// detector options.
func analyzerOptions(c *cli.Context, cfg *config.Config) []clones.Option {
	opts := []clones.Option{
		clones.WithWindowSize(cfg.Detector.WindowSize),
		clones.WithMinCloneTokens(cfg.Detector.MinCloneTokens),
		clones.WithSimilarityThreshold(cfg.Detector.SimilarityThreshold),
		clones.WithType2Detection(cfg.Detector.DetectType2),
		clones.WithType3Detection(cfg.Detector.DetectType3),
		clones.WithMaxGapTokens(cfg.Detector.MaxGapTokens),
		clones.WithWorkers(cfg.Detector.Workers),
	}
	useCache := cfg.Cache.Enabled && !c.Bool("no-cache")
	opts = append(opts, clones.WithCache(useCache), clones.WithCacheCapacity(cfg.Cache.Capacity))
	return opts
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// severityForScore maps a hotspot duplication score to a severity label for
// colored output.
func severityForScore(score float64) string {
	switch {
	case score > 0.5:
		return "critical"
	case score > 0.3:
		return "high"
	case score > 0.15:
		return "medium"
	default:
		return "low"
	}
}
