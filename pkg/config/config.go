package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config holds all configuration options for mimic.
type Config struct {
	// Detector settings
	Detector DetectorConfig `koanf:"detector" toml:"detector"`

	// File discovery settings
	Scan ScanConfig `koanf:"scan" toml:"scan"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// DetectorConfig tunes the clone detection pipeline.
type DetectorConfig struct {
	WindowSize          int     `koanf:"window_size" toml:"window_size"`
	MinCloneTokens      int     `koanf:"min_clone_tokens" toml:"min_clone_tokens"`
	SimilarityThreshold float64 `koanf:"similarity_threshold" toml:"similarity_threshold"`
	DetectType2         bool    `koanf:"detect_type2" toml:"detect_type2"`
	DetectType3         bool    `koanf:"detect_type3" toml:"detect_type3"`
	MaxGapTokens        int     `koanf:"max_gap_tokens" toml:"max_gap_tokens"`
	Workers             int     `koanf:"workers" toml:"workers"` // 0 means one worker per CPU
}

// ScanConfig controls which files are collected for analysis.
type ScanConfig struct {
	Extensions []string `koanf:"extensions" toml:"extensions"` // empty means every supported language
	Exclude    []string `koanf:"exclude" toml:"exclude"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls the in-memory tokenization cache.
type CacheConfig struct {
	Enabled  bool `koanf:"enabled" toml:"enabled"`
	Capacity int  `koanf:"capacity" toml:"capacity"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format   string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color    bool   `koanf:"color" toml:"color"`
	Verbose  bool   `koanf:"verbose" toml:"verbose"`
	Hotspots int    `koanf:"hotspots" toml:"hotspots"` // max rows in the hotspot table
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Detector: DetectorConfig{
			WindowSize:          10,
			MinCloneTokens:      30,
			SimilarityThreshold: 0.7,
			DetectType2:         true,
			DetectType3:         false,
			MaxGapTokens:        5,
			Workers:             0,
		},
		Scan: ScanConfig{
			Exclude: []string{
				"**/node_modules/**",
				"**/__pycache__/**",
				"**/venv/**",
				"**/.git/**",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1000,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			Verbose:  false,
			Hotspots: 10,
		},
	}
}

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("config.schema.json")
})

// validate checks a loaded config document against the embedded JSON schema.
// The document is round-tripped through JSON so that TOML and YAML scalar
// types validate the same way JSON input does.
func validate(raw map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	encoded, err := json.Parser().Marshal(raw)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return err
	}

	return schema.Validate(doc)
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	// Load the config file
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	// Validate before unmarshaling so typos and out-of-range values
	// surface with the offending key instead of silently applying.
	if err := validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	// Unmarshal over the defaults
	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	// Standard config file names to search for
	configNames := []string{
		"mimic.toml",
		"mimic.yaml",
		"mimic.yml",
		"mimic.json",
		".mimic.toml",
		".mimic.yaml",
		".mimic.yml",
		".mimic.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := Load(name)
			if err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}
