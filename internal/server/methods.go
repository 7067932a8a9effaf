package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitgrove/mimic/internal/scanner"
	"github.com/bitgrove/mimic/pkg/clones"
	"github.com/bitgrove/mimic/pkg/config"
	"github.com/bitgrove/mimic/pkg/models"
	"github.com/bitgrove/mimic/pkg/source"
)

// defaultHotspotLimit caps the hotspots method result when the request does
// not name a limit.
const defaultHotspotLimit = 10

// scanParams select the files a request operates on.
type scanParams struct {
	Paths      []string `json:"paths"`
	Extensions []string `json:"extensions"`
}

// detectorParams are the per-request detector overrides shared by the
// analysis methods. Zero values leave the server configuration in effect;
// detect_type3 is a pointer so an explicit false can override a config that
// enables it.
type detectorParams struct {
	WindowSize  int     `json:"window_size"`
	MinTokens   int     `json:"min_tokens"`
	Threshold   float64 `json:"threshold"`
	DetectType3 *bool   `json:"detect_type3"`
	MaxGap      int     `json:"max_gap"`
}

func (p detectorParams) isZero() bool {
	return p.WindowSize == 0 && p.MinTokens == 0 && p.Threshold == 0 &&
		p.DetectType3 == nil && p.MaxGap == 0
}

type analyzeParams struct {
	scanParams
	detectorParams
}

type compareParams struct {
	FileA string `json:"file_a"`
	FileB string `json:"file_b"`
	detectorParams
}

type hotspotsParams struct {
	analyzeParams
	Limit int `json:"limit"`
}

type fileClonesParams struct {
	analyzeParams
	File string `json:"file"`
}

// statusResult is the reply shape for ping and shutdown.
type statusResult struct {
	Status   string `json:"status"`
	UptimeMs int64  `json:"uptime_ms,omitempty"`
}

type fileEntry struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type filesResult struct {
	Files []fileEntry `json:"files"`
	Count int         `json:"count"`
}

type hotspotsResult struct {
	Hotspots []models.Hotspot `json:"hotspots"`
	Count    int              `json:"count"`
}

type fileClonesResult struct {
	File   string              `json:"file"`
	Clones []models.CloneEntry `json:"clones"`
	Count  int                 `json:"count"`
}

// newDetector builds an analyzer from detector and cache settings.
func newDetector(d config.DetectorConfig, c config.CacheConfig) *clones.Analyzer {
	return clones.New(
		clones.WithWindowSize(d.WindowSize),
		clones.WithMinCloneTokens(d.MinCloneTokens),
		clones.WithSimilarityThreshold(d.SimilarityThreshold),
		clones.WithType2Detection(d.DetectType2),
		clones.WithType3Detection(d.DetectType3),
		clones.WithMaxGapTokens(d.MaxGapTokens),
		clones.WithWorkers(d.Workers),
		clones.WithCache(c.Enabled),
		clones.WithCacheCapacity(c.Capacity),
	)
}

// detectorFor returns the shared analyzer for requests without overrides.
// A request that tunes any knob gets a throwaway analyzer built from the
// server configuration plus its overrides, leaving the shared cache intact.
func (s *Server) detectorFor(p detectorParams) *clones.Analyzer {
	if p.isZero() {
		return s.detector
	}

	d := s.cfg.Detector
	if p.WindowSize > 0 {
		d.WindowSize = p.WindowSize
	}
	if p.MinTokens > 0 {
		d.MinCloneTokens = p.MinTokens
	}
	if p.Threshold > 0 {
		d.SimilarityThreshold = p.Threshold
	}
	if p.DetectType3 != nil {
		d.DetectType3 = *p.DetectType3
	}
	if p.MaxGap > 0 {
		d.MaxGapTokens = p.MaxGap
	}
	return newDetector(d, s.cfg.Cache)
}

// unmarshalParams decodes a params object. Absent params mean all defaults.
func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return paramErrorf("invalid params: %v", err)
	}
	return nil
}

// collectFiles expands each requested path through the scanner. Every call
// gets its own scanner so gitignore state never leaks between concurrent
// connections.
func (s *Server) collectFiles(paths, extensions []string) ([]string, error) {
	cfg := s.cfg
	if len(extensions) > 0 {
		override := *s.cfg
		override.Scan.Extensions = extensions
		cfg = &override
	}
	sc := scanner.NewScanner(cfg)

	var files []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", path, err)
		}
		found, err := sc.ScanDir(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

func (s *Server) handleAnalyze(ctx context.Context, raw json.RawMessage) (any, error) {
	var p analyzeParams
	if err := unmarshalParams(raw, &p); err != nil {
		return nil, err
	}
	if len(p.Paths) == 0 {
		return nil, paramErrorf("analyze requires a non-empty paths list")
	}

	files, err := s.collectFiles(p.Paths, p.Extensions)
	if err != nil {
		return nil, err
	}
	return s.detectorFor(p.detectorParams).Analyze(ctx, files, source.NewFilesystem())
}

func (s *Server) handleCompare(ctx context.Context, raw json.RawMessage) (any, error) {
	var p compareParams
	if err := unmarshalParams(raw, &p); err != nil {
		return nil, err
	}
	if p.FileA == "" || p.FileB == "" {
		return nil, paramErrorf("compare requires file_a and file_b")
	}

	sc := scanner.NewScanner(s.cfg)
	files := [2]string{p.FileA, p.FileB}
	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", f, err)
		}
		ok, err := sc.ScanFile(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", f, err)
		}
		if !ok {
			return nil, paramErrorf("%s is not a supported source file", f)
		}
		files[i] = abs
	}

	return s.detectorFor(p.detectorParams).Compare(ctx, files[0], files[1], source.NewFilesystem())
}

func (s *Server) handleFiles(ctx context.Context, raw json.RawMessage) (any, error) {
	var p scanParams
	if err := unmarshalParams(raw, &p); err != nil {
		return nil, err
	}
	if len(p.Paths) == 0 {
		return nil, paramErrorf("files requires a non-empty paths list")
	}

	found, err := s.collectFiles(p.Paths, p.Extensions)
	if err != nil {
		return nil, err
	}

	result := filesResult{Files: make([]fileEntry, 0, len(found)), Count: len(found)}
	for _, path := range found {
		e := fileEntry{Path: path, Name: filepath.Base(path)}
		if info, err := os.Stat(path); err == nil {
			e.Size = info.Size()
		}
		result.Files = append(result.Files, e)
	}
	return result, nil
}

func (s *Server) handleHotspots(ctx context.Context, raw json.RawMessage) (any, error) {
	var p hotspotsParams
	if err := unmarshalParams(raw, &p); err != nil {
		return nil, err
	}
	if len(p.Paths) == 0 {
		return nil, paramErrorf("hotspots requires a non-empty paths list")
	}

	files, err := s.collectFiles(p.Paths, p.Extensions)
	if err != nil {
		return nil, err
	}
	report, err := s.detectorFor(p.detectorParams).Analyze(ctx, files, source.NewFilesystem())
	if err != nil {
		return nil, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultHotspotLimit
	}
	hotspots := report.Hotspots
	if len(hotspots) > limit {
		hotspots = hotspots[:limit]
	}
	return hotspotsResult{Hotspots: hotspots, Count: len(hotspots)}, nil
}

func (s *Server) handleFileClones(ctx context.Context, raw json.RawMessage) (any, error) {
	var p fileClonesParams
	if err := unmarshalParams(raw, &p); err != nil {
		return nil, err
	}
	if p.File == "" {
		return nil, paramErrorf("file_clones requires a file")
	}
	if len(p.Paths) == 0 {
		return nil, paramErrorf("file_clones requires a non-empty paths list")
	}

	files, err := s.collectFiles(p.Paths, p.Extensions)
	if err != nil {
		return nil, err
	}
	report, err := s.detectorFor(p.detectorParams).Analyze(ctx, files, source.NewFilesystem())
	if err != nil {
		return nil, err
	}

	// The request may name the file relative to the scan root while report
	// locations are absolute, so match on an exact path or a boundary-safe
	// suffix.
	abs, _ := filepath.Abs(p.File)
	abs = filepath.ToSlash(abs)
	target := filepath.ToSlash(p.File)

	matched := make([]models.CloneEntry, 0)
	for _, clone := range report.Clones {
		for _, loc := range clone.Locations {
			f := filepath.ToSlash(loc.File)
			if f == abs || strings.HasSuffix(f, "/"+target) {
				matched = append(matched, clone)
				break
			}
		}
	}
	return fileClonesResult{File: p.File, Clones: matched, Count: len(matched)}, nil
}

func (s *Server) handlePing(ctx context.Context, raw json.RawMessage) (any, error) {
	return statusResult{Status: "ok", UptimeMs: time.Since(s.start).Milliseconds()}, nil
}
