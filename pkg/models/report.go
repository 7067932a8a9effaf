package models

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/zeebo/blake3"
	"gonum.org/v1/gonum/stat"
)

// CloneLocation is one side of a reported clone.
type CloneLocation struct {
	File           string `json:"file"`
	StartLine      uint32 `json:"start_line"`
	EndLine        uint32 `json:"end_line"`
	SnippetPreview string `json:"snippet_preview"`
}

// CloneEntry is a reported clone pair with resolved file paths.
type CloneEntry struct {
	ID             string          `json:"id"`
	Type           CloneType       `json:"type"`
	Similarity     float64         `json:"similarity"`
	Fingerprint    string          `json:"fingerprint"`
	Locations      []CloneLocation `json:"locations"`
	Recommendation string          `json:"recommendation"`
}

// Summary aggregates the headline numbers of a run.
type Summary struct {
	FilesAnalyzed        int    `json:"files_analyzed"`
	FilesSkipped         int    `json:"files_skipped,omitempty"`
	TotalLines           int    `json:"total_lines"`
	ClonePairsFound      int    `json:"clone_pairs_found"`
	EstimatedDuplication string `json:"estimated_duplication"`
	AnalysisTimeMs       int64  `json:"analysis_time_ms"`
}

// Timing is the per-phase time breakdown.
type Timing struct {
	TokenizeMs int64 `json:"tokenize_ms"`
	HashMs     int64 `json:"hash_ms"`
	MatchMs    int64 `json:"match_ms"`
	TotalMs    int64 `json:"total_ms"`
}

// Performance captures throughput for the run.
type Performance struct {
	LOCPerSecond    float64 `json:"loc_per_second"`
	TotalTokens     int     `json:"total_tokens"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	FilesPerSecond  int     `json:"files_per_second"`
	WorkerCount     int     `json:"worker_count"`
	ParallelEnabled bool    `json:"parallel_enabled"`
}

// Metrics breaks clone counts down by type and by source language.
type Metrics struct {
	ByType           map[string]int `json:"by_type"`
	ByLanguage       map[string]int `json:"by_language"`
	SimilarityMean   float64        `json:"similarity_mean"`
	SimilarityStddev float64        `json:"similarity_stddev"`
}

// Report is the complete output of a clone analysis.
type Report struct {
	Summary     Summary      `json:"summary"`
	Clones      []CloneEntry `json:"clones"`
	Hotspots    []Hotspot    `json:"hotspots"`
	Metrics     Metrics      `json:"metrics"`
	Timing      Timing       `json:"timing"`
	Performance Performance  `json:"performance"`

	similarities []float64
}

// NewReport creates an empty report ready for accumulation.
func NewReport() *Report {
	return &Report{
		Clones:   []CloneEntry{},
		Hotspots: []Hotspot{},
		Metrics: Metrics{
			ByType:     make(map[string]int),
			ByLanguage: make(map[string]int),
		},
	}
}

// AddClone appends a clone pair, resolving file ids to paths and extracting
// snippet previews from the provided sources.
func (r *Report) AddClone(pair ClonePair, filePaths []string, sources map[uint32]string) {
	entry := CloneEntry{
		ID:         fmt.Sprintf("clone_%d", len(r.Clones)+1),
		Type:       pair.Type,
		Similarity: pair.Similarity,
	}

	for _, loc := range []HashLocation{pair.A, pair.B} {
		file := "unknown"
		if int(loc.FileID) < len(filePaths) {
			file = filePaths[loc.FileID]
		}
		entry.Locations = append(entry.Locations, CloneLocation{
			File:           file,
			StartLine:      loc.StartLine,
			EndLine:        loc.EndLine,
			SnippetPreview: extractSnippet(loc.FileID, loc.StartLine, sources),
		})
	}

	entry.Fingerprint = cloneFingerprint(entry)
	entry.Recommendation = recommendation(pair.Type)

	r.Clones = append(r.Clones, entry)
	r.Metrics.ByType[string(pair.Type)]++
	r.similarities = append(r.similarities, pair.Similarity)
}

// CalculateHotspots rebuilds the hotspot list from the accumulated clones.
// Duplicated lines are tracked per file in a roaring bitmap so overlapping
// clone ranges are not counted twice.
func (r *Report) CalculateHotspots(filePaths []string, fileLineCounts map[uint32]int) {
	pathToID := make(map[string]uint32, len(filePaths))
	for i, p := range filePaths {
		pathToID[p] = uint32(i)
	}

	cloneCounts := make(map[uint32]int)
	duplicated := make(map[uint32]*roaring.Bitmap)

	for _, clone := range r.Clones {
		for _, loc := range clone.Locations {
			id, ok := pathToID[loc.File]
			if !ok {
				continue
			}
			cloneCounts[id]++
			bm := duplicated[id]
			if bm == nil {
				bm = roaring.New()
				duplicated[id] = bm
			}
			bm.AddRange(uint64(loc.StartLine), uint64(loc.EndLine)+1)
		}
	}

	ids := make([]uint32, 0, len(cloneCounts))
	for id := range cloneCounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	r.Hotspots = r.Hotspots[:0]
	for _, id := range ids {
		h := Hotspot{
			File:            filePaths[id],
			CloneCount:      cloneCounts[id],
			DuplicatedLines: int(duplicated[id].GetCardinality()),
			TotalLines:      fileLineCounts[id],
		}
		if h.TotalLines > 0 {
			h.Score = float64(h.DuplicatedLines) / float64(h.TotalLines)
		}
		h.Recommendation = hotspotRecommendation(h.Score)
		r.Hotspots = append(r.Hotspots, h)
	}

	sort.SliceStable(r.Hotspots, func(i, j int) bool {
		return r.Hotspots[i].Score > r.Hotspots[j].Score
	})
}

// Finalize computes the summary from the accumulated clones and hotspots.
func (r *Report) Finalize(filesAnalyzed, totalLines int, elapsed time.Duration) {
	r.FinalizeWithPerf(filesAnalyzed, totalLines, elapsed, 0, 0, false)
}

// FinalizeWithPerf finalizes the report including throughput metrics.
func (r *Report) FinalizeWithPerf(filesAnalyzed, totalLines int, elapsed time.Duration, totalTokens, workerCount int, parallel bool) {
	r.Summary.FilesAnalyzed = filesAnalyzed
	r.Summary.TotalLines = totalLines
	r.Summary.ClonePairsFound = len(r.Clones)
	r.Summary.AnalysisTimeMs = elapsed.Milliseconds()

	duplicatedLines := 0
	for _, h := range r.Hotspots {
		duplicatedLines += h.DuplicatedLines
	}
	if totalLines > 0 {
		pct := 100 * float64(duplicatedLines) / float64(totalLines)
		r.Summary.EstimatedDuplication = fmt.Sprintf("%.1f%%", pct)
	} else {
		r.Summary.EstimatedDuplication = "0.0%"
	}

	r.Timing.TotalMs = elapsed.Milliseconds()

	r.Performance.TotalTokens = totalTokens
	r.Performance.WorkerCount = workerCount
	r.Performance.ParallelEnabled = parallel
	if ms := elapsed.Milliseconds(); ms > 0 {
		secs := float64(ms) / 1000
		r.Performance.LOCPerSecond = float64(totalLines) / secs
		r.Performance.TokensPerSecond = float64(totalTokens) / secs
		r.Performance.FilesPerSecond = int(float64(filesAnalyzed) / secs)
	}

	if len(r.similarities) > 0 {
		r.Metrics.SimilarityMean = stat.Mean(r.similarities, nil)
	}
	if len(r.similarities) > 1 {
		r.Metrics.SimilarityStddev = stat.StdDev(r.similarities, nil)
	}
}

// extractSnippet returns up to three lines starting at startLine, truncating
// lines longer than 60 columns. Missing sources yield "...".
func extractSnippet(fileID uint32, startLine uint32, sources map[uint32]string) string {
	source, ok := sources[fileID]
	if !ok {
		return "..."
	}

	var lines []string
	lineNum := uint32(1)
	for pos := 0; pos < len(source); {
		end := strings.IndexByte(source[pos:], '\n')
		if end < 0 {
			end = len(source)
		} else {
			end += pos
		}

		if lineNum >= startLine && lineNum < startLine+3 {
			line := source[pos:end]
			if len(line) > 60 {
				line = line[:57] + "..."
			}
			lines = append(lines, line)
		}
		if lineNum >= startLine+2 {
			break
		}
		pos = end + 1
		lineNum++
	}

	if len(lines) == 0 {
		return "..."
	}
	return sanitize(strings.Join(lines, "\n"))
}

// sanitize keeps snippets printable: invalid UTF-8 becomes "?", control
// characters other than tab, newline, and carriage return become spaces.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "?")
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return ' '
		}
		return r
	}, s)
}

// cloneFingerprint derives a stable id from the clone's type and locations,
// so the same clone keeps its fingerprint across runs even when its position
// in the report shifts.
func cloneFingerprint(entry CloneEntry) string {
	var b strings.Builder
	b.WriteString(string(entry.Type))
	for _, loc := range entry.Locations {
		fmt.Fprintf(&b, "|%s:%d-%d", loc.File, loc.StartLine, loc.EndLine)
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

func recommendation(t CloneType) string {
	switch t {
	case CloneType1:
		return "Exact duplicate found - consider extracting to shared function"
	case CloneType2:
		return "Similar code with renamed variables - consider parameterizing"
	case CloneType3:
		return "Modified clone detected - review for potential abstraction"
	default:
		return "Review for refactoring opportunities"
	}
}

func hotspotRecommendation(score float64) string {
	if score > 0.3 {
		return "High duplication - review for refactoring opportunities"
	}
	return "Moderate duplication - consider consolidating similar code"
}
