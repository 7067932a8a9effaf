package clones

import (
	"time"

	"github.com/bitgrove/mimic/pkg/index"
	"github.com/bitgrove/mimic/pkg/models"
)

// buildReport assembles the final report: clone entries with resolved paths
// and snippets, per-language attribution, hotspots, and throughput numbers.
func (a *Analyzer) buildReport(files []*sourceFile, ix *index.Index, pairs []models.ClonePair, timing models.Timing, start time.Time, skipped, threadCount int, parallel bool) *models.Report {
	rep := models.NewReport()

	filePaths := ix.FilePaths()
	byPath := make(map[string]*sourceFile, len(files))
	for _, sf := range files {
		byPath[sf.file.Path] = sf
	}

	sources := make(map[uint32]string, len(filePaths))
	lineCounts := make(map[uint32]int, len(filePaths))
	for id, path := range filePaths {
		if sf, ok := byPath[path]; ok {
			sources[uint32(id)] = string(sf.content)
			lineCounts[uint32(id)] = sf.file.TotalLines
		}
	}

	for _, pair := range pairs {
		rep.AddClone(pair, filePaths, sources)
	}

	// Language attribution counts each clone once per file it touches, so a
	// cross-language pair contributes to both languages.
	touches := make(map[string]int, len(files))
	for _, pair := range pairs {
		pa := ix.FilePath(pair.A.FileID)
		pb := ix.FilePath(pair.B.FileID)
		touches[pa]++
		if pb != pa {
			touches[pb]++
		}
	}
	for _, sf := range files {
		if n := touches[sf.file.Path]; n > 0 {
			rep.Metrics.ByLanguage[sf.language.String()] += n
		}
	}

	rep.CalculateHotspots(filePaths, lineCounts)

	totalLines := 0
	totalTokens := 0
	for _, sf := range files {
		totalLines += sf.file.TotalLines
		totalTokens += len(sf.file.Tokens)
	}

	rep.Timing = timing
	rep.FinalizeWithPerf(len(files), totalLines, time.Since(start), totalTokens, threadCount, parallel)
	rep.Summary.FilesSkipped = skipped
	return rep
}
