package clones

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/bitgrove/mimic/internal/fileproc"
	"github.com/bitgrove/mimic/pkg/extender"
	"github.com/bitgrove/mimic/pkg/index"
	"github.com/bitgrove/mimic/pkg/lexer"
	"github.com/bitgrove/mimic/pkg/models"
	"github.com/bitgrove/mimic/pkg/source"
)

// sourceFile pairs a tokenized file with the language it was lexed as and
// the raw content it was built from.
type sourceFile struct {
	file     *lexer.File
	language lexer.Language
	content  []byte
}

// Analyze runs the full detection pipeline over paths, reading content from
// src. Files that cannot be read or have no lexer are skipped and counted in
// the report summary. An empty or fully skipped input yields a well-formed
// empty report. The only error returned is ctx's, when it is cancelled.
func (a *Analyzer) Analyze(ctx context.Context, paths []string, src source.ContentSource) (*models.Report, error) {
	start := time.Now()

	workers := a.workers
	if workers <= 0 {
		workers = fileproc.DefaultWorkers()
	}
	parallel := len(paths) >= parallelFileThreshold && workers > 1
	threadCount := 1
	if parallel {
		threadCount = workers
	}

	tokenizeStart := time.Now()
	files := a.tokenizeAll(ctx, paths, src, workers, parallel)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timing := models.Timing{TokenizeMs: time.Since(tokenizeStart).Milliseconds()}

	if len(files) == 0 {
		rep := models.NewReport()
		rep.Finalize(0, 0, time.Since(start))
		rep.Summary.FilesSkipped = len(paths)
		return rep, nil
	}

	hashStart := time.Now()
	builder := index.NewBuilder(a.windowSize)
	for _, sf := range files {
		builder.AddFile(sf.file, a.detectType2)
	}
	ix := builder.Index()
	timing.HashMs = time.Since(hashStart).Milliseconds()

	matchStart := time.Now()
	pairs := a.findClones(ix, files, workers, parallel)
	timing.MatchMs = time.Since(matchStart).Milliseconds()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skipped := len(paths) - len(files)
	return a.buildReport(files, ix, pairs, timing, start, skipped, threadCount, parallel), nil
}

// Compare analyzes exactly two files against each other.
func (a *Analyzer) Compare(ctx context.Context, file1, file2 string, src source.ContentSource) (*models.Report, error) {
	return a.Analyze(ctx, []string{file1, file2}, src)
}

// tokenizeAll tokenizes every readable, supported file. The returned slice
// preserves the input order with skipped files removed, which keeps file ids
// deterministic for a fixed input order.
func (a *Analyzer) tokenizeAll(ctx context.Context, paths []string, src source.ContentSource, workers int, parallel bool) []*sourceFile {
	fn := func(path string) (*sourceFile, error) {
		return a.tokenizeOne(path, src)
	}

	var results []*sourceFile
	if parallel {
		var errs *fileproc.ProcessingErrors
		results, errs = fileproc.MapFilesIndexedN(ctx, paths, workers, fn, a.onProgress)
		if errs != nil {
			a.reportSkips(errs)
		}
	} else {
		results = make([]*sourceFile, len(paths))
		for i, path := range paths {
			if ctx.Err() != nil {
				break
			}
			sf, err := fn(path)
			if err == nil {
				results[i] = sf
			} else if a.onSkip != nil {
				a.onSkip(path, err)
			}
			if a.onProgress != nil {
				a.onProgress()
			}
		}
	}

	files := make([]*sourceFile, 0, len(results))
	for _, sf := range results {
		if sf != nil {
			files = append(files, sf)
		}
	}
	return files
}

// tokenizeOne reads and lexes a single file, consulting the cache first.
func (a *Analyzer) tokenizeOne(path string, src source.ContentSource) (*sourceFile, error) {
	content, err := src.Read(path)
	if err != nil {
		return nil, err
	}

	lang := a.detectLang(filepath.Ext(path))
	norm := lexer.New(lang)
	if norm == nil {
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}

	if f, ok := a.cache.Get(path, content); ok {
		return &sourceFile{file: f, language: lang, content: content}, nil
	}

	f := norm.Normalize(content)
	f.Path = path
	a.cache.Put(path, content, f)

	return &sourceFile{file: f, language: lang, content: content}, nil
}

// reportSkips forwards per-file failures to the skip handler. Context
// cancellation is surfaced by Analyze itself, so those entries are elided.
func (a *Analyzer) reportSkips(errs *fileproc.ProcessingErrors) {
	if a.onSkip == nil {
		return
	}
	for _, pe := range errs.Errors {
		if errors.Is(pe.Err, context.Canceled) || errors.Is(pe.Err, context.DeadlineExceeded) {
			continue
		}
		a.onSkip(pe.Path, pe.Err)
	}
}

// findClones turns the built index into the final ordered pair list:
// enumerate, merge adjacent seeds, drop short pairs, classify, optionally
// extend across gaps, then sort largest first.
func (a *Analyzer) findClones(ix *index.Index, files []*sourceFile, workers int, parallel bool) []models.ClonePair {
	var pairs []models.ClonePair
	if parallel {
		pairs = ix.FindClonePairsParallel(workers)
	} else {
		pairs = ix.FindClonePairs()
	}

	pairs = index.MergeAdjacent(pairs, uint32(a.maxGapTokens))
	pairs = index.FilterBySize(pairs, uint32(a.minCloneTokens))

	views := make(map[string][]lexer.Token, len(files))
	for _, sf := range files {
		views[sf.file.Path] = sf.file.FilteredView()
	}
	for i := range pairs {
		pairs[i].Type = a.classify(pairs[i], views, ix)
	}

	if a.detectType3 {
		ext := extender.New(extender.Config{
			MaxGap:        a.maxGapTokens,
			MinSimilarity: a.simThreshold,
			MinTokens:     a.minCloneTokens,
			Lookahead:     extendLookahead,
		})
		lexFiles := make([]*lexer.File, len(files))
		for i, sf := range files {
			lexFiles[i] = sf.file
		}
		pairs = ext.ExtendAll(pairs, lexFiles, ix)
	}

	// Largest clones first. The merge step emits pairs in a canonical
	// order, so the stable sort keeps equal-sized pairs deterministic.
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].TokenCount() > pairs[j].TokenCount()
	})
	return pairs
}
