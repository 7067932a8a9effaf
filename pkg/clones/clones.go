// Package clones detects duplicated code across a set of source files.
//
// Detection is token based. Files are lexed into normalized token streams,
// every window of windowSize consecutive tokens is hashed with a rolling
// hash, and windows sharing a hash become clone seeds. Seeds covering
// adjacent token ranges are merged, small survivors are dropped, and each
// remaining pair is classified: Type-1 clones are exact duplicates, Type-2
// clones differ only in identifiers or literal values, and Type-3 clones
// (optional) additionally tolerate small insertions or deletions found by
// extending seeds outward.
package clones

import (
	"github.com/bitgrove/mimic/internal/cache"
	"github.com/bitgrove/mimic/pkg/lexer"
)

// Detection defaults. They balance recall against noise for typical source
// files: a 10-token window is long enough that incidental matches are rare,
// and 30 tokens is roughly the smallest fragment worth refactoring.
const (
	DefaultWindowSize          = 10
	DefaultMinCloneTokens      = 30
	DefaultSimilarityThreshold = 0.7
	DefaultMaxGapTokens        = 5
)

// parallelFileThreshold is the minimum number of input files before
// tokenization and pair enumeration run on multiple workers.
const parallelFileThreshold = 4

// extendLookahead bounds how far ahead the Type-3 extender scans for a
// resynchronization point past a mismatch.
const extendLookahead = 10

// Analyzer runs clone detection over sets of files. A zero-value Analyzer is
// not usable; construct one with New.
type Analyzer struct {
	windowSize     int
	minCloneTokens int
	simThreshold   float64
	detectType2    bool
	detectType3    bool
	maxGapTokens   int
	workers        int
	cache          *cache.FileCache
	detectLang     func(ext string) lexer.Language
	onProgress     func()
	onSkip         func(path string, err error)
}

// Option is a functional option for configuring an Analyzer.
type Option func(*Analyzer)

// WithWindowSize sets the hashing window size in tokens.
func WithWindowSize(size int) Option {
	return func(a *Analyzer) {
		if size > 0 {
			a.windowSize = size
		}
	}
}

// WithMinCloneTokens sets the minimum clone length in tokens. Merged pairs
// shorter than this on either side are discarded.
func WithMinCloneTokens(tokens int) Option {
	return func(a *Analyzer) {
		if tokens > 0 {
			a.minCloneTokens = tokens
		}
	}
}

// WithSimilarityThreshold sets the minimum similarity an extended Type-3
// clone must keep. Extensions that fall below it are rolled back.
func WithSimilarityThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		if threshold >= 0 && threshold <= 1 {
			a.simThreshold = threshold
		}
	}
}

// WithType2Detection toggles renamed-identifier detection. When disabled the
// index is built over original token hashes and only exact duplicates match.
func WithType2Detection(enabled bool) Option {
	return func(a *Analyzer) {
		a.detectType2 = enabled
	}
}

// WithType3Detection toggles gap-tolerant clone extension.
func WithType3Detection(enabled bool) Option {
	return func(a *Analyzer) {
		a.detectType3 = enabled
	}
}

// WithMaxGapTokens sets both the merge adjacency window and the largest
// insertion the Type-3 extender will cross.
func WithMaxGapTokens(gap int) Option {
	return func(a *Analyzer) {
		if gap >= 0 {
			a.maxGapTokens = gap
		}
	}
}

// WithWorkers sets the worker count for parallel phases. Zero or negative
// selects one worker per logical CPU.
func WithWorkers(workers int) Option {
	return func(a *Analyzer) {
		if workers > 0 {
			a.workers = workers
		}
	}
}

// WithCache toggles the tokenized-file cache. It is on by default; turning
// it off makes every Analyze call re-tokenize from scratch.
func WithCache(enabled bool) Option {
	return func(a *Analyzer) {
		if !enabled {
			a.cache = nil
		} else if a.cache == nil {
			a.cache = cache.New(cache.DefaultCapacity)
		}
	}
}

// WithCacheCapacity resizes the tokenized-file cache. It has no effect on
// an analyzer whose cache has been disabled.
func WithCacheCapacity(capacity int) Option {
	return func(a *Analyzer) {
		if capacity > 0 && a.cache != nil {
			a.cache = cache.New(capacity)
		}
	}
}

// WithLanguageDetector overrides how file extensions map to languages.
func WithLanguageDetector(fn func(ext string) lexer.Language) Option {
	return func(a *Analyzer) {
		if fn != nil {
			a.detectLang = fn
		}
	}
}

// WithProgress sets a callback invoked once per input file as tokenization
// finishes with it, successful or not. It may be called from multiple
// goroutines.
func WithProgress(fn func()) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithSkipHandler sets a callback invoked for each file that was skipped,
// with the reason. Cancellation is reported through Analyze's error return,
// not here.
func WithSkipHandler(fn func(path string, err error)) Option {
	return func(a *Analyzer) {
		a.onSkip = fn
	}
}

// New creates an analyzer with the default detection settings: Type-2
// detection on, Type-3 off, and a shared tokenized-file cache.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		windowSize:     DefaultWindowSize,
		minCloneTokens: DefaultMinCloneTokens,
		simThreshold:   DefaultSimilarityThreshold,
		detectType2:    true,
		detectType3:    false,
		maxGapTokens:   DefaultMaxGapTokens,
		cache:          cache.New(cache.DefaultCapacity),
		detectLang:     lexer.DetectLanguage,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
