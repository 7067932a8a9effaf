package index

import (
	"github.com/bitgrove/mimic/pkg/lexer"
	"github.com/bitgrove/mimic/pkg/models"
	"github.com/bitgrove/mimic/pkg/rollinghash"
)

// Builder feeds tokenized files into an Index, one k-token window at a time.
// Structural tokens are excluded from the windows but the emitted locations
// still point at original token positions, so line and column numbers survive
// the filtering.
type Builder struct {
	windowSize int
	index      *Index
}

// NewBuilder returns a builder producing windows of windowSize tokens.
func NewBuilder(windowSize int) *Builder {
	if windowSize < 1 {
		windowSize = 1
	}
	return &Builder{
		windowSize: windowSize,
		index:      New(),
	}
}

// WindowSize returns the window size in tokens.
func (b *Builder) WindowSize() int {
	return b.windowSize
}

// Index returns the index accumulated so far.
func (b *Builder) Index() *Index {
	return b.index
}

// AddFile hashes every window of the file's filtered token stream into the
// index. When useNormalized is true windows are computed over normalized
// hashes, which lets renamed clones collide; otherwise the original hashes
// are used and only exact duplicates match.
//
// Empty files are ignored entirely. Files whose filtered stream is shorter
// than the window size are registered but contribute no hashes.
func (b *Builder) AddFile(file *lexer.File, useNormalized bool) {
	if len(file.Tokens) == 0 {
		return
	}
	fileID := b.index.RegisterFile(file.Path)

	filtered := file.FilteredTokens()
	if len(filtered) < b.windowSize {
		return
	}

	tokenHashes := make([]uint64, len(filtered))
	for i, orig := range filtered {
		if useNormalized {
			tokenHashes[i] = uint64(file.Tokens[orig].NormalizedHash)
		} else {
			tokenHashes[i] = uint64(file.Tokens[orig].OriginalHash)
		}
	}

	for _, wh := range rollinghash.ComputeAll(tokenHashes, b.windowSize) {
		endPos := wh.Start + b.windowSize - 1
		if endPos > len(filtered)-1 {
			endPos = len(filtered) - 1
		}
		start := file.Tokens[filtered[wh.Start]]
		end := file.Tokens[filtered[endPos]]

		b.index.Add(wh.Hash, models.HashLocation{
			FileID:     fileID,
			StartLine:  start.Line,
			EndLine:    end.Line,
			StartCol:   start.Column,
			EndCol:     end.Column + end.Length,
			TokenStart: uint32(wh.Start),
			TokenCount: uint32(b.windowSize),
		})
	}
}
