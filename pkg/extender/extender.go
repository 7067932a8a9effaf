// Package extender grows exact-match clone seeds into maximal similar
// regions. A seed is widened forward and backward while a bounded number of
// mismatched tokens may be skipped on either side; the widened region is
// kept only when its alignment similarity stays above a threshold. Regions
// that survive with similarity below 1.0 are Type-3 clones.
package extender

import (
	"github.com/bitgrove/mimic/pkg/index"
	"github.com/bitgrove/mimic/pkg/lexer"
	"github.com/bitgrove/mimic/pkg/models"
)

// Config bounds the extension search.
type Config struct {
	// MaxGap is the largest skip allowed on either side when resyncing
	// after a mismatch.
	MaxGap int
	// MinSimilarity is the acceptance threshold for an extended region;
	// below it the original seed is kept instead.
	MinSimilarity float64
	// MinTokens is the minimum size of a pair after extension.
	MinTokens int
	// Lookahead is the search radius used to find a resync point.
	Lookahead int
}

// DefaultConfig returns the extension parameters the analyzer uses when
// Type-3 detection is enabled.
func DefaultConfig() Config {
	return Config{
		MaxGap:        5,
		MinSimilarity: 0.7,
		MinTokens:     30,
		Lookahead:     10,
	}
}

// Extender widens clone seeds under a fixed Config.
type Extender struct {
	cfg Config
}

// New returns an extender for cfg. Negative bounds are treated as zero.
func New(cfg Config) *Extender {
	if cfg.MaxGap < 0 {
		cfg.MaxGap = 0
	}
	if cfg.Lookahead < 0 {
		cfg.Lookahead = 0
	}
	if cfg.MinTokens < 0 {
		cfg.MinTokens = 0
	}
	return &Extender{cfg: cfg}
}

// Extend widens pair against the filtered token streams of its two files and
// returns the widened pair, or the original when the widened region falls
// below the similarity threshold. Token offsets in the pair index the
// filtered streams; line numbers are refreshed from the tokens the widened
// region spans. Out-of-range seeds are clamped rather than rejected.
func (e *Extender) Extend(pair models.ClonePair, tokensA, tokensB []lexer.Token) models.ClonePair {
	startA := clampIndex(int(pair.A.TokenStart), len(tokensA))
	endA := clampIndex(startA+int(pair.A.TokenCount), len(tokensA))
	startB := clampIndex(int(pair.B.TokenStart), len(tokensB))
	endB := clampIndex(startB+int(pair.B.TokenCount), len(tokensB))

	forward := e.extendForward(tokensA, endA, tokensB, endB)
	backward := e.extendBackward(tokensA, startA, tokensB, startB)

	startA -= backward
	startB -= backward
	endA += forward
	endB += forward

	sim := AlignmentSimilarity(tokensA, startA, endA-startA, tokensB, startB, endB-startB, e.cfg.MaxGap)
	if sim < e.cfg.MinSimilarity {
		return pair
	}

	extended := pair
	extended.A.TokenStart = uint32(startA)
	extended.A.TokenCount = uint32(endA - startA)
	extended.B.TokenStart = uint32(startB)
	extended.B.TokenCount = uint32(endB - startB)
	extended.Similarity = sim

	if startA < len(tokensA) {
		extended.A.StartLine = tokensA[startA].Line
	}
	if endA > 0 && endA <= len(tokensA) {
		extended.A.EndLine = tokensA[endA-1].Line
	}
	if startB < len(tokensB) {
		extended.B.StartLine = tokensB[startB].Line
	}
	if endB > 0 && endB <= len(tokensB) {
		extended.B.EndLine = tokensB[endB-1].Line
	}

	if sim >= 1.0 {
		// The normalized hashes agree everywhere; original hashes decide
		// whether anything was renamed.
		extended.Type = models.CloneType1
		count := endA - startA
		if endB-startB < count {
			count = endB - startB
		}
		for i := 0; i < count; i++ {
			if tokensA[startA+i].OriginalHash != tokensB[startB+i].OriginalHash {
				extended.Type = models.CloneType2
				break
			}
		}
	} else {
		extended.Type = models.CloneType3
	}

	return extended
}

// ExtendAll widens every pair whose two files appear in files, drops widened
// pairs smaller than MinTokens, and passes pairs with unknown files through
// unchanged. File ids are resolved to paths via ix.
func (e *Extender) ExtendAll(pairs []models.ClonePair, files []*lexer.File, ix *index.Index) []models.ClonePair {
	if len(pairs) == 0 {
		return nil
	}

	views := make(map[string][]lexer.Token, len(files))
	for _, f := range files {
		views[f.Path] = f.FilteredView()
	}

	out := make([]models.ClonePair, 0, len(pairs))
	for _, pair := range pairs {
		tokensA, okA := views[ix.FilePath(pair.A.FileID)]
		tokensB, okB := views[ix.FilePath(pair.B.FileID)]
		if !okA || !okB {
			out = append(out, pair)
			continue
		}

		extended := e.Extend(pair, tokensA, tokensB)
		if extended.TokenCount() >= uint32(e.cfg.MinTokens) {
			out = append(out, extended)
		}
	}
	return out
}

// extendForward counts how many further tokens match past the seed's end,
// resyncing over gaps of at most MaxGap within a Lookahead radius. The
// returned count excludes skipped tokens, so both sides grow by the same
// amount.
func (e *Extender) extendForward(tokensA []lexer.Token, posA int, tokensB []lexer.Token, posB int) int {
	extended := 0
	for posA < len(tokensA) && posB < len(tokensB) {
		if tokensA[posA].NormalizedHash == tokensB[posB].NormalizedHash {
			extended++
			posA++
			posB++
			continue
		}

		resynced := false
		for la := 0; la <= e.cfg.Lookahead && posA+la < len(tokensA); la++ {
			for lb := 0; lb <= e.cfg.Lookahead && posB+lb < len(tokensB); lb++ {
				if la == 0 && lb == 0 {
					continue
				}
				if tokensA[posA+la].NormalizedHash == tokensB[posB+lb].NormalizedHash &&
					la <= e.cfg.MaxGap && lb <= e.cfg.MaxGap {
					posA += la
					posB += lb
					resynced = true
					break
				}
			}
			if resynced {
				break
			}
		}
		if !resynced {
			break
		}
	}
	return extended
}

// extendBackward mirrors extendForward, stepping toward the start of both
// streams.
func (e *Extender) extendBackward(tokensA []lexer.Token, posA int, tokensB []lexer.Token, posB int) int {
	extended := 0
	for posA > 0 && posB > 0 {
		checkA := posA - 1
		checkB := posB - 1
		if tokensA[checkA].NormalizedHash == tokensB[checkB].NormalizedHash {
			extended++
			posA--
			posB--
			continue
		}

		resynced := false
		for la := 0; la <= e.cfg.Lookahead && checkA >= la; la++ {
			for lb := 0; lb <= e.cfg.Lookahead && checkB >= lb; lb++ {
				if la == 0 && lb == 0 {
					continue
				}
				if tokensA[checkA-la].NormalizedHash == tokensB[checkB-lb].NormalizedHash &&
					la <= e.cfg.MaxGap && lb <= e.cfg.MaxGap {
					posA = checkA - la
					posB = checkB - lb
					resynced = true
					break
				}
			}
			if resynced {
				break
			}
		}
		if !resynced {
			break
		}
	}
	return extended
}

// JaccardSimilarity scores two token ranges as multiset intersection over
// union of their normalized hashes. It is a quick screen, not the score the
// extension path accepts on; see AlignmentSimilarity for that.
func JaccardSimilarity(tokensA []lexer.Token, startA, countA int, tokensB []lexer.Token, startB, countB int) float64 {
	if countA <= 0 || countB <= 0 {
		return 0
	}
	startA = clampIndex(startA, len(tokensA))
	startB = clampIndex(startB, len(tokensB))
	endA := clampIndex(startA+countA, len(tokensA))
	endB := clampIndex(startB+countB, len(tokensB))

	countsA := make(map[uint32]int, endA-startA)
	for i := startA; i < endA; i++ {
		countsA[tokensA[i].NormalizedHash]++
	}
	countsB := make(map[uint32]int, endB-startB)
	for i := startB; i < endB; i++ {
		countsB[tokensB[i].NormalizedHash]++
	}

	intersection := 0
	for h, ca := range countsA {
		if cb := countsB[h]; cb < ca {
			intersection += cb
		} else {
			intersection += ca
		}
	}

	union := (endA - startA) + (endB - startB) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// AlignmentSimilarity walks two token ranges in lockstep, counting matched
// normalized hashes and resyncing across at most maxGap positions (first in
// B, then in A) after a mismatch. The score is matches over the longer
// range's length, in [0,1].
func AlignmentSimilarity(tokensA []lexer.Token, startA, countA int, tokensB []lexer.Token, startB, countB, maxGap int) float64 {
	if countA <= 0 || countB <= 0 {
		return 0
	}
	startA = clampIndex(startA, len(tokensA))
	startB = clampIndex(startB, len(tokensB))
	endA := clampIndex(startA+countA, len(tokensA))
	endB := clampIndex(startB+countB, len(tokensB))

	matches := 0
	posA := startA
	posB := startB

	for posA < endA && posB < endB {
		if tokensA[posA].NormalizedHash == tokensB[posB].NormalizedHash {
			matches++
			posA++
			posB++
			continue
		}

		found := false
		for g := 1; g <= maxGap && posB+g < endB; g++ {
			if tokensA[posA].NormalizedHash == tokensB[posB+g].NormalizedHash {
				posB += g
				found = true
				break
			}
		}
		if !found {
			for g := 1; g <= maxGap && posA+g < endA; g++ {
				if tokensA[posA+g].NormalizedHash == tokensB[posB].NormalizedHash {
					posA += g
					found = true
					break
				}
			}
		}
		if !found {
			posA++
			posB++
		}
	}

	total := countA
	if countB > total {
		total = countB
	}
	return float64(matches) / float64(total)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
