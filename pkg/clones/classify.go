package clones

import (
	"github.com/bitgrove/mimic/pkg/index"
	"github.com/bitgrove/mimic/pkg/lexer"
	"github.com/bitgrove/mimic/pkg/models"
)

// classify decides the clone type of a merged pair. When Type-2 detection is
// off the index was built over original hashes, so every pair is exact by
// construction. Otherwise the two regions matched on normalized hashes and
// their original hashes tell exact duplicates apart from renamed ones.
//
// Pairs whose regions cannot be resolved against the token streams keep the
// Type-1 seed classification rather than failing the run.
func (a *Analyzer) classify(pair models.ClonePair, views map[string][]lexer.Token, ix *index.Index) models.CloneType {
	if !a.detectType2 {
		return models.CloneType1
	}

	va, okA := views[ix.FilePath(pair.A.FileID)]
	vb, okB := views[ix.FilePath(pair.B.FileID)]
	if !okA || !okB {
		return models.CloneType1
	}

	startA, countA := int(pair.A.TokenStart), int(pair.A.TokenCount)
	startB, countB := int(pair.B.TokenStart), int(pair.B.TokenCount)
	if startA+countA > len(va) || startB+countB > len(vb) {
		return models.CloneType1
	}

	// Merging can grow the two sides by different amounts; unequal lengths
	// already imply a rename or reflow somewhere inside.
	if countA != countB {
		return models.CloneType2
	}

	for i := 0; i < countA; i++ {
		if va[startA+i].OriginalHash != vb[startB+i].OriginalHash {
			return models.CloneType2
		}
	}
	return models.CloneType1
}
