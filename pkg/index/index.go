// Package index provides the inverted hash index at the center of clone
// detection: window hashes map to every location they occur at, and any hash
// with two or more locations seeds a candidate clone pair.
package index

import (
	"sort"
	"sync"

	"github.com/bitgrove/mimic/pkg/models"
	"github.com/sourcegraph/conc/pool"
)

// parallelThreshold is the minimum number of duplicated hashes before the
// parallel pair enumeration pays for its scheduling overhead.
const parallelThreshold = 100

// Index maps window hashes to the locations they were observed at.
// Files are registered serially so ids are stable for a fixed input order;
// the zero value is not usable, construct with New.
type Index struct {
	buckets   map[uint64][]models.HashLocation
	filePaths []string
	fileIDs   map[string]uint32
}

// New returns an empty index.
func New() *Index {
	return &Index{
		buckets: make(map[uint64][]models.HashLocation),
		fileIDs: make(map[string]uint32),
	}
}

// RegisterFile assigns a stable id to path, reusing the existing id when the
// path was registered before.
func (ix *Index) RegisterFile(path string) uint32 {
	if id, ok := ix.fileIDs[path]; ok {
		return id
	}
	id := uint32(len(ix.filePaths))
	ix.fileIDs[path] = id
	ix.filePaths = append(ix.filePaths, path)
	return id
}

// FilePath returns the path registered under id, or "" when id is unknown.
func (ix *Index) FilePath(id uint32) string {
	if int(id) >= len(ix.filePaths) {
		return ""
	}
	return ix.filePaths[id]
}

// FilePaths returns all registered paths in registration order.
func (ix *Index) FilePaths() []string {
	return ix.filePaths
}

// FileCount returns the number of registered files.
func (ix *Index) FileCount() int {
	return len(ix.filePaths)
}

// Add records one occurrence of hash at loc.
func (ix *Index) Add(hash uint64, loc models.HashLocation) {
	ix.buckets[hash] = append(ix.buckets[hash], loc)
}

// Locations returns every recorded location for hash, nil when the hash was
// never added. Callers must not mutate the returned slice.
func (ix *Index) Locations(hash uint64) []models.HashLocation {
	return ix.buckets[hash]
}

// HashCount returns the number of distinct hashes in the index.
func (ix *Index) HashCount() int {
	return len(ix.buckets)
}

// LocationCount returns the total number of recorded locations across all
// hashes.
func (ix *Index) LocationCount() int {
	total := 0
	for _, locs := range ix.buckets {
		total += len(locs)
	}
	return total
}

// FindClonePairs enumerates every unordered location pair that shares a hash.
// Pairs whose two locations sit in the same file with overlapping line ranges
// are suppressed: a window always matches itself and its immediate neighbors.
// Emitted pairs start life as Type-1 with similarity 1.0; classification may
// downgrade them later. Order of the returned pairs is unspecified.
func (ix *Index) FindClonePairs() []models.ClonePair {
	var pairs []models.ClonePair
	for hash, locs := range ix.buckets {
		if len(locs) < 2 {
			continue
		}
		pairs = appendPairs(pairs, hash, locs)
	}
	return pairs
}

// FindClonePairsParallel enumerates clone pairs across workers goroutines.
// Small workloads and single-worker calls fall back to the sequential path.
// The result is multiset-equal to FindClonePairs; only ordering differs.
func (ix *Index) FindClonePairsParallel(workers int) []models.ClonePair {
	type bucket struct {
		hash uint64
		locs []models.HashLocation
	}
	var work []bucket
	for hash, locs := range ix.buckets {
		if len(locs) >= 2 {
			work = append(work, bucket{hash: hash, locs: locs})
		}
	}

	if len(work) < parallelThreshold || workers <= 1 {
		return ix.FindClonePairs()
	}

	// Each task appends into the shard for its slot so the concatenation
	// below needs no further synchronization.
	shards := make([][]models.ClonePair, workers)
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(workers)
	for i := range work {
		p.Go(func() {
			local := appendPairs(nil, work[i].hash, work[i].locs)
			if len(local) == 0 {
				return
			}
			slot := i % workers
			mu.Lock()
			shards[slot] = append(shards[slot], local...)
			mu.Unlock()
		})
	}
	p.Wait()

	total := 0
	for _, shard := range shards {
		total += len(shard)
	}
	pairs := make([]models.ClonePair, 0, total)
	for _, shard := range shards {
		pairs = append(pairs, shard...)
	}
	return pairs
}

func appendPairs(dst []models.ClonePair, hash uint64, locs []models.HashLocation) []models.ClonePair {
	for i := 0; i < len(locs); i++ {
		for j := i + 1; j < len(locs); j++ {
			if locs[i].Overlaps(locs[j]) {
				continue
			}
			dst = append(dst, models.ClonePair{
				A:          locs[i],
				B:          locs[j],
				Type:       models.CloneType1,
				Similarity: 1.0,
				SharedHash: hash,
			})
		}
	}
	return dst
}

// MergeAdjacent coalesces runs of window-sized pairs into larger clone
// regions. Two pairs merge when they cover the same file pair and the next
// pair starts within maxGap tokens of where the current region ends, on both
// sides. The input is not modified; output follows the canonical sort order
// (file pair, then token_start on each side).
func MergeAdjacent(pairs []models.ClonePair, maxGap uint32) []models.ClonePair {
	if len(pairs) == 0 {
		return nil
	}

	sorted := make([]models.ClonePair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		iMin, iMax := filePairKey(sorted[i])
		jMin, jMax := filePairKey(sorted[j])
		if iMin != jMin {
			return iMin < jMin
		}
		if iMax != jMax {
			return iMax < jMax
		}
		if sorted[i].A.TokenStart != sorted[j].A.TokenStart {
			return sorted[i].A.TokenStart < sorted[j].A.TokenStart
		}
		return sorted[i].B.TokenStart < sorted[j].B.TokenStart
	})

	merged := make([]models.ClonePair, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		sameFiles := (current.A.FileID == next.A.FileID && current.B.FileID == next.B.FileID) ||
			(current.A.FileID == next.B.FileID && current.B.FileID == next.A.FileID)
		if !sameFiles {
			merged = append(merged, current)
			current = next
			continue
		}

		// Orient next so its A side sits in the same file as current's A side.
		nextA, nextB := next.A, next.B
		if current.A.FileID != nextA.FileID {
			nextA, nextB = nextB, nextA
		}

		endA := current.A.TokenStart + current.A.TokenCount
		endB := current.B.TokenStart + current.B.TokenCount

		adjacentA := nextA.TokenStart >= current.A.TokenStart && nextA.TokenStart <= endA+maxGap
		adjacentB := nextB.TokenStart >= current.B.TokenStart && nextB.TokenStart <= endB+maxGap

		if adjacentA && adjacentB {
			newEndA := nextA.TokenStart + nextA.TokenCount
			if endA > newEndA {
				newEndA = endA
			}
			newEndB := nextB.TokenStart + nextB.TokenCount
			if endB > newEndB {
				newEndB = endB
			}
			current.A.TokenCount = newEndA - current.A.TokenStart
			current.B.TokenCount = newEndB - current.B.TokenStart
			if nextA.EndLine > current.A.EndLine {
				current.A.EndLine = nextA.EndLine
			}
			if nextB.EndLine > current.B.EndLine {
				current.B.EndLine = nextB.EndLine
			}
			continue
		}

		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged
}

// FilterBySize drops pairs whose smaller side spans fewer than minTokens
// tokens. Input order is preserved.
func FilterBySize(pairs []models.ClonePair, minTokens uint32) []models.ClonePair {
	filtered := make([]models.ClonePair, 0, len(pairs))
	for _, p := range pairs {
		if p.TokenCount() >= minTokens {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// Stats summarizes index contents for diagnostics.
type Stats struct {
	TotalFiles          int `json:"total_files"`
	TotalHashes         int `json:"total_hashes"`
	TotalLocations      int `json:"total_locations"`
	DuplicateHashes     int `json:"duplicate_hashes"`
	MaxLocationsPerHash int `json:"max_locations_per_hash"`
}

// Stats computes summary statistics over the current index contents.
func (ix *Index) Stats() Stats {
	st := Stats{
		TotalFiles:  len(ix.filePaths),
		TotalHashes: len(ix.buckets),
	}
	for _, locs := range ix.buckets {
		st.TotalLocations += len(locs)
		if len(locs) > 1 {
			st.DuplicateHashes++
		}
		if len(locs) > st.MaxLocationsPerHash {
			st.MaxLocationsPerHash = len(locs)
		}
	}
	return st
}

func filePairKey(p models.ClonePair) (uint32, uint32) {
	if p.A.FileID <= p.B.FileID {
		return p.A.FileID, p.B.FileID
	}
	return p.B.FileID, p.A.FileID
}
