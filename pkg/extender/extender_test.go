package extender

import (
	"math"
	"reflect"
	"testing"

	"github.com/bitgrove/mimic/pkg/index"
	"github.com/bitgrove/mimic/pkg/lexer"
	"github.com/bitgrove/mimic/pkg/models"
)

// tokensOf builds a keyword token per hash, one per line, with original and
// normalized hashes equal so the hash sequence is the whole story.
func tokensOf(hashes ...uint32) []lexer.Token {
	toks := make([]lexer.Token, len(hashes))
	for i, h := range hashes {
		toks[i] = lexer.Token{
			Type:           lexer.TokenKeyword,
			OriginalHash:   h,
			NormalizedHash: h,
			Line:           uint32(i + 1),
			Length:         1,
		}
	}
	return toks
}

func fileOf(path string, hashes ...uint32) *lexer.File {
	return &lexer.File{Path: path, Tokens: tokensOf(hashes...), TotalLines: len(hashes)}
}

func seedPair(startA, countA, startB, countB uint32) models.ClonePair {
	return models.ClonePair{
		A: models.HashLocation{
			FileID: 0, TokenStart: startA, TokenCount: countA,
			StartLine: startA + 1, EndLine: startA + countA,
		},
		B: models.HashLocation{
			FileID: 1, TokenStart: startB, TokenCount: countB,
			StartLine: startB + 1, EndLine: startB + countB,
		},
		Type:       models.CloneType1,
		Similarity: 1.0,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestJaccardIdentical(t *testing.T) {
	toks := tokensOf(1, 2, 3, 4, 5)
	if sim := JaccardSimilarity(toks, 0, 5, toks, 0, 5); sim != 1.0 {
		t.Errorf("similarity = %v, want 1.0", sim)
	}
}

func TestJaccardDisjoint(t *testing.T) {
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(6, 7, 8, 9, 10)
	if sim := JaccardSimilarity(a, 0, 5, b, 0, 5); sim != 0.0 {
		t.Errorf("similarity = %v, want 0.0", sim)
	}
}

func TestJaccardPartialOverlap(t *testing.T) {
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(3, 4, 5, 6, 7)

	// Intersection {3,4,5} = 3, union = 5 + 5 - 3 = 7.
	sim := JaccardSimilarity(a, 0, 5, b, 0, 5)
	if !almostEqual(sim, 3.0/7.0) {
		t.Errorf("similarity = %v, want 3/7", sim)
	}
}

func TestJaccardMultisetCounts(t *testing.T) {
	a := tokensOf(1, 1, 2)
	b := tokensOf(1, 2, 2)

	// Repeated hashes intersect by minimum count: 1 once doubled on each
	// side gives intersection 2, union 4.
	sim := JaccardSimilarity(a, 0, 3, b, 0, 3)
	if !almostEqual(sim, 0.5) {
		t.Errorf("similarity = %v, want 0.5", sim)
	}
}

func TestJaccardEmptyRanges(t *testing.T) {
	if sim := JaccardSimilarity(nil, 0, 0, nil, 0, 0); sim != 0.0 {
		t.Errorf("similarity = %v, want 0.0", sim)
	}
	toks := tokensOf(1, 2, 3)
	if sim := JaccardSimilarity(toks, 0, 3, nil, 0, 0); sim != 0.0 {
		t.Errorf("one-sided similarity = %v, want 0.0", sim)
	}
}

func TestJaccardSingleToken(t *testing.T) {
	a := tokensOf(7)
	b := tokensOf(7)
	if sim := JaccardSimilarity(a, 0, 1, b, 0, 1); sim != 1.0 {
		t.Errorf("similarity = %v, want 1.0", sim)
	}
}

func TestAlignmentIdentical(t *testing.T) {
	toks := tokensOf(1, 2, 3, 4, 5)
	if sim := AlignmentSimilarity(toks, 0, 5, toks, 0, 5, 2); sim != 1.0 {
		t.Errorf("similarity = %v, want 1.0", sim)
	}
}

func TestAlignmentWithGap(t *testing.T) {
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 99, 3, 4, 5)

	// Five matches resyncing over the inserted 99; scored against the
	// longer range: 5/6.
	sim := AlignmentSimilarity(a, 0, 5, b, 0, 6, 2)
	if !almostEqual(sim, 5.0/6.0) {
		t.Errorf("similarity = %v, want 5/6", sim)
	}
}

func TestAlignmentEmptyRanges(t *testing.T) {
	if sim := AlignmentSimilarity(nil, 0, 0, nil, 0, 0, 2); sim != 0.0 {
		t.Errorf("similarity = %v, want 0.0", sim)
	}
}

func TestAlignmentOutOfBoundsClamped(t *testing.T) {
	toks := tokensOf(1, 2, 3)
	if sim := AlignmentSimilarity(toks, 100, 5, toks, 0, 3, 2); sim != 0.0 {
		t.Errorf("similarity = %v, want 0.0", sim)
	}
}

func TestExtendGrowsBothDirections(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 3, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5, 6, 7, 8)
	b := tokensOf(1, 2, 3, 4, 5, 6, 7, 8)

	got := e.Extend(seedPair(2, 3, 2, 3), a, b)

	if got.A.TokenStart != 0 || got.A.TokenCount != 8 {
		t.Errorf("A range = %d+%d, want 0+8", got.A.TokenStart, got.A.TokenCount)
	}
	if got.B.TokenStart != 0 || got.B.TokenCount != 8 {
		t.Errorf("B range = %d+%d, want 0+8", got.B.TokenStart, got.B.TokenCount)
	}
	if got.A.StartLine != 1 || got.A.EndLine != 8 {
		t.Errorf("A lines = %d-%d, want 1-8", got.A.StartLine, got.A.EndLine)
	}
	if got.Similarity != 1.0 {
		t.Errorf("Similarity = %v, want 1.0", got.Similarity)
	}
	if got.Type != models.CloneType1 {
		t.Errorf("Type = %s, want %s", got.Type, models.CloneType1)
	}
}

func TestExtendStopsAtEndOfFile(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 3, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 3, 4, 5)

	// Seed covers the final two tokens; only backward growth is possible.
	got := e.Extend(seedPair(3, 2, 3, 2), a, b)

	if got.A.TokenStart != 0 || got.A.TokenCount != 5 {
		t.Errorf("A range = %d+%d, want 0+5", got.A.TokenStart, got.A.TokenCount)
	}
}

func TestExtendStopsAtStartOfFile(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 3, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 3, 4, 5)

	got := e.Extend(seedPair(0, 2, 0, 2), a, b)

	if got.A.TokenStart != 0 {
		t.Errorf("A.TokenStart = %d, want 0", got.A.TokenStart)
	}
	if got.A.TokenCount != 5 {
		t.Errorf("A.TokenCount = %d, want 5", got.A.TokenCount)
	}
}

func TestExtendRespectsMaxGap(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 3, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 99, 98, 97, 3, 4, 5)

	// The three inserted tokens exceed MaxGap, so extension cannot cross
	// them even though the lookahead can see the resync point.
	got := e.Extend(seedPair(0, 2, 0, 2), a, b)

	if got.A.TokenCount != 2 || got.B.TokenCount != 2 {
		t.Errorf("token counts = %d,%d, want 2,2", got.A.TokenCount, got.B.TokenCount)
	}
}

func TestExtendCrossesSmallGap(t *testing.T) {
	e := New(Config{MaxGap: 3, MinSimilarity: 0.3, MinTokens: 2, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 99, 3, 4, 5)

	got := e.Extend(seedPair(0, 2, 0, 2), a, b)

	if got.A.TokenCount != 5 {
		t.Errorf("A.TokenCount = %d, want 5", got.A.TokenCount)
	}
	if got.Type != models.CloneType3 {
		t.Errorf("Type = %s, want %s", got.Type, models.CloneType3)
	}
	if !almostEqual(got.Similarity, 0.8) {
		t.Errorf("Similarity = %v, want 0.8", got.Similarity)
	}
}

func TestExtendNoMatchingNeighbors(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 2, Lookahead: 5})
	a := tokensOf(100, 101, 5, 5, 102, 103)
	b := tokensOf(200, 201, 5, 5, 202, 203)

	got := e.Extend(seedPair(2, 2, 2, 2), a, b)

	if got.A.TokenStart != 2 || got.A.TokenCount != 2 {
		t.Errorf("A range = %d+%d, want 2+2", got.A.TokenStart, got.A.TokenCount)
	}
}

func TestExtendSingleTokenSeed(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 1, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 3, 4, 5)

	got := e.Extend(seedPair(2, 1, 2, 1), a, b)

	if got.A.TokenCount != 5 {
		t.Errorf("A.TokenCount = %d, want 5", got.A.TokenCount)
	}
}

func TestExtendZeroLookaheadStopsAtMismatch(t *testing.T) {
	e := New(Config{MaxGap: 5, MinSimilarity: 0.5, MinTokens: 1, Lookahead: 0})
	a := tokensOf(1, 2, 3, 9, 4)
	b := tokensOf(1, 2, 3, 8, 4)

	got := e.Extend(seedPair(0, 3, 0, 3), a, b)

	if got.A.TokenCount != 3 {
		t.Errorf("A.TokenCount = %d, want 3", got.A.TokenCount)
	}
}

func TestExtendRejectionKeepsSeed(t *testing.T) {
	e := New(Config{MaxGap: 3, MinSimilarity: 0.95, MinTokens: 2, Lookahead: 5})
	a := tokensOf(1, 2, 3, 4, 5)
	b := tokensOf(1, 2, 99, 3, 4, 5)

	// The gapped extension scores 0.8, below the 0.95 bar, so the seed
	// comes back untouched.
	seed := seedPair(0, 2, 0, 2)
	got := e.Extend(seed, a, b)

	if !reflect.DeepEqual(got, seed) {
		t.Errorf("rejected extension altered the seed:\ngot  %+v\nwant %+v", got, seed)
	}
}

func TestExtendClassifiesRenamedAsType2(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 1, Lookahead: 5})

	mk := func(first uint32) []lexer.Token {
		toks := make([]lexer.Token, 5)
		for i := range toks {
			toks[i] = lexer.Token{
				Type:           lexer.TokenIdentifier,
				OriginalHash:   first + uint32(i),
				NormalizedHash: 999,
				Line:           uint32(i + 1),
				Length:         1,
			}
		}
		return toks
	}

	got := e.Extend(seedPair(1, 3, 1, 3), mk(1), mk(100))

	if got.Similarity != 1.0 {
		t.Fatalf("Similarity = %v, want 1.0", got.Similarity)
	}
	if got.Type != models.CloneType2 {
		t.Errorf("Type = %s, want %s", got.Type, models.CloneType2)
	}
	if got.A.TokenCount != 5 {
		t.Errorf("A.TokenCount = %d, want 5", got.A.TokenCount)
	}
}

func TestExtendOutOfRangeSeedClamped(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 1, Lookahead: 5})
	a := tokensOf(1, 2, 3)
	b := tokensOf(1, 2, 3)

	// A range far past the end must not panic; it clamps to the stream
	// end and then extends backward like any other seed.
	got := e.Extend(seedPair(100, 50, 100, 50), a, b)
	if got.A.TokenStart != 0 || got.A.TokenCount != 3 {
		t.Errorf("A range = %d+%d, want 0+3", got.A.TokenStart, got.A.TokenCount)
	}
}

func TestExtendAllEmpty(t *testing.T) {
	e := New(DefaultConfig())
	if got := e.ExtendAll(nil, nil, index.New()); len(got) != 0 {
		t.Errorf("got %d pairs, want 0", len(got))
	}
}

func TestExtendAllSinglePair(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 2, Lookahead: 5})

	fa := fileOf("file_a.py", 1, 2, 3, 4, 5)
	fb := fileOf("file_b.py", 1, 2, 3, 4, 5)

	ix := index.New()
	ix.RegisterFile("file_a.py")
	ix.RegisterFile("file_b.py")

	got := e.ExtendAll([]models.ClonePair{seedPair(1, 3, 1, 3)}, []*lexer.File{fa, fb}, ix)

	if len(got) != 1 {
		t.Fatalf("got %d pairs, want 1", len(got))
	}
	if got[0].TokenCount() != 5 {
		t.Errorf("TokenCount() = %d, want 5", got[0].TokenCount())
	}
}

func TestExtendAllMultiplePairs(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 2, Lookahead: 5})

	fa := fileOf("file_a.py", 1, 2, 3, 10, 11, 12)
	fb := fileOf("file_b.py", 1, 2, 3, 20, 21, 22)
	fc := fileOf("file_c.py", 1, 2, 3, 30, 31, 32)

	ix := index.New()
	ix.RegisterFile("file_a.py")
	ix.RegisterFile("file_b.py")
	ix.RegisterFile("file_c.py")

	pairAB := seedPair(0, 3, 0, 3)
	pairAC := seedPair(0, 3, 0, 3)
	pairAC.B.FileID = 2

	got := e.ExtendAll([]models.ClonePair{pairAB, pairAC}, []*lexer.File{fa, fb, fc}, ix)

	if len(got) != 2 {
		t.Fatalf("got %d pairs, want 2", len(got))
	}
	for _, p := range got {
		if p.TokenCount() != 3 {
			t.Errorf("TokenCount() = %d, want 3 (divergent tails cannot extend)", p.TokenCount())
		}
	}
}

func TestExtendAllFiltersSmallClones(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 10, Lookahead: 5})

	fa := fileOf("small_a.py", 1, 2, 3)
	fb := fileOf("small_b.py", 1, 2, 3)

	ix := index.New()
	ix.RegisterFile("small_a.py")
	ix.RegisterFile("small_b.py")

	got := e.ExtendAll([]models.ClonePair{seedPair(0, 3, 0, 3)}, []*lexer.File{fa, fb}, ix)

	if len(got) != 0 {
		t.Errorf("got %d pairs, want 0 (below MinTokens)", len(got))
	}
}

func TestExtendAllMissingFilePassesThrough(t *testing.T) {
	// MinTokens would reject the pair if it were extended; a pair whose
	// file is absent from the file list skips both extension and filter.
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 10, Lookahead: 5})

	fa := fileOf("file_a.py", 1, 2, 3, 4, 5)

	ix := index.New()
	ix.RegisterFile("file_a.py")
	ix.RegisterFile("file_b.py")

	seed := seedPair(0, 3, 0, 3)
	got := e.ExtendAll([]models.ClonePair{seed}, []*lexer.File{fa}, ix)

	if len(got) != 1 {
		t.Fatalf("got %d pairs, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0], seed) {
		t.Errorf("pass-through altered the pair:\ngot  %+v\nwant %+v", got[0], seed)
	}
}

func TestExtendAllStripsStructuralTokens(t *testing.T) {
	e := New(Config{MaxGap: 2, MinSimilarity: 0.5, MinTokens: 2, Lookahead: 5})

	// Structural tokens interleave the streams; offsets address the
	// filtered view, so both files still extend to their full code range.
	mk := func(path string) *lexer.File {
		f := &lexer.File{Path: path}
		for i, h := range []uint32{1, 2, 3, 4, 5} {
			f.Tokens = append(f.Tokens, lexer.Token{
				Type:           lexer.TokenKeyword,
				OriginalHash:   h,
				NormalizedHash: h,
				Line:           uint32(i + 1),
				Length:         1,
			})
			f.Tokens = append(f.Tokens, lexer.Token{Type: lexer.TokenNewline, Line: uint32(i + 1)})
		}
		return f
	}

	ix := index.New()
	ix.RegisterFile("a.py")
	ix.RegisterFile("b.py")

	got := e.ExtendAll([]models.ClonePair{seedPair(1, 3, 1, 3)}, []*lexer.File{mk("a.py"), mk("b.py")}, ix)

	if len(got) != 1 {
		t.Fatalf("got %d pairs, want 1", len(got))
	}
	if got[0].A.TokenStart != 0 || got[0].A.TokenCount != 5 {
		t.Errorf("A range = %d+%d, want 0+5", got[0].A.TokenStart, got[0].A.TokenCount)
	}
	if got[0].A.StartLine != 1 || got[0].A.EndLine != 5 {
		t.Errorf("A lines = %d-%d, want 1-5", got[0].A.StartLine, got[0].A.EndLine)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxGap != 5 || cfg.MinTokens != 30 || cfg.Lookahead != 10 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if !almostEqual(cfg.MinSimilarity, 0.7) {
		t.Errorf("MinSimilarity = %v, want 0.7", cfg.MinSimilarity)
	}
}
