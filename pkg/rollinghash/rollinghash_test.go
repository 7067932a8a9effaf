package rollinghash

import "testing"

func TestNewInitialState(t *testing.T) {
	r := New(10)

	if r.WindowSize() != 10 {
		t.Errorf("WindowSize() = %d, want 10", r.WindowSize())
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if r.Full() {
		t.Error("Full() = true, want false")
	}
}

func TestPushNotReadyUntilWindowFull(t *testing.T) {
	r := New(3)

	if _, ok := r.Push(100); ok {
		t.Error("Push(100) ready after 1 token")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	if _, ok := r.Push(200); ok {
		t.Error("Push(200) ready after 2 tokens")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	if _, ok := r.Push(300); !ok {
		t.Error("Push(300) not ready after 3 tokens")
	}
	if !r.Full() {
		t.Error("Full() = false, want true")
	}
}

func TestResetClearsState(t *testing.T) {
	r := New(3)
	r.Push(100)
	r.Push(200)
	r.Push(300)

	r.Reset()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", r.Len())
	}
	if r.Full() {
		t.Error("Full() = true after Reset, want false")
	}

	// A refilled hasher behaves like a fresh one.
	r.Push(10)
	r.Push(20)
	got, ok := r.Push(30)
	if !ok {
		t.Fatal("window not full after refill")
	}
	if want := ComputeHash([]uint64{10, 20, 30}); got != want {
		t.Errorf("hash after Reset = %d, want %d", got, want)
	}
}

func TestSameInputProducesSameHash(t *testing.T) {
	r1 := New(3)
	r1.Push(10)
	r1.Push(20)
	h1, _ := r1.Push(30)

	r2 := New(3)
	r2.Push(10)
	r2.Push(20)
	h2, _ := r2.Push(30)

	if h1 != h2 {
		t.Errorf("hashes differ: %d vs %d", h1, h2)
	}
}

func TestDifferentInputProducesDifferentHash(t *testing.T) {
	r1 := New(3)
	r1.Push(10)
	r1.Push(20)
	h1, _ := r1.Push(30)

	r2 := New(3)
	r2.Push(10)
	r2.Push(20)
	h2, _ := r2.Push(99)

	if h1 == h2 {
		t.Errorf("hashes equal (%d) for different input", h1)
	}
}

func TestOrderMatters(t *testing.T) {
	r1 := New(3)
	r1.Push(10)
	r1.Push(20)
	h1, _ := r1.Push(30)

	r2 := New(3)
	r2.Push(30)
	r2.Push(20)
	h2, _ := r2.Push(10)

	if h1 == h2 {
		t.Errorf("hashes equal (%d) for reversed input", h1)
	}
}

func TestRollingWindowMatchesDirectComputation(t *testing.T) {
	r := New(3)
	tokens := []uint64{10, 20, 30, 40, 50}

	var hashes []uint64
	for _, tok := range tokens {
		if h, ok := r.Push(tok); ok {
			hashes = append(hashes, h)
		}
	}

	if len(hashes) != 3 {
		t.Fatalf("got %d hashes, want 3", len(hashes))
	}

	wants := [][]uint64{{10, 20, 30}, {20, 30, 40}, {30, 40, 50}}
	for i, window := range wants {
		if want := ComputeHash(window); hashes[i] != want {
			t.Errorf("hash[%d] = %d, want %d", i, hashes[i], want)
		}
	}
}

func TestComputeHashMatchesRolling(t *testing.T) {
	tokens := []uint64{100, 200, 300, 400}

	direct := ComputeHash(tokens)

	r := New(4)
	var rolled uint64
	var ok bool
	for _, tok := range tokens {
		rolled, ok = r.Push(tok)
	}

	if !ok {
		t.Fatal("window not full")
	}
	if direct != rolled {
		t.Errorf("ComputeHash = %d, rolling = %d", direct, rolled)
	}
}

func TestComputeAll(t *testing.T) {
	tokens := []uint64{1, 2, 3, 4, 5, 6}
	results := ComputeAll(tokens, 3)

	if len(results) != 4 {
		t.Fatalf("got %d windows, want 4", len(results))
	}

	for i, wh := range results {
		if wh.Start != i {
			t.Errorf("results[%d].Start = %d, want %d", i, wh.Start, i)
		}
		if want := ComputeHash(tokens[i : i+3]); wh.Hash != want {
			t.Errorf("results[%d].Hash = %d, want %d", i, wh.Hash, want)
		}
	}
}

func TestComputeAllShortInput(t *testing.T) {
	results := ComputeAll([]uint64{1, 2}, 5)
	if len(results) != 0 {
		t.Errorf("got %d windows, want 0", len(results))
	}
}

func TestComputeAllSingleWindow(t *testing.T) {
	tokens := []uint64{1, 2, 3}
	results := ComputeAll(tokens, 3)

	if len(results) != 1 {
		t.Fatalf("got %d windows, want 1", len(results))
	}
	if results[0].Start != 0 {
		t.Errorf("Start = %d, want 0", results[0].Start)
	}
	if want := ComputeHash(tokens); results[0].Hash != want {
		t.Errorf("Hash = %d, want %d", results[0].Hash, want)
	}
}

func TestWindowSizeOne(t *testing.T) {
	r := New(1)

	h1, ok := r.Push(42)
	if !ok {
		t.Fatal("window of 1 not full after a push")
	}
	if h1 != 42%Mod {
		t.Errorf("hash = %d, want %d", h1, 42%Mod)
	}

	h2, ok := r.Push(100)
	if !ok {
		t.Fatal("window of 1 not full after second push")
	}
	if h2 != 100%Mod {
		t.Errorf("hash = %d, want %d", h2, 100%Mod)
	}
}

func TestLargeTokenValues(t *testing.T) {
	tokens := []uint64{0xFFFFFFFF, 0xDEADBEEF, 0xCAFEBABE}

	r := New(3)
	r.Push(tokens[0])
	r.Push(tokens[1])
	rolled, ok := r.Push(tokens[2])

	if !ok {
		t.Fatal("window not full")
	}
	if want := ComputeHash(tokens); rolled != want {
		t.Errorf("rolling = %d, ComputeHash = %d", rolled, want)
	}
}

func TestPowerMod(t *testing.T) {
	tests := []struct {
		exp  uint64
		want uint64
	}{
		{0, 1},
		{1, Base},
		{2, (Base * Base) % Mod},
		{3, (Base * Base * Base) % Mod},
	}

	for _, tt := range tests {
		if got := PowerMod(tt.exp); got != tt.want {
			t.Errorf("PowerMod(%d) = %d, want %d", tt.exp, got, tt.want)
		}
	}

	if got := PowerMod(1000); got >= Mod {
		t.Errorf("PowerMod(1000) = %d, want < %d", got, Mod)
	}
}

func TestEmptyComputeHash(t *testing.T) {
	if got := ComputeHash(nil); got != 0 {
		t.Errorf("ComputeHash(nil) = %d, want 0", got)
	}
}

func TestSequentialWindowsAllDistinct(t *testing.T) {
	tokens := make([]uint64, 1000)
	for i := range tokens {
		tokens[i] = uint64(i)
	}

	results := ComputeAll(tokens, 10)
	seen := make(map[uint64]bool, len(results))
	for _, wh := range results {
		seen[wh.Hash] = true
	}

	uniqueness := float64(len(seen)) / float64(len(results))
	if uniqueness < 0.99 {
		t.Errorf("uniqueness = %.4f, want >= 0.99", uniqueness)
	}
}

func TestDetectDuplicateSequences(t *testing.T) {
	fileTokens := []uint64{
		1, 2, 3, 4, 5, // unique prefix
		10, 20, 30, 40, 50, // first occurrence
		6, 7, 8,
		10, 20, 30, 40, 50, // second occurrence
		9, 10, 11,
	}

	results := ComputeAll(fileTokens, 5)
	pattern := ComputeHash([]uint64{10, 20, 30, 40, 50})

	var positions []int
	for _, wh := range results {
		if wh.Hash == pattern {
			positions = append(positions, wh.Start)
		}
	}

	if len(positions) != 2 {
		t.Fatalf("pattern found %d times, want 2", len(positions))
	}
	if positions[0] != 5 || positions[1] != 13 {
		t.Errorf("positions = %v, want [5 13]", positions)
	}
}
