// Package rollinghash implements the Rabin-Karp rolling hash that drives
// window matching: each window of k token hashes folds into one uint64, and
// sliding the window forward costs O(1) instead of rehashing k tokens.
package rollinghash

// Rabin-Karp parameters. Window hashes feed the match index directly, so
// changing either constant invalidates every hash the pipeline produces.
const (
	Base uint64 = 31
	Mod  uint64 = 1_000_000_009
)

// RollingHash maintains a sliding window of token hashes and the combined
// hash of its current contents:
//
//	hash = (t[0]*Base^(k-1) + t[1]*Base^(k-2) + ... + t[k-1]) mod Mod
type RollingHash struct {
	windowSize int
	hash       uint64
	basePower  uint64 // Base^(windowSize-1) mod Mod
	window     []uint64
	next       int // ring slot written next; holds the oldest entry once full
	count      int
}

// New creates a rolling hash over windows of windowSize tokens.
func New(windowSize int) *RollingHash {
	if windowSize < 1 {
		windowSize = 1
	}
	basePower := uint64(1)
	for i := 1; i < windowSize; i++ {
		basePower = (basePower * Base) % Mod
	}
	return &RollingHash{
		windowSize: windowSize,
		basePower:  basePower,
		window:     make([]uint64, windowSize),
	}
}

// Reset clears the window. Call it between files.
func (r *RollingHash) Reset() {
	r.hash = 0
	r.next = 0
	r.count = 0
}

// Push slides tokenHash into the window, evicting the oldest token once the
// window is full. It returns the window hash and true once the window holds
// windowSize tokens, 0 and false while it is still filling.
func (r *RollingHash) Push(tokenHash uint64) (uint64, bool) {
	if r.count == r.windowSize {
		old := r.window[r.next]
		contribution := (old * r.basePower) % Mod
		if r.hash >= contribution {
			r.hash -= contribution
		} else {
			r.hash = Mod - (contribution - r.hash)
		}
	} else {
		r.count++
	}

	r.hash = (r.hash*Base + tokenHash) % Mod
	r.window[r.next] = tokenHash
	r.next = (r.next + 1) % r.windowSize

	if r.count == r.windowSize {
		return r.hash, true
	}
	return 0, false
}

// WindowSize returns the configured window size.
func (r *RollingHash) WindowSize() int { return r.windowSize }

// Len returns the number of tokens currently buffered.
func (r *RollingHash) Len() int { return r.count }

// Full reports whether the window holds windowSize tokens.
func (r *RollingHash) Full() bool { return r.count == r.windowSize }

// ComputeHash folds a whole token sequence into one hash without rolling.
// An empty sequence hashes to 0.
func ComputeHash(tokenHashes []uint64) uint64 {
	var hash uint64
	for _, th := range tokenHashes {
		hash = (hash*Base + th) % Mod
	}
	return hash
}

// WindowHash is one window position and its hash.
type WindowHash struct {
	Start int
	Hash  uint64
}

// ComputeAll returns the hash of every windowSize-token window in the
// sequence, tagged with the window's starting index. Sequences shorter than
// the window produce no hashes.
func ComputeAll(tokenHashes []uint64, windowSize int) []WindowHash {
	if windowSize < 1 {
		windowSize = 1
	}
	if len(tokenHashes) < windowSize {
		return nil
	}

	result := make([]WindowHash, 0, len(tokenHashes)-windowSize+1)
	r := New(windowSize)
	for i, th := range tokenHashes {
		if hash, ok := r.Push(th); ok {
			result = append(result, WindowHash{Start: i - windowSize + 1, Hash: hash})
		}
	}
	return result
}

// PowerMod computes Base^exp mod Mod by binary exponentiation.
func PowerMod(exp uint64) uint64 {
	result := uint64(1)
	base := Base
	for exp > 0 {
		if exp%2 == 1 {
			result = (result * base) % Mod
		}
		base = (base * base) % Mod
		exp /= 2
	}
	return result
}
