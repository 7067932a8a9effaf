// Package cache provides an in-memory LRU cache for tokenized files.
//
// Entries are keyed by path and validated against a fingerprint of the
// content they were tokenized from, so a file that changed between runs
// misses instead of serving stale tokens. The cache lives and dies with
// the analyzer that owns it; nothing is persisted.
package cache

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bitgrove/mimic/pkg/lexer"
)

// DefaultCapacity is the entry limit used when no capacity is configured.
const DefaultCapacity = 1000

type entry struct {
	fingerprint uint64
	file        *lexer.File
}

// FileCache is a fixed-capacity LRU of tokenized files. It is safe for
// concurrent use. A nil *FileCache is valid and never hits.
type FileCache struct {
	entries *lru.Cache[string, entry]
}

// New creates a cache holding at most capacity files. Non-positive
// capacities fall back to DefaultCapacity.
func New(capacity int) *FileCache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		panic(err) // lru.New fails only for non-positive sizes
	}
	return &FileCache{entries: entries}
}

// Fingerprint returns the content fingerprint used to validate entries.
func Fingerprint(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Get returns the cached tokenization of path if one exists and was built
// from exactly this content.
func (c *FileCache) Get(path string, content []byte) (*lexer.File, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.entries.Get(path)
	if !ok || e.fingerprint != Fingerprint(content) {
		return nil, false
	}
	return e.file, true
}

// Put stores the tokenization of path built from content, replacing any
// previous entry for the same path.
func (c *FileCache) Put(path string, content []byte, file *lexer.File) {
	if c == nil {
		return
	}
	c.entries.Add(path, entry{fingerprint: Fingerprint(content), file: file})
}

// Len returns the number of cached files.
func (c *FileCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every entry.
func (c *FileCache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}
