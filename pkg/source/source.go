// Package source abstracts where file content comes from, so the analyzer
// can read from the filesystem or from in-memory buffers through a single
// interface.
package source

import (
	"fmt"
	"io/fs"
	"os"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapSource serves content from an in-memory map keyed by path. It is safe
// for concurrent reads as long as the map is not mutated.
type MapSource struct {
	files map[string][]byte
}

// NewMap creates a source backed by the given path-to-content map.
func NewMap(files map[string][]byte) *MapSource {
	return &MapSource{files: files}
}

// Read implements ContentSource. Missing paths report fs.ErrNotExist so
// callers can distinguish absent files from read failures.
func (m *MapSource) Read(path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return content, nil
}
