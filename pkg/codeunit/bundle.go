package codeunit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotCompiled is returned when a bundle holds no program for a path.
var ErrNotCompiled = errors.New("no compiled program for path")

// Provider supplies the compiled form of a source file.
type Provider interface {
	// Compile returns the program for the given source path.
	Compile(path string) (*Program, error)
}

// Bundle is a set of pre-compiled programs keyed by source path.
// It is safe for concurrent use.
type Bundle struct {
	mu       sync.RWMutex
	programs map[string]*Program
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{programs: make(map[string]*Program)}
}

// canonicalPath normalizes a path so lookups succeed across separator
// styles and redundant segments.
func canonicalPath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// Put stores a program under the canonical form of path, replacing any
// previous entry.
func (b *Bundle) Put(path string, p *Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.programs[canonicalPath(path)] = p
}

// Compile returns the program stored for path. The path is tried as
// given first, then in canonical form.
func (b *Bundle) Compile(path string) (*Program, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if p, ok := b.programs[path]; ok {
		return p, nil
	}
	if p, ok := b.programs[canonicalPath(path)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotCompiled)
}

// Len returns the number of stored programs.
func (b *Bundle) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.programs)
}

// Paths returns the stored source paths in sorted order.
func (b *Bundle) Paths() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	paths := make([]string, 0, len(b.programs))
	for path := range b.programs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Save writes the bundle as a msgpack map of source path to unit
// document.
func (b *Bundle) Save(w io.Writer) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	docs := make(map[string]unitDoc, len(b.programs))
	for path, p := range b.programs {
		root := p.Root()
		if root == nil {
			continue
		}
		docs[path] = docFromUnit(p, root, make(map[int]bool, p.Len()))
	}
	return msgpack.NewEncoder(w).Encode(docs)
}

// LoadBundle reads a bundle written by Save.
func LoadBundle(r io.Reader) (*Bundle, error) {
	var docs map[string]unitDoc
	if err := msgpack.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}

	b := NewBundle()
	for path, doc := range docs {
		b.programs[canonicalPath(path)] = programFromDoc(doc)
	}
	return b, nil
}

// LoadBundleFile reads a bundle from a file on disk.
func LoadBundleFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle file: %w", err)
	}
	defer f.Close()

	return LoadBundle(f)
}

// Ensure Bundle implements the Provider interface
var _ Provider = (*Bundle)(nil)
