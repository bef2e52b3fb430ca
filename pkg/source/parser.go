// Package source parses Python files into syntax trees and computes the
// per-file suppression sets that exclude lines from coverage.
package source

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/vitaliy-khomyn/minicov/internal/log"
)

// ErrMalformed indicates source text that could not be decoded or parsed.
// Callers treat it as "no data for this file", never as a fatal condition.
var ErrMalformed = errors.New("malformed source")

// File is a parsed Python source file. It owns the underlying syntax
// tree; call Close when done with it.
type File struct {
	Path    string
	Content []byte
	tree    *sitter.Tree
}

// Root returns the module node of the syntax tree.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text spanned by a node.
func (f *File) Text(n *sitter.Node) string {
	return string(f.Content[n.StartByte():n.EndByte()])
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Parser turns Python source into Files and SuppressionSets. Exclusion
// patterns are compiled once at construction; a malformed pattern is
// skipped with a diagnostic and the remaining patterns still apply.
type Parser struct {
	exclude []*regexp.Regexp
	logger  log.Logger
}

// NewParser creates a Parser with the given exclusion patterns, applied
// in order after the built-in inline marker.
func NewParser(excludePatterns []string) *Parser {
	return NewParserWithLogger(excludePatterns, log.Default())
}

// NewParserWithLogger is NewParser with an explicit diagnostic sink.
func NewParserWithLogger(excludePatterns []string, logger log.Logger) *Parser {
	p := &Parser{logger: logger}
	p.exclude = compilePatterns(excludePatterns, logger)
	return p
}

// Parse parses src into a File and computes its suppression set.
// Undecodable text or a tree containing syntax errors yields ErrMalformed
// and no data.
func (p *Parser) Parse(path string, src []byte) (*File, SuppressionSet, error) {
	if !utf8.Valid(src) {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrMalformed)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, src)
	if tree == nil {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrMalformed)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, ErrMalformed)
	}

	return &File{Path: path, Content: src, tree: tree}, p.Suppressed(src), nil
}

// ParseFile reads and parses the file at path.
func (p *Parser) ParseFile(path string) (*File, SuppressionSet, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return p.Parse(path, src)
}
