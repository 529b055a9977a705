package parser

import (
	"fmt"
	"os"

	"mercator-hq/carepath/pkg/logic/ast"
	lerrors "mercator-hq/carepath/pkg/logic/errors"
)

const (
	// DefaultMaxFileSize is the largest library file accepted.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultMaxDepth is the deepest condition nesting accepted.
	DefaultMaxDepth = 32
)

// Parser loads condition libraries from YAML or JSON module descriptions.
type Parser struct {
	maxFileSize int64
	maxDepth    int
}

// NewParser creates a parser with default limits.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: DefaultMaxFileSize,
		maxDepth:    DefaultMaxDepth,
	}
}

// WithMaxFileSize sets the maximum file size in bytes.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum condition nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// Parse loads the library at path. Structural problems are returned
// together as an *errors.ErrorList with source context attached.
func (p *Parser) Parse(path string) (*ast.Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &lerrors.Error{
			Type:     lerrors.ErrorTypeIO,
			Message:  fmt.Sprintf("failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &lerrors.Error{
			Type:     lerrors.ErrorTypeLimit,
			Message:  fmt.Sprintf("file size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	root, err := readYAMLFile(path)
	if err != nil {
		return nil, syntaxError(path, err)
	}

	b := newBuilder(path, p.maxDepth)
	lib := b.buildLibrary(root)
	if b.errors.HasErrors() {
		b.errors.AddContext()
		return nil, b.errors
	}
	return lib, nil
}

// ParseBytes loads a library from memory. sourcePath is used for locations
// and as the default library name.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Library, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &lerrors.Error{
			Type:     lerrors.ErrorTypeLimit,
			Message:  fmt.Sprintf("data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	root, err := parseYAMLBytes(data)
	if err != nil {
		return nil, syntaxError(sourcePath, err)
	}

	b := newBuilder(sourcePath, p.maxDepth)
	lib := b.buildLibrary(root)
	if err := b.errors.ToError(); err != nil {
		return nil, err
	}
	return lib, nil
}

// ParseCondition builds a single condition from a document holding one
// condition mapping.
func (p *Parser) ParseCondition(data []byte, sourcePath string) (ast.Node, error) {
	root, err := parseYAMLBytes(data)
	if err != nil {
		return nil, syntaxError(sourcePath, err)
	}

	b := newBuilder(sourcePath, p.maxDepth)
	node := b.buildCondition(document(root), 1)
	if err := b.errors.ToError(); err != nil {
		return nil, err
	}
	return node, nil
}

func syntaxError(path string, err error) *lerrors.Error {
	return &lerrors.Error{
		Type:       lerrors.ErrorTypeSyntax,
		Message:    fmt.Sprintf("YAML parsing failed: %v", err),
		Location:   ast.Location{File: path, Line: 1, Column: 1},
		Suggestion: "Check YAML syntax (indentation, colons, quotes) or JSON syntax (commas, braces)",
	}
}
