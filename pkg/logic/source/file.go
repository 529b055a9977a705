package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/parser"
	"mercator-hq/carepath/pkg/logic/validator"
)

// Extensions are the file extensions recognized as library files.
var Extensions = []string{".json", ".yaml", ".yml"}

// FileSource loads condition libraries from files on disk.
type FileSource struct {
	path      string
	parser    *parser.Parser
	validator *validator.Validator
	logger    *slog.Logger
}

// NewFileSource creates a new file-based library source.
// The path can be either a single file or a directory. If it's a directory,
// every .json, .yaml and .yml file below it is loaded; hidden files and
// directories are skipped.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:      path,
		parser:    parser.NewParser(),
		validator: validator.NewValidator(parser.DefaultMaxDepth),
		logger:    logger.With("component", "logic.source"),
	}
}

// WithParser replaces the parser used to read library files.
func (s *FileSource) WithParser(p *parser.Parser) *FileSource {
	s.parser = p
	return s
}

// WithValidator replaces the validator run on every loaded library.
// A nil validator disables validation.
func (s *FileSource) WithValidator(v *validator.Validator) *FileSource {
	s.validator = v
	return s
}

// Path returns the configured file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// LoadInto loads every library and replaces the contents of registry with
// them, returning the number of libraries loaded. When loading fails the
// registry keeps its previous libraries.
func (s *FileSource) LoadInto(ctx context.Context, registry *Registry) (int, error) {
	libs, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := registry.Replace(libs); err != nil {
		return 0, err
	}
	return len(libs), nil
}

// Load loads every library from the configured path.
//
// All files are attempted. If any fails, the returned error joins one
// *LoadError per failed file and no libraries are returned. Two files
// declaring the same library name are also an error.
func (s *FileSource) Load(ctx context.Context) ([]*ast.Library, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = s.listFiles()
		if err != nil {
			return nil, err
		}
	}

	var (
		libs []*ast.Library
		errs []error
	)
	byName := make(map[string]string, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lib, err := s.loadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := byName[lib.Name]; dup {
			errs = append(errs, &LoadError{
				FilePath: path,
				Cause:    fmt.Errorf("library %q already declared in %s", lib.Name, prev),
			})
			continue
		}
		byName[lib.Name] = path
		libs = append(libs, lib)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s.logger.Info("loaded libraries from source",
		"path", s.path,
		"library_count", len(libs),
	)

	return libs, nil
}

// listFiles returns the library files below the source directory in
// lexical order.
func (s *FileSource) listFiles() ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != s.path && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !IsLibraryFile(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	sort.Strings(files)
	return files, nil
}

// loadFile parses and validates a single library file.
func (s *FileSource) loadFile(path string) (*ast.Library, error) {
	lib, err := s.parser.Parse(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Cause: err}
	}

	if s.validator != nil {
		if err := s.validator.Validate(lib); err != nil {
			return nil, &LoadError{FilePath: path, Cause: err}
		}
		for _, w := range s.validator.Warnings(lib) {
			s.logger.Warn("library condition is constant",
				"path", path,
				"library", lib.Name,
				"warning", w.Message,
			)
		}
	}

	s.logger.Debug("loaded library file",
		"path", path,
		"library", lib.Name,
		"condition_count", lib.Len(),
	)

	return lib, nil
}

// IsLibraryFile reports whether path has a library file extension.
func IsLibraryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range Extensions {
		if ext == valid {
			return true
		}
	}
	return false
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
