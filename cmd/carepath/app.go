package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/logic/parser"
	"mercator-hq/carepath/pkg/logic/source"
	"mercator-hq/carepath/pkg/logic/source/git"
	"mercator-hq/carepath/pkg/logic/validator"
)

// newFileSource creates a library source honoring the configured limits.
func newFileSource(cfg *config.Config, path string, logger *slog.Logger) *source.FileSource {
	p := parser.NewParser().
		WithMaxDepth(cfg.Library.MaxDepth).
		WithMaxFileSize(cfg.Library.MaxFileSize)
	return source.NewFileSource(path, logger).
		WithParser(p).
		WithValidator(validator.NewValidator(cfg.Library.MaxDepth))
}

// librarySet is a loaded registry together with the source it was loaded
// from.
type librarySet struct {
	src      *source.FileSource
	registry *source.Registry

	// repo is set when the libraries come from a Git clone.
	repo *git.Repository
}

// loadLibraries loads every library below path. An empty path selects the
// Git repository when one is configured and the configured library path
// otherwise.
func loadLibraries(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) (*librarySet, error) {
	var repo *git.Repository
	if path == "" && cfg.Library.Git.Enabled {
		var err error
		if repo, err = git.NewRepository(cfg.Library.Git); err != nil {
			return nil, cli.NewCommandError("library", err)
		}
		if err := repo.Clone(ctx); err != nil {
			return nil, cli.NewCommandError("library", fmt.Errorf("%s: %w", cfg.Library.Git.Repository, err))
		}
		path = repo.LibraryPath()
	}
	if path == "" {
		path = cfg.Library.Path
	}

	src := newFileSource(cfg, path, logger)
	registry := source.NewRegistry()
	if _, err := src.LoadInto(ctx, registry); err != nil {
		return nil, &cli.InvalidInputError{Path: path, Err: err}
	}
	return &librarySet{src: src, registry: registry, repo: repo}, nil
}

// loadRegistry loads every library below path, or below the configured
// library location when path is empty.
func loadRegistry(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) (*source.FileSource, *source.Registry, error) {
	libs, err := loadLibraries(ctx, cfg, path, logger)
	if err != nil {
		return nil, nil, err
	}
	return libs.src, libs.registry, nil
}

// resolveLibrary returns name, or the only registered library when name is
// empty.
func resolveLibrary(registry *source.Registry, name string) (string, error) {
	if name != "" {
		if _, ok := registry.Get(name); !ok {
			return "", fmt.Errorf("library %q not found (loaded: %s)", name, strings.Join(registry.Names(), ", "))
		}
		return name, nil
	}

	names := registry.Names()
	switch len(names) {
	case 0:
		return "", fmt.Errorf("no libraries loaded")
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("several libraries loaded, select one with --module (loaded: %s)", strings.Join(names, ", "))
	}
}

// commandContext returns the command's context, or a background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
