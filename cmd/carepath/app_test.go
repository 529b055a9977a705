package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/config"
)

// gitLibraryConfig commits testdata/modules/diabetes.yaml to a new
// repository and returns a configuration loading libraries from it.
func gitLibraryConfig(t *testing.T) *config.Config {
	t.Helper()

	data, err := os.ReadFile("testdata/modules/diabetes.yaml")
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "modules"), "diabetes.yaml", string(data))
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("modules/diabetes.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Commit("add diabetes module", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewDefaultConfig()
	cfg.Library.Git.Enabled = true
	cfg.Library.Git.Repository = dir
	cfg.Library.Git.Branch = "master"
	cfg.Library.Git.Path = "modules"
	cfg.Library.Git.Clone.LocalPath = filepath.Join(t.TempDir(), "clone")
	return cfg
}

func TestLoadLibraries(t *testing.T) {
	cfg := config.NewDefaultConfig()
	libs, err := loadLibraries(context.Background(), cfg, "testdata/modules", nil)
	if err != nil {
		t.Fatalf("loadLibraries() error = %v", err)
	}
	if libs.repo != nil {
		t.Error("loadLibraries() from a path set a repository")
	}
	if _, ok := libs.registry.Get("diabetes"); !ok {
		t.Errorf("registry missing diabetes, has %v", libs.registry.Names())
	}

	_, err = loadLibraries(context.Background(), cfg, "testdata/invalid", nil)
	var invalid *cli.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Errorf("loadLibraries(invalid) error = %v, want InvalidInputError", err)
	}
}

func TestLoadLibraries_Git(t *testing.T) {
	cfg := gitLibraryConfig(t)

	libs, err := loadLibraries(context.Background(), cfg, "", nil)
	if err != nil {
		t.Fatalf("loadLibraries() error = %v", err)
	}
	if libs.repo == nil {
		t.Fatal("loadLibraries() did not use the Git repository")
	}
	if libs.src.Path() != filepath.Join(cfg.Library.Git.Clone.LocalPath, "modules") {
		t.Errorf("source path = %q", libs.src.Path())
	}
	if _, ok := libs.registry.Get("diabetes"); !ok {
		t.Errorf("registry missing diabetes, has %v", libs.registry.Names())
	}

	// An explicit path wins over the repository.
	libs, err = loadLibraries(context.Background(), cfg, "testdata/modules", nil)
	if err != nil {
		t.Fatalf("loadLibraries(path) error = %v", err)
	}
	if libs.repo != nil {
		t.Error("loadLibraries(path) used the Git repository")
	}
}

func TestLoadLibraries_GitCloneFailure(t *testing.T) {
	cfg := gitLibraryConfig(t)
	cfg.Library.Git.Repository = filepath.Join(t.TempDir(), "missing")

	_, err := loadLibraries(context.Background(), cfg, "", nil)
	var cmdErr *cli.CommandError
	if !errors.As(err, &cmdErr) {
		t.Errorf("loadLibraries() error = %v, want CommandError", err)
	}
}

func TestServe_GitPolling(t *testing.T) {
	cfg := gitLibraryConfig(t)
	cfg.Library.Git.Poll.Interval = 10 * time.Millisecond

	libs, err := loadLibraries(context.Background(), cfg, "", nil)
	if err != nil {
		t.Fatalf("loadLibraries() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, "127.0.0.1:0", libs, newTestCollector(cfg), nil, discardLogger())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve() did not stop after cancellation")
	}
}
