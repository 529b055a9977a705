package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/logic/source"
)

const demoLibrary = `
name: demo
conditions:
  adult:
    condition_type: Age
    operator: ">="
    quantity: 18
    unit: years
`

const brokenLibrary = `
name: demo
conditions:
  adult:
    condition_type: Bogus
`

// createTestRepo creates a repository holding modules/demo.yaml.
func createTestRepo(t *testing.T) (*gogit.Repository, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFile(t, repo, dir, "modules/demo.yaml", demoLibrary)
	return repo, dir
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add %s: %v", name, err)
	}
	hash, err := worktree.Commit("update "+name, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func testConfig(t *testing.T, repository string) config.GitLibraryConfig {
	return config.GitLibraryConfig{
		Enabled:    true,
		Repository: repository,
		Branch:     "master", // go-git init creates "master"
		Path:       "modules",
		Auth:       config.GitAuthConfig{Type: "none"},
		Poll:       config.GitPollConfig{Enabled: true, Interval: time.Second, Timeout: 10 * time.Second},
		Clone:      config.GitCloneConfig{LocalPath: filepath.Join(t.TempDir(), "clone")},
	}
}

func clone(t *testing.T, cfg config.GitLibraryConfig) *Repository {
	t.Helper()
	r, err := NewRepository(cfg)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if err := r.Clone(context.Background()); err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	return r
}

func TestNewRepository(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.GitLibraryConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*config.GitLibraryConfig) {}},
		{name: "empty repository", mutate: func(c *config.GitLibraryConfig) { c.Repository = "" }, wantErr: true},
		{name: "empty branch", mutate: func(c *config.GitLibraryConfig) { c.Branch = "" }, wantErr: true},
		{name: "unknown auth", mutate: func(c *config.GitLibraryConfig) { c.Auth.Type = "kerberos" }, wantErr: true},
		{name: "token without token", mutate: func(c *config.GitLibraryConfig) { c.Auth.Type = "token" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "https://example.com/modules.git")
			tt.mutate(&cfg)
			_, err := NewRepository(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRepository() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRepository_Defaults(t *testing.T) {
	r, err := NewRepository(config.GitLibraryConfig{Repository: "https://example.com/m.git", Branch: "main", Path: "lib"})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if r.LocalPath() != config.DefaultGitLocalPath() {
		t.Errorf("LocalPath() = %q, want %q", r.LocalPath(), config.DefaultGitLocalPath())
	}
	if want := filepath.Join(config.DefaultGitLocalPath(), "lib"); r.LibraryPath() != want {
		t.Errorf("LibraryPath() = %q, want %q", r.LibraryPath(), want)
	}
}

func TestRepository_Clone(t *testing.T) {
	src, dir := createTestRepo(t)
	cfg := testConfig(t, dir)
	r := clone(t, cfg)

	if _, err := os.Stat(filepath.Join(r.LibraryPath(), "demo.yaml")); err != nil {
		t.Errorf("cloned library file missing: %v", err)
	}

	head, err := src.Head()
	if err != nil {
		t.Fatal(err)
	}
	commit, err := r.CurrentCommit()
	if err != nil {
		t.Fatalf("CurrentCommit() error = %v", err)
	}
	if commit.SHA != head.Hash().String() {
		t.Errorf("CurrentCommit().SHA = %s, want %s", commit.SHA, head.Hash())
	}
	if commit.Author != "Test User" || commit.Branch != "master" {
		t.Errorf("CurrentCommit() = %+v", commit)
	}

	// A second Clone opens the existing checkout.
	again := clone(t, cfg)
	if c, err := again.CurrentCommit(); err != nil || c.SHA != commit.SHA {
		t.Errorf("reopened CurrentCommit() = %v, %v", c, err)
	}
}

func TestRepository_CloneFailure(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	r, err := NewRepository(cfg)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	if err := r.Clone(context.Background()); err == nil {
		t.Error("Clone() of a missing repository succeeded")
	}
}

func TestRepository_NotCloned(t *testing.T) {
	r, err := NewRepository(testConfig(t, "https://example.com/modules.git"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Pull(context.Background()); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Pull() error = %v, want ErrNotCloned", err)
	}
	if _, err := r.CurrentCommit(); !errors.Is(err, ErrNotCloned) {
		t.Errorf("CurrentCommit() error = %v, want ErrNotCloned", err)
	}
	if _, err := r.ChangedFiles("a", "b"); !errors.Is(err, ErrNotCloned) {
		t.Errorf("ChangedFiles() error = %v, want ErrNotCloned", err)
	}
}

func TestRepository_Pull(t *testing.T) {
	src, dir := createTestRepo(t)
	r := clone(t, testConfig(t, dir))
	ctx := context.Background()

	result, err := r.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if result.HadChanges {
		t.Errorf("Pull() without new commits reported changes: %+v", result)
	}

	sha := commitFile(t, src, dir, "modules/extra.yaml", `{"name": "extra", "conditions": {"never": {"condition_type": "False"}}}`)

	result, err = r.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !result.HadChanges || result.ToSHA != sha {
		t.Errorf("Pull() = %+v, want changes up to %s", result, sha)
	}
	if !slices.Equal(result.ChangedFiles, []string{"modules/extra.yaml"}) {
		t.Errorf("ChangedFiles = %v, want [modules/extra.yaml]", result.ChangedFiles)
	}
	if _, err := os.Stat(filepath.Join(r.LibraryPath(), "extra.yaml")); err != nil {
		t.Errorf("pulled library file missing: %v", err)
	}
}

func TestPoller_Poll(t *testing.T) {
	src, dir := createTestRepo(t)
	r := clone(t, testConfig(t, dir))
	ctx := context.Background()

	registry := source.NewRegistry()
	fs := source.NewFileSource(r.LibraryPath(), nil)
	if _, err := fs.LoadInto(ctx, registry); err != nil {
		t.Fatalf("initial load error = %v", err)
	}

	var reloads []error
	poller, err := NewPoller(r, time.Second, func(ctx context.Context) error {
		_, err := fs.LoadInto(ctx, registry)
		return err
	}, nil)
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}
	poller.OnReload(func(err error) { reloads = append(reloads, err) })

	initial, _ := r.CurrentCommit()

	// No new commits.
	if reloaded, err := poller.Poll(ctx); err != nil || reloaded {
		t.Fatalf("Poll() = %v, %v; want false, nil", reloaded, err)
	}
	if poller.LoadedCommit() != initial.SHA {
		t.Errorf("LoadedCommit() = %s, want %s", poller.LoadedCommit(), initial.SHA)
	}

	// A commit outside the library path is skipped.
	readme := commitFile(t, src, dir, "README.md", "care modules")
	if reloaded, err := poller.Poll(ctx); err != nil || reloaded {
		t.Fatalf("Poll() after README commit = %v, %v; want false, nil", reloaded, err)
	}
	if poller.LoadedCommit() != readme {
		t.Errorf("LoadedCommit() = %s, want %s", poller.LoadedCommit(), readme)
	}

	// A new library is loaded.
	extra := commitFile(t, src, dir, "modules/extra.yaml", `{"name": "extra", "conditions": {"never": {"condition_type": "False"}}}`)
	if reloaded, err := poller.Poll(ctx); err != nil || !reloaded {
		t.Fatalf("Poll() after library commit = %v, %v; want true, nil", reloaded, err)
	}
	if registry.Count() != 2 {
		t.Errorf("registry has %d libraries, want 2", registry.Count())
	}

	// A broken library is rejected and the registry keeps its libraries.
	commitFile(t, src, dir, "modules/demo.yaml", brokenLibrary)
	reloaded, err := poller.Poll(ctx)
	if err == nil || reloaded {
		t.Fatalf("Poll() after broken commit = %v, %v; want false, error", reloaded, err)
	}
	if poller.LoadedCommit() != extra {
		t.Errorf("LoadedCommit() = %s, want %s", poller.LoadedCommit(), extra)
	}
	if _, ok := registry.Get("demo"); !ok || registry.Count() != 2 {
		t.Errorf("registry lost libraries after failed reload: %v", registry.Names())
	}

	if len(reloads) != 2 || reloads[0] != nil || reloads[1] == nil {
		t.Errorf("OnReload results = %v, want [nil, error]", reloads)
	}

	m := poller.Metrics()
	if m.Polls != 4 || m.SkippedCommits != 1 || m.SuccessfulReloads != 1 || m.FailedReloads != 1 {
		t.Errorf("Metrics() = %+v", m)
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	_, dir := createTestRepo(t)
	r := clone(t, testConfig(t, dir))

	poller, err := NewPoller(r, 10*time.Millisecond, func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}
	if poller.Metrics().Polls == 0 {
		t.Error("Run() never polled")
	}
}

func TestPoller_RunWithoutClone(t *testing.T) {
	r, err := NewRepository(testConfig(t, "https://example.com/modules.git"))
	if err != nil {
		t.Fatal(err)
	}
	poller, err := NewPoller(r, time.Second, func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := poller.Run(context.Background()); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Run() error = %v, want ErrNotCloned", err)
	}
}

func TestNewPoller_Invalid(t *testing.T) {
	r, err := NewRepository(testConfig(t, "https://example.com/modules.git"))
	if err != nil {
		t.Fatal(err)
	}
	noop := func(context.Context) error { return nil }

	if _, err := NewPoller(nil, time.Second, noop, nil); err == nil {
		t.Error("NewPoller(nil repo) succeeded")
	}
	if _, err := NewPoller(r, time.Second, nil, nil); err == nil {
		t.Error("NewPoller(nil reload) succeeded")
	}
	if _, err := NewPoller(r, 0, noop, nil); err == nil {
		t.Error("NewPoller(zero interval) succeeded")
	}
}

func TestPoller_TouchesLibraries(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		files []string
		want  bool
	}{
		{name: "yaml in path", path: "modules", files: []string{"modules/a.yaml"}, want: true},
		{name: "json nested in path", path: "modules", files: []string{"modules/x/a.json"}, want: true},
		{name: "yaml outside path", path: "modules", files: []string{"other/a.yaml"}},
		{name: "prefix is not a directory", path: "modules", files: []string{"modules-old/a.yaml"}},
		{name: "non-library file", path: "modules", files: []string{"modules/README.md"}},
		{name: "root path", path: "", files: []string{"README.md", "a.yml"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "https://example.com/modules.git")
			cfg.Path = tt.path
			r, err := NewRepository(cfg)
			if err != nil {
				t.Fatal(err)
			}
			p, err := NewPoller(r, time.Second, func(context.Context) error { return nil }, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := p.touchesLibraries(tt.files); got != tt.want {
				t.Errorf("touchesLibraries(%v) = %v, want %v", tt.files, got, tt.want)
			}
		})
	}
}

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{name: "none", cfg: config.GitAuthConfig{Type: "none"}, wantType: "none"},
		{name: "empty is none", cfg: config.GitAuthConfig{}, wantType: "none"},
		{name: "token", cfg: config.GitAuthConfig{Type: "token", Token: "secret"}, wantType: "token"},
		{name: "ssh", cfg: config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/keys/id"}, wantType: "ssh"},
		{name: "token missing", cfg: config.GitAuthConfig{Type: "token"}, wantErr: true},
		{name: "ssh missing", cfg: config.GitAuthConfig{Type: "ssh"}, wantErr: true},
		{name: "unknown", cfg: config.GitAuthConfig{Type: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", p.Type(), tt.wantType)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	if m, err := (NoAuth{}).Auth(); err != nil || m != nil {
		t.Errorf("NoAuth.Auth() = %v, %v; want nil, nil", m, err)
	}

	m, err := NewTokenAuth("secret").Auth()
	if err != nil || m == nil {
		t.Errorf("TokenAuth.Auth() = %v, %v", m, err)
	}
	if _, err := NewTokenAuth("").Auth(); err == nil {
		t.Error("TokenAuth.Auth() with empty token succeeded")
	}

	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSSHAuth(key, "").Auth(); err == nil || !strings.Contains(err.Error(), "too open") {
		t.Errorf("SSHAuth.Auth() with 0644 key error = %v, want permissions error", err)
	}
	if _, err := NewSSHAuth(filepath.Join(t.TempDir(), "missing"), "").Auth(); err == nil {
		t.Error("SSHAuth.Auth() with missing key succeeded")
	}
}
