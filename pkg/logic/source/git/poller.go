package git

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"mercator-hq/carepath/pkg/logic/source"
)

// ReloadFunc reloads the libraries from the clone.
type ReloadFunc func(ctx context.Context) error

// PollerMetrics counts poller activity.
type PollerMetrics struct {
	Polls             int64
	FailedPulls       int64
	SuccessfulReloads int64
	FailedReloads     int64
	SkippedCommits    int64
	LastReload        time.Time
}

// Poller pulls a repository on an interval and reloads libraries when a
// new commit changes library files.
type Poller struct {
	repo     *Repository
	interval time.Duration
	reload   ReloadFunc
	logger   *slog.Logger
	onReload func(error)

	mu        sync.Mutex
	running   bool
	loadedSHA string
	metrics   PollerMetrics
}

// NewPoller creates a poller for repo. The repository must be cloned
// before Run or Poll is called.
func NewPoller(repo *Repository, interval time.Duration, reload ReloadFunc, logger *slog.Logger) (*Poller, error) {
	if repo == nil || reload == nil {
		return nil, fmt.Errorf("poller requires a repository and a reload function")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		repo:     repo,
		interval: interval,
		reload:   reload,
		logger:   logger.With("component", "logic.git", "branch", repo.Branch()),
	}, nil
}

// OnReload registers a callback run after every reload attempt with its
// result. It must be called before Run.
func (p *Poller) OnReload(fn func(error)) {
	p.onReload = fn
}

// Run polls until ctx is cancelled. Poll failures are logged and do not
// stop the poller.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	if err := p.init(); err != nil {
		return err
	}

	p.logger.Info("polling library repository",
		"interval", p.interval,
		"commit", short(p.LoadedCommit()),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("library repository polling stopped")
			return nil
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				p.logger.Error("library repository poll failed", "error", err)
			}
		}
	}
}

// Poll pulls once and reloads when library files changed. It returns true
// when a reload succeeded.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	if err := p.init(); err != nil {
		return false, err
	}

	p.mu.Lock()
	p.metrics.Polls++
	p.mu.Unlock()

	result, err := p.repo.Pull(ctx)
	if err != nil {
		p.mu.Lock()
		p.metrics.FailedPulls++
		p.mu.Unlock()
		return false, err
	}
	if !result.HadChanges {
		return false, nil
	}

	if !p.touchesLibraries(result.ChangedFiles) {
		p.mu.Lock()
		p.metrics.SkippedCommits++
		p.loadedSHA = result.ToSHA
		p.mu.Unlock()
		p.logger.Debug("commit does not change libraries",
			"commit", short(result.ToSHA),
			"changed_files", len(result.ChangedFiles),
		)
		return false, nil
	}

	err = p.reload(ctx)
	if p.onReload != nil {
		p.onReload(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.metrics.FailedReloads++
		p.logger.Error("libraries from new commit failed to load, keeping previous libraries",
			"error", err,
			"commit", short(result.ToSHA),
			"loaded_commit", short(p.loadedSHA),
		)
		return false, fmt.Errorf("failed to reload libraries at %s: %w", short(result.ToSHA), err)
	}

	p.logger.Info("libraries reloaded from repository",
		"from", short(p.loadedSHA),
		"to", short(result.ToSHA),
	)
	p.loadedSHA = result.ToSHA
	p.metrics.SuccessfulReloads++
	p.metrics.LastReload = time.Now()
	return true, nil
}

// LoadedCommit returns the commit the registry's libraries were loaded from.
func (p *Poller) LoadedCommit() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadedSHA
}

// Metrics returns a copy of the poller counters.
func (p *Poller) Metrics() PollerMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

func (p *Poller) init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loadedSHA != "" {
		return nil
	}
	commit, err := p.repo.CurrentCommit()
	if err != nil {
		return fmt.Errorf("failed to get initial commit: %w", err)
	}
	p.loadedSHA = commit.SHA
	return nil
}

// touchesLibraries reports whether any changed file is a library file
// below the configured library path.
func (p *Poller) touchesLibraries(files []string) bool {
	prefix := filepath.ToSlash(filepath.Clean(p.repo.config.Path))
	for _, file := range files {
		if prefix != "." && file != prefix && !strings.HasPrefix(file, prefix+"/") {
			continue
		}
		if slices.Contains(source.Extensions, filepath.Ext(file)) {
			return true
		}
	}
	return false
}

func short(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
