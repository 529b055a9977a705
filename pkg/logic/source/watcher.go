package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the library watcher.
type WatcherConfig struct {
	// DebounceInterval is the quiet period after the last file event
	// before a reload runs (default: 100ms)
	DebounceInterval time.Duration

	// SkipHidden controls whether events on hidden files are ignored
	SkipHidden bool
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceInterval: 100 * time.Millisecond,
		SkipHidden:       true,
	}
}

// Watcher reloads a registry from a file source when library files change.
type Watcher struct {
	source   *FileSource
	registry *Registry
	config   WatcherConfig
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	debounce *Debouncer

	mu       sync.Mutex
	running  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	// onReload, when set, is called after every reload attempt.
	onReload func(error)
}

// NewWatcher creates a watcher that reloads registry from src.
func NewWatcher(config WatcherConfig, src *FileSource, registry *Registry, logger *slog.Logger) (*Watcher, error) {
	if src == nil || registry == nil {
		return nil, fmt.Errorf("watcher requires a source and a registry")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultWatcherConfig().DebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		source:   src,
		registry: registry,
		config:   config,
		logger:   logger.With("component", "logic.watcher"),
		watcher:  fsw,
		debounce: NewDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// OnReload registers a callback run after every reload with its result.
// It must be called before Watch.
func (w *Watcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Reload loads the source and replaces the registry contents. When loading
// fails the registry keeps its previous libraries.
func (w *Watcher) Reload(ctx context.Context) error {
	n, err := w.source.LoadInto(ctx, w.registry)
	if err != nil {
		return err
	}

	w.logger.Info("libraries reloaded",
		"library_count", n,
		"version", w.registry.Version(),
	)
	return nil
}

// Watch watches the source path until ctx is cancelled or Stop is called.
// It blocks; reload failures are logged and do not stop the watcher.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.addPath(w.source.Path()); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.logger.Info("library watcher started",
		"path", w.source.Path(),
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("library watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("library watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			w.logger.Debug("library file event",
				"path", event.Name,
				"op", event.Op.String(),
			)

			// New subdirectories need their own watch.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addDirectory(event.Name)
				}
			}

			w.debounce.Trigger(func() {
				err := w.Reload(ctx)
				if err != nil {
					w.logger.Error("library reload failed", "error", err)
				}
				if w.onReload != nil {
					w.onReload(err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("library watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases the fsnotify handle. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)

		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if running {
			<-w.doneCh
		}

		w.debounce.Stop()
		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDirectory(path)
	}
	// Editors replace files by rename, so the parent directory is watched
	// and events are filtered by name.
	return w.watcher.Add(filepath.Dir(path))
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.config.SkipHidden && path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// shouldProcessEvent determines if an event should trigger a reload.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.config.SkipHidden && isHidden(event.Name) {
		return false
	}

	root := w.source.Path()
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Clean(event.Name) == filepath.Clean(root)
	}

	if IsLibraryFile(event.Name) {
		return true
	}
	// Directory creation or removal may add or drop library files.
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		info, err := os.Stat(event.Name)
		return err != nil || info.IsDir()
	}
	return false
}

// Debouncer collects rapid events and runs the latest callback only after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback to run after the debounce interval, replacing
// any callback still pending.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
