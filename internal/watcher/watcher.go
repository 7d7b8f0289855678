// Package watcher watches the bibles directory with fsnotify and reports
// debounced per-version changes.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Event is a debounced change to one version.
type Event struct {
	Version string
	// Removed is set when no file of the version is left on disk.
	Removed bool
}

// Watcher watches a bibles directory and its split-version subdirectories.
// Bursts of file events for the same version collapse into one Event.
type Watcher struct {
	root     string
	onChange func(Event)
	debounce time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a version must be quiet before its Event fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. onChange is called once per
// debounced version change.
func NewWatcher(root string, onChange func(Event), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		onChange:    onChange,
		debounce:    defaultDebounce,
		logger:      zap.NewNop(),
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
// A missing root directory is created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.root); err != nil {
		_ = fw.Close()
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		_ = fw.Close()
		return err
	}
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			if err := fw.Add(filepath.Join(w.root, e.Name())); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", e.Name()), zap.Error(err))
			}
		}
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	if ev.Has(fsnotify.Create) && filepath.Dir(path) == w.root {
		if info, err := os.Stat(path); err == nil && info.IsDir() && !hidden(info.Name()) {
			// A split version copied in as a whole directory.
			if err := fw.Add(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
			if _, err := os.Stat(filepath.Join(path, "meta.json")); err == nil {
				w.schedule(info.Name())
			}
			return
		}
	}

	version, ok := VersionOf(w.root, path)
	if !ok {
		return
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.schedule(version)
	}
}

// VersionOf maps a path under root to the version it belongs to: abbr.json,
// abbr.json.xz and abbr.xml in root, or any .json file in root/abbr.
func VersionOf(root, path string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	switch len(parts) {
	case 1:
		name := parts[0]
		if hidden(name) || name == "index.json" {
			return "", false
		}
		for _, ext := range []string{".json.xz", ".json", ".xml"} {
			if strings.HasSuffix(name, ext) && len(name) > len(ext) {
				return strings.TrimSuffix(name, ext), true
			}
		}
	case 2:
		if !hidden(parts[0]) && strings.HasSuffix(parts[1], ".json") {
			return parts[0], true
		}
	}
	return "", false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// exists reports whether any file of version is still on disk.
func (w *Watcher) exists(version string) bool {
	for _, name := range []string{version + ".json", version + ".json.xz", version + ".xml", filepath.Join(version, "meta.json")} {
		if _, err := os.Stat(filepath.Join(w.root, name)); err == nil {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(version string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.debounceMap[version]; ok {
		t.Stop()
	}
	w.debounceMap[version] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, version)
		w.mu.Unlock()
		ev := Event{Version: version, Removed: !w.exists(version)}
		w.logger.Debug("watcher version changed (debounced)", zap.String("version", version), zap.Bool("removed", ev.Removed))
		if w.onChange != nil {
			w.onChange(ev)
		}
	})
}

// Stop stops the watcher and releases resources. Pending events are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for version, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, version)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
