// Package watch triggers a callback when any of a fixed set of files changes.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by rename-and-replace keep triggering events. Bursts of
// events are coalesced: a file is reported once it has been quiet for the
// debounce window.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must be quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives the settled paths, sorted, in one call per tick.
type Handler func(ctx context.Context, paths []string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Triggers      int
	Errors        int
	LastEventPath string
	LastEventType string
	LastEventTime time.Time
}

// Watcher watches a set of files and calls a Handler when they settle.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	files    map[string]struct{}
	dirs     []string
	handler  Handler
	logger   *zap.Logger
	pending  map[string]time.Time
	debounce time.Duration
	tick     time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. The polling tick is a fifth of it.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
			w.tick = d / 5
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher for files. Nothing is watched until Start.
func New(files []string, handler Handler, opts ...Option) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("watch: no files given")
	}
	if handler == nil {
		return nil, fmt.Errorf("watch: nil handler")
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		handler:  handler,
		logger:   zap.NewNop(),
		pending:  make(map[string]time.Time),
		debounce: DefaultDebounce,
		tick:     100 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	seen := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch: %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	sort.Strings(w.dirs)
	return w, nil
}

// Start adds the watches and begins the event loop in a goroutine.
// Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}

	w.fsw = fsw
	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit. Safe to call more than
// once, and after the context passed to Start is cancelled.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("closing watcher", zap.Error(err))
	}
	w.logger.Debug("watcher stopped")
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if _, ok := w.files[name]; !ok {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		// Remove and chmod: the file is gone or unchanged.
		return
	}

	w.logger.Debug("file event", zap.String("path", name), zap.String("type", eventType))

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventPath = name
	w.stats.LastEventType = eventType
	w.stats.LastEventTime = time.Now()
	w.pending[name] = time.Now()
	w.mu.Unlock()
}

// flush hands every path that has been quiet for the debounce window to the
// handler.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	if len(settled) > 0 {
		w.stats.Triggers++
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)
	w.handler(ctx, settled)
}
