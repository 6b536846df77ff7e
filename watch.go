package symdex

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce batches bursts of file events (editors often emit
// several per save) before they reach the engine.
const DefaultWatchDebounce = 200 * time.Millisecond

// maxPendingEvents forces a flush regardless of timing once the buffer holds
// this many paths, so a mass operation cannot grow it without bound.
const maxPendingEvents = 512

// maxDebounceFactor caps how long a continuous event stream (a large
// checkout, generated-file churn) can keep re-arming the debounce timer
// before buffered events are flushed anyway.
const maxDebounceFactor = 10

// Watcher feeds file-system events into an Engine: creates and changes are
// enqueued for indexing after the fast ignore filter, deletes remove the
// file from the store immediately, and ignore-file edits rebuild the fast
// filter and trigger a reconciliation pass.
type Watcher struct {
	engine   *Engine
	fs       *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	mu           sync.Mutex
	pending      map[string]fsnotify.Op
	timer        *time.Timer
	firstPending time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the event debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over the engine's workspace root.
func NewWatcher(e *Engine, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("symdex: create watcher: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		engine:   e,
		fs:       fsw,
		debounce: DefaultWatchDebounce,
		log:      e.log,
		pending:  make(map[string]fsnotify.Op),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds recursive directory watches and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.engine.Root()); err != nil {
		return fmt.Errorf("symdex: add watches: %w", err)
	}
	w.wg.Add(1)
	go w.processEvents()
	w.log.Debug("file watcher started", "root", w.engine.Root())
	return nil
}

// Close stops event processing and releases the underlying watcher. Events
// pending at shutdown are dropped; the index self-corrects on the next
// reconciliation pass.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

// addWatches walks root and watches every directory that survives the fast
// ignore filter. fsnotify watches are not recursive, so new directories are
// added as their create events arrive.
func (w *Watcher) addWatches(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.engine.fast.Excluded(path) {
			return filepath.SkipDir
		}
		if werr := w.fs.Add(path); werr != nil {
			w.log.Warn("adding watch failed", "path", path, "err", werr)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := canonicalPath(event.Name)

	if filepath.Base(path) == ".gitignore" {
		w.engine.fast.ReloadFromFile()
		if err := w.engine.RebuildIncremental(w.ctx); err != nil {
			w.log.Warn("reconcile after ignore-file change failed", "err", err)
		}
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.engine.fast.Excluded(path) {
				if werr := w.fs.Add(path); werr != nil {
					w.log.Warn("adding watch for new directory failed", "path", path, "err", werr)
				}
			}
			return
		}
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.buffer(path, fsnotify.Remove)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		// The fast filter discards obviously irrelevant events cheaply;
		// surviving paths are still re-validated before indexing.
		if w.engine.fast.Excluded(path) {
			return
		}
		w.buffer(path, event.Op)
	}
}

// buffer stores the latest event per path and (re)arms the flush timer. The
// timer alone would let a continuous stream postpone flushing forever, so the
// buffer also flushes once it grows past maxPendingEvents or once its oldest
// event has waited maxDebounceFactor debounce intervals.
func (w *Watcher) buffer(path string, op fsnotify.Op) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.firstPending = time.Now()
	}
	w.pending[path] = op
	if w.timer != nil {
		w.timer.Stop()
	}
	if len(w.pending) >= maxPendingEvents ||
		time.Since(w.firstPending) >= maxDebounceFactor*w.debounce {
		w.mu.Unlock()
		w.flush()
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

// flush hands accumulated events to the engine, removals first.
func (w *Watcher) flush() {
	w.mu.Lock()
	events := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	if len(events) == 0 || w.ctx.Err() != nil {
		return
	}

	for path, op := range events {
		if op&fsnotify.Remove != 0 {
			w.engine.FileDeleted(path)
		}
	}
	for path, op := range events {
		switch {
		case op&fsnotify.Remove != 0:
		case op&fsnotify.Create != 0:
			w.engine.FileCreated(path)
		default:
			w.engine.FileChanged(path)
		}
	}
}
