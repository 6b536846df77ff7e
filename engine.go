package symdex

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jward/symdex/internal/store"
)

// Engine coordinates the indexing pipeline for one workspace: file
// discovery, the ingestion queue, symbol extraction via the provider, the
// persistent store, and search. One logical engine instance exists per
// workspace; all store writes are serialized through its own operations.
type Engine struct {
	store    *store.Store
	provider SymbolProvider
	gate     Gate
	lister   FileLister
	cfg      Config
	log      *slog.Logger

	root   string
	queue  *ingestQueue
	events *eventBus
	fast   *FastFilter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	cond        *sync.Cond
	processing  bool
	gateClosed  bool
	rebuilding  bool
	totalQueued int
	processed   int
	failures    map[string]int
	closed      bool

	healing   atomic.Bool
	unsubGate func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default scheduler and discovery configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.BatchDelay <= 0 {
			cfg.BatchDelay = DefaultBatchDelay
		}
		e.cfg = cfg
	}
}

// WithGate wires the readiness signal of the external analysis capability.
// The engine pauses draining while the gate reports unavailable.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithLister replaces the file discovery backend (default: git ls-files
// with a filesystem-walk fallback).
func WithLister(l FileLister) Option {
	return func(e *Engine) { e.lister = l }
}

// New creates an Engine for the workspace rooted at root, backed by a
// SQLite store at dbPath and the given symbol provider.
func New(dbPath, root string, provider SymbolProvider, opts ...Option) (*Engine, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("symdex: open store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    s,
		provider: provider,
		gate:     NewManualGate(),
		lister:   GitLister{},
		cfg:      DefaultConfig(),
		log:      slog.Default(),
		root:     canonicalPath(root),
		queue:    newIngestQueue(),
		events:   newEventBus(),
		ctx:      ctx,
		cancel:   cancel,
		failures: make(map[string]int),
	}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}

	e.fast = NewFastFilter(e.root)
	e.fast.ReloadFromFile()

	e.gateClosed = !e.gate.IsAvailable()
	e.unsubGate = e.gate.Subscribe(func(available bool) {
		e.mu.Lock()
		e.gateClosed = !available
		e.mu.Unlock()
		if available {
			e.kick()
		}
	})

	return e, nil
}

// Close stops the drain loop, detaches from the gate, and closes the store
// so the write-ahead log is merged.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	if e.unsubGate != nil {
		e.unsubGate()
	}
	return e.store.Close()
}

// Root returns the canonical workspace root.
func (e *Engine) Root() string {
	return e.root
}

// SearchResult is a flattened symbol joined with its file path.
type SearchResult struct {
	Name           string
	Detail         string
	Kind           int
	Range          Range
	SelectionRange Range
	ContainerName  string
	Path           string
}

// Search runs a multi-keyword substring query over symbol and container
// names, returning one page of deterministically ordered results. Callers
// page by issuing successive calls with increasing offsets.
func (e *Engine) Search(query string, limit, offset int) ([]SearchResult, error) {
	rows, err := e.store.Search(query, limit, offset)
	if err != nil {
		e.selfHeal(err)
		return nil, fmt.Errorf("symdex: search: %w", err)
	}
	results := make([]SearchResult, len(rows))
	for i, r := range rows {
		results[i] = SearchResult{
			Name:           r.Name,
			Detail:         r.Detail,
			Kind:           r.Kind,
			Range:          rangeFromSpan(r.Range),
			SelectionRange: rangeFromSpan(r.SelectionRange),
			ContainerName:  r.ContainerName,
			Path:           r.Path,
		}
	}
	return results, nil
}

func rangeFromSpan(s store.Span) Range {
	return Range{
		Start: Position{Line: s.StartLine, Character: s.StartCol},
		End:   Position{Line: s.EndLine, Character: s.EndCol},
	}
}

// OnProgress registers fn to receive batch progress percentages (0-100).
// The returned function unsubscribes.
func (e *Engine) OnProgress(fn func(percent int)) (cancel func()) {
	return e.events.onProgress(fn)
}

// OnIndexingComplete registers fn to be invoked when the queue drains.
// The returned function unsubscribes.
func (e *Engine) OnIndexingComplete(fn func()) (cancel func()) {
	return e.events.onComplete(fn)
}

// Stats returns the number of indexed files and symbols.
func (e *Engine) Stats() (files, symbols int64, err error) {
	return e.store.Counts()
}

// FileCreated handles a watcher create event: the path is enqueued for
// indexing unless the fast ignore filter discards it.
func (e *Engine) FileCreated(path string) {
	e.FileChanged(path)
}

// FileChanged handles a watcher change event. A changed file gets a fresh
// failure budget since its content differs from whatever failed before.
func (e *Engine) FileChanged(path string) {
	cp := canonicalPath(path)
	if e.fast.Excluded(cp) {
		return
	}
	e.clearFailure(cp)
	if e.enqueue([]string{cp}) > 0 {
		e.kick()
	}
}

// FileDeleted handles a watcher delete event: the file and all of its
// symbols are removed immediately, without queueing.
func (e *Engine) FileDeleted(path string) {
	cp := canonicalPath(path)
	if err := e.store.DeleteFile(cp); err != nil {
		e.log.Error("deleting file from index failed", "path", cp, "err", err)
		e.selfHeal(err)
	}
}

// RebuildFull supersedes all pending state: it pauses the scheduler, lets
// any in-flight batch finish, discards the queue and counters, recreates the
// store from scratch, re-discovers the workspace, and restarts draining.
func (e *Engine) RebuildFull(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("symdex: engine closed")
	}
	e.rebuilding = true
	for e.processing {
		e.cond.Wait()
	}
	e.totalQueued = 0
	e.processed = 0
	e.failures = make(map[string]int)
	e.mu.Unlock()

	e.queue.Clear()
	err := e.store.Rebuild()

	e.mu.Lock()
	e.rebuilding = false
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("symdex: rebuild store: %w", err)
	}

	e.enqueue(e.discover(ctx))
	e.kickOrFinish()
	return nil
}

// selfHeal triggers a destructive store rebuild when err indicates SQLite
// corruption. At most one heal runs at a time; other errors are ignored.
func (e *Engine) selfHeal(err error) {
	if !store.IsCorrupt(err) {
		return
	}
	if !e.healing.CompareAndSwap(false, true) {
		return
	}
	e.log.Error("store corruption detected, rebuilding index from scratch", "err", err)
	go func() {
		defer e.healing.Store(false)
		if rerr := e.RebuildFull(e.ctx); rerr != nil {
			e.log.Error("corruption rebuild failed", "err", rerr)
		}
	}()
}

// canonicalPath normalizes a path so watcher events and discovery results
// never produce duplicate entries for the same file: absolute, cleaned, and
// with the drive letter lowercased on Windows.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if runtime.GOOS == "windows" && len(abs) >= 2 && abs[1] == ':' {
		abs = strings.ToLower(abs[:1]) + abs[1:]
	}
	return abs
}
