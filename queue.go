package symdex

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/symdex/internal/store"
)

// ingestQueue is a deduplicating FIFO of pending file paths. The pending set
// gives O(1) membership checks so duplicate submissions are silently
// absorbed; at most one entry exists per path.
type ingestQueue struct {
	mu      sync.Mutex
	order   []string
	pending map[string]struct{}
}

func newIngestQueue() *ingestQueue {
	return &ingestQueue{pending: make(map[string]struct{})}
}

// Add appends path unless it is already pending. Reports whether the path
// was added.
func (q *ingestQueue) Add(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[path]; ok {
		return false
	}
	q.pending[path] = struct{}{}
	q.order = append(q.order, path)
	return true
}

// Take removes and returns up to n paths from the head of the queue.
func (q *ingestQueue) Take(n int) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.order) {
		n = len(q.order)
	}
	batch := q.order[:n:n]
	q.order = q.order[n:]
	for _, p := range batch {
		delete(q.pending, p)
	}
	return batch
}

// Len returns the number of pending paths.
func (q *ingestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Clear discards all pending paths and the dedup set.
func (q *ingestQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = nil
	q.pending = make(map[string]struct{})
}

// enqueue adds canonical paths to the queue, skipping paths that have hit
// the consecutive-failure cap. Returns how many were newly queued.
func (e *Engine) enqueue(paths []string) int {
	added := 0
	for _, p := range paths {
		e.mu.Lock()
		blocked := e.failures[p] >= maxFileFailures
		e.mu.Unlock()
		if blocked {
			continue
		}
		if e.queue.Add(p) {
			added++
		}
	}
	if added > 0 {
		e.mu.Lock()
		e.totalQueued += added
		e.mu.Unlock()
	}
	return added
}

// kick starts the drain loop unless one is already running or the engine is
// paused. The processing flag guarantees a single drain loop at a time.
func (e *Engine) kick() {
	e.mu.Lock()
	if e.closed || e.processing || e.gateClosed || e.rebuilding || e.queue.Len() == 0 {
		e.mu.Unlock()
		return
	}
	e.processing = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.drainLoop()
}

// kickOrFinish starts the drain loop, or emits the completion signals right
// away when there is nothing to drain. Callers that promised a completion
// event (reconciliation, full rebuild) use this instead of kick: every queued
// candidate may have been absorbed as a duplicate or parked by the failure
// cap, leaving the queue empty with no drain loop to report completion.
func (e *Engine) kickOrFinish() {
	e.mu.Lock()
	idle := !e.processing && e.queue.Len() == 0
	e.mu.Unlock()
	if idle {
		e.finishDrain()
		return
	}
	e.kick()
}

// drainLoop repeatedly removes a bounded batch, re-validates it against the
// authoritative ignore rules, extracts and persists each survivor in
// parallel, then yields for BatchDelay so interactive consumers are not
// starved. Pausing is cooperative: checked between batches, never mid-batch.
func (e *Engine) drainLoop() {
	defer e.wg.Done()
	defer e.endDrain()

	for {
		e.mu.Lock()
		paused := e.gateClosed || e.rebuilding || e.closed
		e.mu.Unlock()
		if paused || e.ctx.Err() != nil {
			return
		}

		batch := e.queue.Take(e.cfg.effectiveBatchSize())
		if len(batch) == 0 {
			e.finishDrain()
			return
		}

		e.processBatch(batch)

		// Filtered-out batch members still count toward progress.
		e.mu.Lock()
		e.processed += len(batch)
		pct := 0
		if e.totalQueued > 0 {
			pct = e.processed * 100 / e.totalQueued
		}
		e.mu.Unlock()
		e.events.emitProgress(pct)

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(e.cfg.BatchDelay):
		}
	}
}

// endDrain releases the drain slot and closes the gap it opens: an enqueue
// landing between the final empty Take and the flag reset sees processing
// still true and skips its kick, so the released slot must re-check the
// queue itself or that path would sit unscheduled until the next event.
func (e *Engine) endDrain() {
	e.mu.Lock()
	e.processing = false
	e.cond.Broadcast()
	e.mu.Unlock()
	e.kick()
}

// finishDrain emits the completion and 100%-progress signals and resets the
// progress counters for the next cycle.
func (e *Engine) finishDrain() {
	e.mu.Lock()
	e.totalQueued = 0
	e.processed = 0
	e.mu.Unlock()
	// Progress reaches 100 before completion fires, so a completion waiter
	// never observes a stale percentage.
	e.events.emitProgress(100)
	e.events.emitComplete()
	e.log.Debug("indexing complete")
}

// processBatch runs the authoritative ignore filter over the batch and
// indexes the survivors concurrently. Extraction is I/O-bound RPC work and
// each file's persistence is independently transactional, so no global lock
// is needed.
func (e *Engine) processBatch(batch []string) {
	survivors := e.filterBatch(e.ctx, batch)

	g, ctx := errgroup.WithContext(e.ctx)
	for _, path := range survivors {
		g.Go(func() error {
			e.indexOne(ctx, path)
			// Per-file failures are logged inside indexOne and must never
			// abort the batch or the drain loop.
			return nil
		})
	}
	_ = g.Wait()
}

// indexOne extracts and persists the symbols of a single file. Failure
// leaves the prior record (if any) untouched.
func (e *Engine) indexOne(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Vanished between discovery and processing, e.g. the delete step
		// of an atomic rewrite. Skip, not an error.
		e.log.Debug("file vanished before indexing", "path", path)
		return
	}

	symbols, err := e.provider.GetSymbols(ctx, path)
	if err != nil {
		e.log.Warn("symbol extraction failed", "path", path, "err", err)
		e.recordFailure(path)
		return
	}

	// Zero symbols is a valid outcome, distinct from failure: the file is
	// still recorded as indexed so reconciliation does not re-queue it.
	flat := Flatten(symbols)
	rows := make([]store.Symbol, len(flat))
	for i, fs := range flat {
		rows[i] = store.Symbol{
			Name:           fs.Name,
			Detail:         fs.Detail,
			Kind:           fs.Kind,
			Range:          spanFromRange(fs.Range),
			SelectionRange: spanFromRange(fs.SelectionRange),
			ContainerName:  fs.ContainerName,
		}
	}

	f := &store.File{
		Path:      path,
		MTime:     info.ModTime().UnixMilli(),
		IndexedAt: time.Now().UnixMilli(),
	}
	if err := e.store.ReplaceFile(f, rows); err != nil {
		e.log.Error("persisting symbols failed", "path", path, "err", err)
		e.recordFailure(path)
		e.selfHeal(err)
		return
	}
	e.clearFailure(path)
}

func spanFromRange(r Range) store.Span {
	return store.Span{
		StartLine: r.Start.Line,
		StartCol:  r.Start.Character,
		EndLine:   r.End.Line,
		EndCol:    r.End.Character,
	}
}

func (e *Engine) recordFailure(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[path]++
	if e.failures[path] == maxFileFailures {
		e.log.Warn("file failed repeatedly, parking until it changes", "path", path)
	}
}

func (e *Engine) clearFailure(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failures, path)
}
