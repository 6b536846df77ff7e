package symdex

import "sync"

// eventBus is a small observer registry for indexing progress and
// completion. Subscriptions return an unsubscribe handle so callers can
// detach before the engine is torn down.
type eventBus struct {
	mu       sync.Mutex
	nextID   int
	progress map[int]func(percent int)
	complete map[int]func()
}

func newEventBus() *eventBus {
	return &eventBus{
		progress: make(map[int]func(int)),
		complete: make(map[int]func()),
	}
}

func (b *eventBus) onProgress(fn func(percent int)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.progress[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.progress, id)
	}
}

func (b *eventBus) onComplete(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.complete[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.complete, id)
	}
}

func (b *eventBus) emitProgress(percent int) {
	for _, fn := range b.progressSnapshot() {
		fn(percent)
	}
}

func (b *eventBus) emitComplete() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.complete))
	for _, fn := range b.complete {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *eventBus) progressSnapshot() []func(int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fns := make([]func(int), 0, len(b.progress))
	for _, fn := range b.progress {
		fns = append(fns, fn)
	}
	return fns
}
