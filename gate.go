package symdex

import "sync"

// Gate reflects the availability of the external analysis capability. The
// scheduler pauses while the gate reports unavailable and resumes draining
// when it becomes available again. A Gate is passed to the engine rather
// than held as package state so multiple engines can share one process.
type Gate interface {
	IsAvailable() bool
	// Subscribe registers fn to be invoked on availability transitions.
	// The returned function cancels the subscription.
	Subscribe(fn func(available bool)) (cancel func())
}

// ManualGate is a Gate driven by explicit Pause/Resume calls. It starts
// available.
type ManualGate struct {
	mu        sync.Mutex
	available bool
	nextID    int
	subs      map[int]func(bool)
}

// NewManualGate returns a gate in the available state.
func NewManualGate() *ManualGate {
	return &ManualGate{available: true, subs: make(map[int]func(bool))}
}

// IsAvailable reports the current availability.
func (g *ManualGate) IsAvailable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// Pause marks the capability unavailable and notifies subscribers.
func (g *ManualGate) Pause() {
	g.set(false)
}

// Resume marks the capability available and notifies subscribers.
func (g *ManualGate) Resume() {
	g.set(true)
}

func (g *ManualGate) set(available bool) {
	g.mu.Lock()
	if g.available == available {
		g.mu.Unlock()
		return
	}
	g.available = available
	fns := make([]func(bool), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(available)
	}
}

// Subscribe implements Gate.
func (g *ManualGate) Subscribe(fn func(available bool)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}
