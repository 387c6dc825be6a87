package rescache

import (
	"context"
)

// Flight is an in-progress resolution of one key.
type Flight struct {
	key    string
	parent *Flight
	done   chan struct{}
	result *Entry

	// Guarded by Generation.flightMu.
	children []*Flight
	waits    map[*Flight]int
	finished bool
}

// Key returns the requirement key being resolved.
func (f *Flight) Key() string { return f.key }

// Begin registers the caller as the resolver of key. enclosing is the flight
// the caller is computing inside of, or nil at the top level. If another
// flight for key is in progress it is returned with owned=false.
func (g *Generation) Begin(key string, enclosing *Flight) (f *Flight, owned bool) {
	g.flightMu.Lock()
	defer g.flightMu.Unlock()

	if existing, ok := g.flights[key]; ok {
		return existing, false
	}
	f = &Flight{key: key, parent: enclosing, done: make(chan struct{}), waits: make(map[*Flight]int)}
	if enclosing != nil && !enclosing.finished {
		enclosing.children = append(enclosing.children, f)
	}
	g.flights[key] = f
	return f, true
}

// Finish completes a flight started with Begin. A non-nil entry is stored
// and the canonical stored entry is handed to waiters; nil tells waiters to
// compute the key themselves.
func (g *Generation) Finish(f *Flight, e *Entry) *Entry {
	if e != nil {
		e = g.Put(e)
	}
	g.flightMu.Lock()
	f.result = e
	f.finished = true
	f.children = nil
	delete(g.flights, f.key)
	g.flightMu.Unlock()
	close(f.done)
	return e
}

// Wait blocks until f finishes and returns its stored entry. It returns
// ok=false without blocking when waiting from inside enclosing could
// deadlock, when f ended without a result, or when ctx ends first.
func (g *Generation) Wait(ctx context.Context, f *Flight, enclosing *Flight) (*Entry, bool) {
	g.flightMu.Lock()
	if f.finished {
		g.flightMu.Unlock()
		return f.result, f.result != nil
	}
	if enclosing != nil && reaches(f, enclosing) {
		g.flightMu.Unlock()
		g.declined.Add(1)
		return nil, false
	}
	if enclosing != nil {
		enclosing.waits[f]++
	}
	g.flightMu.Unlock()
	g.waits.Add(1)

	defer func() {
		if enclosing == nil {
			return
		}
		g.flightMu.Lock()
		if enclosing.waits[f]--; enclosing.waits[f] <= 0 {
			delete(enclosing.waits, f)
		}
		g.flightMu.Unlock()
	}()

	select {
	case <-f.done:
		return f.result, f.result != nil
	case <-ctx.Done():
		return nil, false
	}
}

// reaches reports whether target is reachable from start over "cannot
// finish before" edges: child flights and waits. Caller holds flightMu.
func reaches(start, target *Flight) bool {
	seen := make(map[*Flight]struct{})
	stack := []*Flight{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if _, ok := seen[n]; ok || n.finished {
			continue
		}
		seen[n] = struct{}{}
		stack = append(stack, n.children...)
		for w := range n.waits {
			stack = append(stack, w)
		}
	}
	return false
}

// InFlight returns the number of flights in progress.
func (g *Generation) InFlight() int {
	g.flightMu.Lock()
	defer g.flightMu.Unlock()
	return len(g.flights)
}
