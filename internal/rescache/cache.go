package rescache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/vk/valuegraph/internal/value"
)

// Stats are cumulative counters of one generation.
type Stats struct {
	Hits               uint64
	Misses             uint64
	Stores             uint64
	Waits              uint64
	DeclinedWaits      uint64
	RequirementsCalls  uint64
	RequirementsReused uint64
}

// Cache owns the current generation.
type Cache struct {
	mu      sync.RWMutex
	current *Generation
}

// New creates a cache whose first generation carries version.
func New(version uint64) *Cache {
	return &Cache{current: newGeneration(version)}
}

// Current returns the live generation.
func (c *Cache) Current() *Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Invalidate discards every entry by starting a new generation for version.
// Invalidating with the current version is a no-op. Builds holding the old
// generation keep using it until they finish.
func (c *Cache) Invalidate(version uint64) *Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.version == version {
		return c.current
	}
	c.current = newGeneration(version)
	return c.current
}

type requirementsResult struct {
	reqs []value.ValueRequirement
	err  error
}

// Generation is the cache content for one repository version.
type Generation struct {
	version uint64

	mu      sync.RWMutex
	entries map[string]*Entry

	reqMu sync.RWMutex
	reqs  map[string]requirementsResult
	group singleflight.Group

	flightMu sync.Mutex
	flights  map[string]*Flight

	hits, misses, stores, waits, declined atomic.Uint64
	reqCalls, reqReused                   atomic.Uint64
}

func newGeneration(version uint64) *Generation {
	return &Generation{
		version: version,
		entries: make(map[string]*Entry),
		reqs:    make(map[string]requirementsResult),
		flights: make(map[string]*Flight),
	}
}

// Version returns the version token of the generation.
func (g *Generation) Version() uint64 { return g.version }

// Get returns the stored entry for key.
func (g *Generation) Get(key string) (*Entry, bool) {
	g.mu.RLock()
	e, ok := g.entries[key]
	g.mu.RUnlock()
	if ok {
		g.hits.Add(1)
	} else {
		g.misses.Add(1)
	}
	return e, ok
}

// Put stores e unless an entry for its key exists, and returns the entry
// that is now canonical for the key.
func (g *Generation) Put(e *Entry) *Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.entries[e.Key]; ok {
		return existing
	}
	g.entries[e.Key] = e
	g.stores.Add(1)
	return e
}

// Len returns the number of stored entries.
func (g *Generation) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Requirements returns the memoized declared requirements for key, calling
// compute at most once per generation even under concurrent access. Errors
// are memoized too.
func (g *Generation) Requirements(key string, compute func() ([]value.ValueRequirement, error)) ([]value.ValueRequirement, error) {
	if r, ok := g.lookupRequirements(key); ok {
		g.reqReused.Add(1)
		return r.reqs, r.err
	}
	ran := false
	v, _, _ := g.group.Do(key, func() (any, error) {
		if r, ok := g.lookupRequirements(key); ok {
			return r, nil
		}
		ran = true
		g.reqCalls.Add(1)
		reqs, err := compute()
		r := requirementsResult{reqs: reqs, err: err}
		g.reqMu.Lock()
		g.reqs[key] = r
		g.reqMu.Unlock()
		return r, nil
	})
	if !ran {
		g.reqReused.Add(1)
	}
	r := v.(requirementsResult)
	return r.reqs, r.err
}

func (g *Generation) lookupRequirements(key string) (requirementsResult, bool) {
	g.reqMu.RLock()
	defer g.reqMu.RUnlock()
	r, ok := g.reqs[key]
	return r, ok
}

// Stats returns a snapshot of the counters.
func (g *Generation) Stats() Stats {
	return Stats{
		Hits:               g.hits.Load(),
		Misses:             g.misses.Load(),
		Stores:             g.stores.Load(),
		Waits:              g.waits.Load(),
		DeclinedWaits:      g.declined.Load(),
		RequirementsCalls:  g.reqCalls.Load(),
		RequirementsReused: g.reqReused.Load(),
	}
}
