package scheduler

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Stats are cumulative dispatch counters.
type Stats struct {
	Dispatched uint64
	Inline     uint64
}

// Pool bounds the number of concurrently running tasks.
type Pool struct {
	size       int64
	sem        *semaphore.Weighted
	dispatched atomic.Uint64
	inline     atomic.Uint64
}

// New creates a pool with the given number of workers. A non-positive count
// defaults to GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{size: int64(workers), sem: semaphore.NewWeighted(int64(workers))}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return int(p.size) }

// Stats returns a snapshot of the dispatch counters.
func (p *Pool) Stats() Stats {
	return Stats{Dispatched: p.dispatched.Load(), Inline: p.inline.Load()}
}

// Group is a set of tasks whose first error cancels the others.
type Group struct {
	pool *Pool
	eg   *errgroup.Group
	ctx  context.Context
}

// Group starts a task group bound to ctx. Context returns the derived context
// tasks should observe.
func (p *Pool) Group(ctx context.Context) *Group {
	eg, gctx := errgroup.WithContext(ctx)
	return &Group{pool: p, eg: eg, ctx: gctx}
}

// Context returns the group's context; it is cancelled when a task fails.
func (g *Group) Context() context.Context { return g.ctx }

// Go waits for a free worker and runs fn on it. It returns the context error
// without running fn when the group is cancelled before a worker frees up.
func (g *Group) Go(fn func(ctx context.Context) error) error {
	if err := g.pool.sem.Acquire(g.ctx, 1); err != nil {
		return err
	}
	g.pool.dispatched.Add(1)
	g.eg.Go(func() error {
		defer g.pool.sem.Release(1)
		return fn(g.ctx)
	})
	return nil
}

// TryGo runs fn on a free worker, or inline when none is free.
func (g *Group) TryGo(fn func(ctx context.Context) error) {
	if g.pool.sem.TryAcquire(1) {
		g.pool.dispatched.Add(1)
		g.eg.Go(func() error {
			defer g.pool.sem.Release(1)
			return fn(g.ctx)
		})
		return
	}
	g.pool.inline.Add(1)
	if err := fn(g.ctx); err != nil {
		// Report the inline failure through the group so it cancels siblings.
		g.eg.Go(func() error { return err })
	}
}

// Wait blocks until every task finished and returns the first error.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
