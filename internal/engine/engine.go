package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/metrics"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/value"
)

var (
	// ErrStaleVersion is returned when a reload carries a catalogue label
	// lower than the live one.
	ErrStaleVersion = errors.New("stale repository version")
	// ErrNotLoaded is returned by Build before the first Reload.
	ErrNotLoaded = errors.New("no repository loaded")
)

// Engine serializes repository reloads against builds.
type Engine struct {
	mu       sync.RWMutex
	repo     *registry.Repository
	universe value.TargetResolver
	version  uint64

	cache   *rescache.Cache
	metrics *metrics.Metrics
	opts    []builder.Option
}

// New creates an engine around cache. opts are applied to every builder the
// engine creates.
func New(cache *rescache.Cache, m *metrics.Metrics, opts ...builder.Option) *Engine {
	return &Engine{
		cache:   cache,
		version: cache.Current().Version(),
		metrics: m,
		opts:    opts,
	}
}

// Reload installs repo and universe together and invalidates the cache.
// universe serves builds whose request carries no targets; it may be nil.
func (e *Engine) Reload(ctx context.Context, repo *registry.Repository, universe value.TargetResolver) error {
	logger := ctxlog.FromContext(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repo != nil {
		current, next := e.repo.Version().Label, repo.Version().Label
		if current != nil && next != nil && next.LessThan(current) {
			err := fmt.Errorf("%w: %s is older than the live %s", ErrStaleVersion, next, current)
			e.metrics.ObserveReload(err, e.version)
			logger.Warn("Repository reload rejected.", "error", err)
			return err
		}
	}

	e.version++
	e.repo = repo
	e.universe = universe
	gen := e.cache.Invalidate(e.version)
	e.metrics.ObserveReload(nil, e.version)
	e.metrics.ObserveCache(gen)
	logger.Info("Repository loaded.", "version", e.version, "repository", repo.Version().String(), "functions", repo.Len())
	return nil
}

// Version returns the version token of the live repository. It is zero
// before the first reload.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Repository returns the live repository.
func (e *Engine) Repository() *registry.Repository {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.repo
}

// Build runs one build against a consistent snapshot of the repository,
// universe and cache. A request without targets uses the live universe.
func (e *Engine) Build(ctx context.Context, req builder.Request) (*builder.Result, error) {
	e.mu.RLock()
	repo, universe, gen := e.repo, e.universe, e.cache.Current()
	e.mu.RUnlock()
	if repo == nil {
		return nil, ErrNotLoaded
	}
	if req.Targets == nil {
		req.Targets = universe
	}

	opts := append([]builder.Option{builder.WithMetrics(e.metrics)}, e.opts...)
	res, err := builder.New(repo, gen, opts...).Build(ctx, req)
	e.metrics.ObserveCache(gen)
	return res, err
}
