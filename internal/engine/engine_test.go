package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/metrics"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/testutil"
	"github.com/vk/valuegraph/internal/value"
)

var swap = value.MustParseTargetSpec("SECURITY:SEC~SWAP1")

func repository(t *testing.T, label string, fns ...*testutil.Func) *registry.Repository {
	t.Helper()
	r := registry.New()
	for _, fn := range fns {
		r.MustRegister(fn, registry.Options{})
	}
	repo, err := r.Snapshot(label)
	require.NoError(t, err)
	return repo
}

func request() builder.Request {
	return builder.Request{
		CalculationConfiguration: "Default",
		Requirements:             []value.ValueRequirement{value.NewRequirement("PV", swap, value.ValueProperties{})},
		Targets:                  testutil.NewUniverse(),
	}
}

func TestBuild_BeforeReload(t *testing.T) {
	e := New(rescache.New(0), nil)
	_, err := e.Build(context.Background(), request())
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Zero(t, e.Version())
}

func TestReload_InvalidatesCache(t *testing.T) {
	cache := rescache.New(0)
	e := New(cache, metrics.New())
	ctx := context.Background()

	require.NoError(t, e.Reload(ctx, repository(t, "1.0.0", testutil.NewFunc("PVFn", value.TargetSecurity, "PV")), nil))
	assert.Equal(t, uint64(1), e.Version())

	res, err := e.Build(ctx, request())
	require.NoError(t, err)
	spec, ok := res.Graph.Output(request().Requirements[0])
	require.True(t, ok)
	assert.Equal(t, "PVFn", spec.FunctionID())
	assert.Positive(t, cache.Current().Len())

	require.NoError(t, e.Reload(ctx, repository(t, "1.1.0", testutil.NewFunc("BetterPV", value.TargetSecurity, "PV")), nil))
	assert.Equal(t, uint64(2), e.Version())
	assert.Zero(t, cache.Current().Len())

	res, err = e.Build(ctx, request())
	require.NoError(t, err)
	spec, ok = res.Graph.Output(request().Requirements[0])
	require.True(t, ok)
	assert.Equal(t, "BetterPV", spec.FunctionID())
	assert.Equal(t, "1.1.0", res.Version.Label.String())
}

func TestReload_RejectsDowngrade(t *testing.T) {
	e := New(rescache.New(0), nil)
	ctx := context.Background()
	live := repository(t, "2.0.0")
	require.NoError(t, e.Reload(ctx, live, nil))

	err := e.Reload(ctx, repository(t, "1.9.9"), nil)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.Same(t, live, e.Repository())
	assert.Equal(t, uint64(1), e.Version())

	assert.NoError(t, e.Reload(ctx, repository(t, ""), nil), "unlabelled catalogues are accepted")
	assert.NoError(t, e.Reload(ctx, repository(t, "2.0.0"), nil), "same label reloads")
}

func TestBuild_ConcurrentWithReload(t *testing.T) {
	e := New(rescache.New(0), nil)
	ctx := context.Background()
	repo := repository(t, "1.0.0", testutil.NewFunc("PVFn", value.TargetSecurity, "PV"))
	require.NoError(t, e.Reload(ctx, repo, nil))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				assert.NoError(t, e.Reload(ctx, repo, nil))
				return
			}
			res, err := e.Build(ctx, request())
			if assert.NoError(t, err) {
				assert.Equal(t, builder.StatusComplete, res.Status)
				assert.Equal(t, 1, res.Graph.Len())
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(3), e.Version())
}

func TestBuild_UsesUniverseInstalledWithRepository(t *testing.T) {
	e := New(rescache.New(0), nil)
	ctx := context.Background()
	repo := repository(t, "1.0.0", testutil.NewFunc("PVFn", value.TargetSecurity, "PV"))
	withSwap := testutil.NewUniverse(value.NewTarget(swap, nil))
	withSwap.Strict = true
	empty := testutil.NewUniverse()
	empty.Strict = true

	req := request()
	req.Targets = nil

	require.NoError(t, e.Reload(ctx, repo, withSwap))
	res, err := e.Build(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Graph.Len())
	assert.Empty(t, res.Report.Unsatisfied)

	require.NoError(t, e.Reload(ctx, repo, empty))
	res, err = e.Build(ctx, req)
	require.NoError(t, err)
	assert.Zero(t, res.Graph.Len())
	assert.Len(t, res.Report.Unsatisfied, 1)
}
