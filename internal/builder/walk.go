package builder

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/resolution"
	"github.com/vk/valuegraph/internal/resolver"
	"github.com/vk/valuegraph/internal/value"
)

// frame is one requirement on the current resolution path.
type frame struct {
	key    string
	parent *frame
	// flight is nil when the requirement is computed without owning its
	// in-flight slot.
	flight *rescache.Flight
}

// ancestors yields the keys from f up to the root.
func (f *frame) ancestors() iter.Seq[string] {
	return func(yield func(string) bool) {
		for n := f; n != nil; n = n.parent {
			if !yield(n.key) {
				return
			}
		}
	}
}

func (f *frame) contains(key string) bool {
	for k := range f.ancestors() {
		if k == key {
			return true
		}
	}
	return false
}

// cycle returns the keys from the ancestor holding key down to f, closed by
// key again.
func (f *frame) cycle(key string) []string {
	var path []string
	for n := f; n != nil; n = n.parent {
		path = append(path, n.key)
		if n.key == key {
			break
		}
	}
	slices.Reverse(path)
	return append(path, key)
}

// enclosing returns the nearest flight owned on the path.
func (f *frame) enclosing() *rescache.Flight {
	for n := f; n != nil; n = n.parent {
		if n.flight != nil {
			return n.flight
		}
	}
	return nil
}

// walker carries the state of one build through the search.
type walker struct {
	b        *Builder
	resolver *resolver.Resolver
	targets  value.TargetResolver
	// universe identifies the targets outcomes were computed against. It
	// prefixes every cache and requirements memo key.
	universe string
	scope    string
}

// newWalker scopes cached outcomes to the calculation configuration, the
// policy and the target universe. A universe that does not report a version
// is scoped to the build alone.
func newWalker(b *Builder, req Request, buildID string) *walker {
	universe := "build:" + buildID
	if v, ok := req.Targets.(value.VersionedTargetResolver); ok {
		universe = "targets:" + v.TargetsVersion()
	}
	scope := universe + "/" + req.CalculationConfiguration
	if s, ok := req.Policy.(fmt.Stringer); ok {
		scope += "{" + s.String() + "}"
	}
	return &walker{
		b:        b,
		resolver: resolver.New(b.repo, req.Policy),
		targets:  req.Targets,
		universe: universe,
		scope:    scope,
	}
}

func (w *walker) cacheKey(key string) string { return w.scope + "/" + key }

// resolveAll resolves the requested requirements concurrently. A pool worker
// is claimed before each dispatch, which is where cancellation is observed.
func (w *walker) resolveAll(ctx context.Context, reqs []value.ValueRequirement) ([]*rescache.Entry, error) {
	entries := make([]*rescache.Entry, len(reqs))
	grp := w.b.pool.Group(ctx)
	for i, req := range reqs {
		err := grp.Go(func(ctx context.Context) error {
			ctx, span := w.b.tracer.Start(ctx, "builder.resolve", trace.WithAttributes(
				attribute.String("requirement", req.String()),
			))
			defer span.End()
			e, err := w.resolve(ctx, req, nil)
			if err != nil {
				span.RecordError(err)
				return err
			}
			span.SetAttributes(attribute.Bool("satisfied", e.Outcome.OK()))
			entries[i] = e
			return nil
		})
		if err != nil {
			_ = grp.Wait()
			return nil, err
		}
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// resolve returns the outcome of req below parent. The error is either the
// context's or an ErrInvariantViolation.
func (w *walker) resolve(ctx context.Context, req value.ValueRequirement, parent *frame) (*rescache.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := req.Key()
	if parent.contains(key) {
		ctxlog.FromContext(ctx).Debug("Cycle detected.", "requirement", key)
		return &rescache.Entry{
			Key:       w.cacheKey(key),
			Outcome:   resolution.Fail(resolution.CycleFailure(req, parent.cycle(key))),
			Footprint: rescache.NewFootprint(key),
		}, nil
	}

	ck := w.cacheKey(key)
	if e, ok, err := w.lookup(ck, parent); err != nil || ok {
		return e, err
	}

	enclosing := parent.enclosing()
	flight, owned := w.b.gen.Begin(ck, enclosing)
	if !owned {
		if e, ok := w.b.gen.Wait(ctx, flight, enclosing); ok && w.usable(e, parent) {
			return e, nil
		}
		e, err := w.compute(ctx, req, &frame{key: key, parent: parent})
		if err != nil {
			return nil, err
		}
		if w.usable(e, parent) {
			return w.b.gen.Put(e), nil
		}
		return e, nil
	}

	// The previous owner may have finished between the lookup and Begin.
	if e, ok, err := w.lookup(ck, parent); err != nil || ok {
		w.b.gen.Finish(flight, e)
		return e, err
	}

	e, err := w.compute(ctx, req, &frame{key: key, parent: parent, flight: flight})
	if err != nil || !w.usable(e, parent) {
		w.b.gen.Finish(flight, nil)
		return e, err
	}
	return w.b.gen.Finish(flight, e), nil
}

// lookup returns a stored outcome that can be reused below parent.
func (w *walker) lookup(ck string, parent *frame) (*rescache.Entry, bool, error) {
	e, ok := w.b.gen.Get(ck)
	if !ok {
		return nil, false, nil
	}
	if e.Key != ck {
		return nil, false, invariantf("cache returned entry %q for key %q", e.Key, ck)
	}
	if !w.usable(e, parent) {
		return nil, false, nil
	}
	return e, true, nil
}

// usable reports whether e was computed without touching any requirement on
// parent's path, which makes it valid on every path.
func (w *walker) usable(e *rescache.Entry, parent *frame) bool {
	return e.Footprint.Disjoint(parent.ancestors())
}

// compute runs candidate enumeration and descent for the requirement of fr.
func (w *walker) compute(ctx context.Context, req value.ValueRequirement, fr *frame) (*rescache.Entry, error) {
	logger := ctxlog.FromContext(ctx)
	footprint := rescache.NewFootprint(fr.key)
	entry := func(o resolution.Outcome) *rescache.Entry {
		return &rescache.Entry{Key: w.cacheKey(fr.key), Outcome: o, Footprint: footprint}
	}

	target, ok := w.targets.ResolveTarget(ctx, req.Target)
	if !ok {
		logger.Debug("Unknown target.", "requirement", fr.key)
		return entry(resolution.Fail(resolution.NewFailure(req, []resolution.Reason{{
			Kind:   resolution.UnknownTarget,
			Detail: fmt.Sprintf("target %s is not in the universe", req.Target),
		}}))), nil
	}

	candidates := w.resolver.Resolve(ctx, req, target)
	if len(candidates) == 0 {
		return entry(resolution.Fail(resolution.NewFailure(req, []resolution.Reason{{
			Kind:   resolution.NoApplicableFunction,
			Detail: fmt.Sprintf("no function produces %s on %s", req.Name, req.Target),
		}}))), nil
	}

	var rejected []resolution.Reason
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, reason, fp, err := w.try(ctx, req, target, c, fr)
		if err != nil {
			return nil, err
		}
		footprint.Add(fp)
		if res != nil {
			res.Rejections = rejected
			logger.Debug("Requirement resolved.", "requirement", fr.key, "function", c.FunctionID(), "rejected", len(rejected))
			return entry(resolution.Success(res)), nil
		}
		logger.Debug("Candidate rejected.", "requirement", fr.key, "function", c.FunctionID(), "reason", reason.Kind)
		rejected = append(rejected, reason)
	}
	return entry(resolution.Fail(resolution.NewFailure(req, rejected))), nil
}

// try attempts one candidate. It returns either a resolution or the reason
// the candidate was rejected, plus the footprint of the attempt.
func (w *walker) try(ctx context.Context, req value.ValueRequirement, target *value.ComputationTarget, c resolver.Candidate, fr *frame) (*resolution.Resolution, resolution.Reason, rescache.Footprint, error) {
	fn := c.Entry.Function
	reject := resolution.Reason{FunctionID: fn.ID(), Spec: c.Spec.String()}
	footprint := rescache.NewFootprint()

	inputs, err := w.b.gen.Requirements(w.universe+"|"+fn.ID()+"|"+c.Spec.Key(), func() ([]value.ValueRequirement, error) {
		return fn.Requirements(ctx, target, c.Spec)
	})
	if err != nil {
		reject.Kind = resolution.RequirementsError
		reject.Detail = err.Error()
		return nil, reject, footprint, nil
	}
	for i := range inputs {
		if value.Satisfies(c.Spec, inputs[i]) {
			ctxlog.FromContext(ctx).Warn("Function requires its own output; rejecting candidate.",
				"function", fn.ID(), "spec", c.Spec.String())
			reject.Kind = resolution.Inconsistent
			reject.Input = &inputs[i]
			reject.Detail = "function requires its own output"
			return nil, reject, footprint, nil
		}
	}

	entries, err := w.descend(ctx, inputs, fr)
	if err != nil {
		return nil, reject, footprint, err
	}

	resolved := make([]*resolution.Resolution, len(inputs))
	failed := false
	for i, e := range entries {
		footprint.Add(e.Footprint)
		if e.Outcome.OK() {
			resolved[i] = e.Outcome.Resolution
			continue
		}
		if failed {
			continue
		}
		failed = true
		cause := e.Outcome.Failure
		reject.Kind = resolution.SubRequirementUnsatisfiable
		reject.Input = &inputs[i]
		reject.Cause = cause
		if cause.Kind == resolution.Cyclic {
			reject.Kind = resolution.WouldCreateCycle
			reject.Cycle = cause.Reasons[0].Cycle
		}
	}
	if failed {
		return nil, reject, footprint, nil
	}

	return &resolution.Resolution{
		Requirement:  req,
		Function:     fn,
		Target:       target,
		Spec:         c.Spec,
		Requirements: inputs,
		Inputs:       resolved,
	}, resolution.Reason{}, footprint, nil
}

// descend resolves every input of one candidate. All inputs are attempted
// even after one fails so the cache fills the same way on every run.
func (w *walker) descend(ctx context.Context, inputs []value.ValueRequirement, fr *frame) ([]*rescache.Entry, error) {
	entries := make([]*rescache.Entry, len(inputs))
	if len(inputs) == 1 {
		e, err := w.resolve(ctx, inputs[0], fr)
		entries[0] = e
		return entries, err
	}
	grp := w.b.pool.Group(ctx)
	for i, in := range inputs {
		grp.TryGo(func(ctx context.Context) error {
			e, err := w.resolve(ctx, in, fr)
			entries[i] = e
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
