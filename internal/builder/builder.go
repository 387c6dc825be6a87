package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/graph"
	"github.com/vk/valuegraph/internal/metrics"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/resolution"
	"github.com/vk/valuegraph/internal/resolver"
	"github.com/vk/valuegraph/internal/scheduler"
	"github.com/vk/valuegraph/internal/value"
)

// ErrInvariantViolation marks a build aborted by an internal defect rather
// than by a domain condition.
var ErrInvariantViolation = errors.New("internal invariant violation")

// Status is the terminal state of a build.
type Status string

const (
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Request describes one build.
type Request struct {
	CalculationConfiguration string
	Requirements             []value.ValueRequirement
	Targets                  value.TargetResolver
	// Policy supplies wildcard defaults. Outcomes are cached per calculation
	// configuration, per target universe when Targets implements
	// value.VersionedTargetResolver, and per the policy's string form when it
	// implements fmt.Stringer. A nil policy binds no defaults.
	Policy resolver.BindingPolicy
}

// Rejection is a candidate turned down while resolving a requirement that
// was eventually satisfied.
type Rejection struct {
	Requirement value.ValueRequirement `json:"requirement"`
	Reason      resolution.Reason      `json:"reason"`
}

// Report lists everything that did not go to plan in a build.
type Report struct {
	Unsatisfied []*resolution.Failure `json:"unsatisfied"`
	Rejections  []Rejection           `json:"rejections"`
}

// Result is the product of a build. Graph and Report are nil when the build
// was cancelled.
type Result struct {
	ID                       uuid.UUID
	CalculationConfiguration string
	Version                  registry.Version
	Status                   Status
	Graph                    *graph.Graph
	Report                   *Report
	Elapsed                  time.Duration
}

// Builder builds graphs against one repository snapshot and one cache
// generation. It is safe for concurrent use.
type Builder struct {
	repo    *registry.Repository
	gen     *rescache.Generation
	pool    *scheduler.Pool
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Builder.
type Option func(*Builder)

// WithPool runs resolutions on p instead of a pool sized to GOMAXPROCS.
func WithPool(p *scheduler.Pool) Option {
	return func(b *Builder) { b.pool = p }
}

// WithMetrics records build metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) { b.tracer = t }
}

// New creates a builder over repo whose outcomes are cached in gen.
func New(repo *registry.Repository, gen *rescache.Generation, opts ...Option) *Builder {
	b := &Builder{repo: repo, gen: gen}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = scheduler.New(0)
	}
	if b.tracer == nil {
		b.tracer = otel.Tracer("github.com/vk/valuegraph/internal/builder")
	}
	return b
}

// Build resolves every requested requirement and assembles the graph. Domain
// failures land in the report; the error is non-nil only for an
// ErrInvariantViolation or a malformed request.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if req.Targets == nil {
		return nil, errors.New("build request has no target resolver")
	}
	start := time.Now()
	res := &Result{
		ID:                       uuid.New(),
		CalculationConfiguration: req.CalculationConfiguration,
		Version:                  b.repo.Version(),
	}

	ctx, span := b.tracer.Start(ctx, "builder.Build", trace.WithAttributes(
		attribute.String("build.id", res.ID.String()),
		attribute.String("build.calc_config", req.CalculationConfiguration),
		attribute.Int("build.requirements", len(req.Requirements)),
	))
	defer span.End()

	ctx = ctxlog.With(ctx, "build_id", res.ID.String(), "calc_config", req.CalculationConfiguration)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Build: Starting graph construction.", "requirements", len(req.Requirements), "repository", res.Version.String())

	requested := dedupe(req.Requirements)
	w := newWalker(b, req, res.ID.String())
	entries, err := w.resolveAll(ctx, requested)
	res.Elapsed = time.Since(start)
	switch {
	case err != nil && ctx.Err() != nil && !errors.Is(err, ErrInvariantViolation):
		res.Status = StatusCancelled
		span.SetAttributes(attribute.String("build.status", string(res.Status)))
		b.metrics.ObserveBuild(string(res.Status), res.Elapsed, 0, 0)
		logger.Warn("Build: Cancelled.", "elapsed", res.Elapsed)
		return res, nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logger.Debug("Build: Resolution complete.", "requirements", len(requested))

	g, report, err := assemble(ctx, req.CalculationConfiguration, requested, entries)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.Status = StatusComplete
	res.Graph = g
	res.Report = report
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("build.status", string(res.Status)),
		attribute.Int("build.nodes", g.Len()),
		attribute.Int("build.unsatisfied", len(report.Unsatisfied)),
	)
	b.metrics.ObserveBuild(string(res.Status), res.Elapsed, g.Len(), len(report.Unsatisfied))
	logger.Info("Build: Graph construction complete.",
		"nodes", g.Len(),
		"satisfied", len(g.TerminalOutputs()),
		"unsatisfied", len(report.Unsatisfied),
		"rejections", len(report.Rejections),
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// dedupe drops repeated requirements, keeping the first occurrence.
func dedupe(reqs []value.ValueRequirement) []value.ValueRequirement {
	seen := make(map[string]struct{}, len(reqs))
	out := make([]value.ValueRequirement, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
