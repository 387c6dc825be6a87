package resolver

import (
	"context"
	"slices"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/value"
)

// Candidate is a function able to satisfy a requirement, with the bound
// specification it will produce.
type Candidate struct {
	Entry *registry.Entry
	Spec  value.ValueSpecification
}

// FunctionID is shorthand for the candidate's function id.
func (c Candidate) FunctionID() string { return c.Entry.Function.ID() }

// Resolver enumerates candidates from one repository snapshot.
type Resolver struct {
	repo   *registry.Repository
	policy BindingPolicy
}

// New creates a resolver. A nil policy binds no defaults.
func New(repo *registry.Repository, policy BindingPolicy) *Resolver {
	if policy == nil {
		policy = NoDefaults
	}
	return &Resolver{repo: repo, policy: policy}
}

// Resolve returns the ordered candidates for req on target. An empty result
// is a normal outcome meaning nothing applies.
func (r *Resolver) Resolve(ctx context.Context, req value.ValueRequirement, target *value.ComputationTarget) []Candidate {
	logger := ctxlog.FromContext(ctx)

	var out []Candidate
	seen := make(map[string]struct{})
	for _, entry := range r.repo.Candidates(req.Name) {
		fn := entry.Function
		if !fn.TargetType().Accepts(target.Type()) || !fn.CanApplyTo(ctx, target) {
			continue
		}
		templates, err := fn.Results(ctx, target)
		if err != nil {
			logger.Warn("Function results failed; skipping candidate.", "function", fn.ID(), "target", target.String(), "error", err)
			continue
		}
		for _, tmpl := range templates {
			if tmpl.Name != req.Name || tmpl.Target != req.Target {
				continue
			}
			spec, ok := r.bind(tmpl, req, fn.ID())
			if !ok || !value.Satisfies(spec, req) {
				continue
			}
			key := fn.ID() + "|" + spec.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Candidate{Entry: entry, Spec: spec})
		}
	}

	logger.Debug("Resolved candidates.", "requirement", req.String(), "candidates", len(out))
	return out
}

// bind turns a template into a concrete specification for req.
func (r *Resolver) bind(tmpl value.ValueSpecification, req value.ValueRequirement, functionID string) (value.ValueSpecification, bool) {
	props := tmpl.Properties.With(value.PropertyFunction, functionID)
	for _, key := range req.Constraints.Keys() {
		if !props.Has(key) {
			return value.ValueSpecification{}, false
		}
	}

	b := value.Properties()
	for _, key := range props.Keys() {
		if v, ok := props.Value(key); ok {
			b.With(key, v)
			continue
		}
		allowed, ok := props.Intersect(key, req.Constraints)
		if !ok {
			return value.ValueSpecification{}, false
		}
		def, hasDefault := r.policy.Default(req.Name, key)
		switch {
		case allowed == nil && !hasDefault:
			return value.ValueSpecification{}, false
		case allowed == nil:
			b.With(key, def)
		case hasDefault && slices.Contains(allowed, def):
			b.With(key, def)
		default:
			b.With(key, allowed[0])
		}
	}
	return value.NewSpecification(tmpl.Name, tmpl.Target, b.Get()), true
}
