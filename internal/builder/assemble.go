package builder

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/dag"
	"github.com/vk/valuegraph/internal/graph"
	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/resolution"
	"github.com/vk/valuegraph/internal/value"
)

// assembler materializes accepted resolution trees as graph nodes.
type assembler struct {
	graph      *graph.Graph
	nodes      map[*resolution.Resolution]*graph.Node
	rejections []Rejection
	// seen holds requirement|function|spec|kind of recorded rejections. The
	// same candidate can be rejected on several paths with different causes.
	seen map[string]struct{}
}

// assemble builds the graph and report from the outcomes of the requested
// requirements, aligned by index.
func assemble(ctx context.Context, calcConfig string, requested []value.ValueRequirement, entries []*rescache.Entry) (*graph.Graph, *Report, error) {
	logger := ctxlog.FromContext(ctx)
	a := &assembler{
		graph: graph.New(calcConfig),
		nodes: make(map[*resolution.Resolution]*graph.Node),
		seen:  make(map[string]struct{}),
	}
	report := &Report{Unsatisfied: []*resolution.Failure{}}

	for i, req := range requested {
		outcome := entries[i].Outcome
		if !outcome.OK() {
			a.graph.AddUnsatisfied(req)
			report.Unsatisfied = append(report.Unsatisfied, outcome.Failure)
			continue
		}
		res := outcome.Resolution
		if !req.IsSatisfiedBy(res.Spec) {
			return nil, nil, invariantf("%s resolved to %s which does not satisfy it", req, res.Spec)
		}
		n, err := a.add(res)
		if err != nil {
			return nil, nil, err
		}
		if err := a.graph.SetTerminal(req, res.Spec, n.ID); err != nil {
			return nil, nil, invariantf("%v", err)
		}
	}

	if removed := a.graph.Prune(); removed > 0 {
		logger.Debug("Build: Pruned unreachable nodes.", "removed", removed)
	}
	if err := a.graph.DetectCycles(); err != nil {
		if errors.Is(err, dag.ErrCycle) {
			return nil, nil, invariantf("assembled graph is cyclic: %v", err)
		}
		return nil, nil, err
	}

	slices.SortFunc(report.Unsatisfied, func(x, y *resolution.Failure) int {
		return cmp.Compare(x.Requirement.Key(), y.Requirement.Key())
	})
	report.Rejections = a.rejections
	if report.Rejections == nil {
		report.Rejections = []Rejection{}
	}
	slices.SortStableFunc(report.Rejections, func(x, y Rejection) int {
		return cmp.Compare(x.Requirement.Key(), y.Requirement.Key())
	})
	return a.graph, report, nil
}

// add inserts the node for r and, first, the nodes of its inputs. It returns
// the node stored in the graph, which is shared by every resolution producing
// the same specification from the same upstream nodes.
func (a *assembler) add(r *resolution.Resolution) (*graph.Node, error) {
	if n, ok := a.nodes[r]; ok {
		return n, nil
	}
	fn := r.Function
	switch {
	case !fn.TargetType().Accepts(r.Target.Type()):
		return nil, invariantf("function %s (%s) resolved on %s target %s", fn.ID(), fn.TargetType(), r.Target.Type(), r.Target)
	case r.Spec.Target != r.Target.Spec():
		return nil, invariantf("specification %s does not belong to target %s", r.Spec, r.Target)
	case !value.Satisfies(r.Spec, r.Requirement):
		return nil, invariantf("specification %s does not satisfy %s", r.Spec, r.Requirement)
	case len(r.Inputs) != len(r.Requirements):
		return nil, invariantf("function %s has %d inputs for %d requirements", fn.ID(), len(r.Inputs), len(r.Requirements))
	}

	// One producer per input specification. Two inputs resolved to the same
	// specification through different trees are fed by the first.
	specs := make([]value.ValueSpecification, 0, len(r.Inputs))
	producers := make([]string, 0, len(r.Inputs))
	bySpec := make(map[string]struct{}, len(r.Inputs))
	for i, in := range r.Inputs {
		if in == nil || !value.Satisfies(in.Spec, r.Requirements[i]) {
			return nil, invariantf("input %d of %s does not satisfy %s", i, fn.ID(), r.Requirements[i])
		}
		p, err := a.add(in)
		if err != nil {
			return nil, err
		}
		if _, dup := bySpec[in.Spec.Key()]; dup {
			continue
		}
		bySpec[in.Spec.Key()] = struct{}{}
		specs = append(specs, in.Spec)
		producers = append(producers, p.ID)
	}

	n := a.graph.AddNode(graph.NewNode(fn.ID(), r.Target.Spec(), r.Spec, specs, producers...))
	for _, id := range producers {
		if err := a.graph.AddEdge(id, n.ID); err != nil {
			return nil, invariantf("wiring %s -> %s: %v", id, n.ID, err)
		}
	}
	a.nodes[r] = n

	for _, reason := range r.Rejections {
		key := r.Requirement.Key() + "|" + reason.FunctionID + "|" + reason.Spec + "|" + string(reason.Kind)
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}
		a.rejections = append(a.rejections, Rejection{Requirement: r.Requirement, Reason: reason})
	}
	return n, nil
}
