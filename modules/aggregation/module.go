// Package aggregation provides functions that compute a value on a portfolio
// node from the same value on each of its children.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/function"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/value"
)

// Sum aggregates one value over the children of a portfolio node. The
// properties it carries are wildcards on its output, bound by the requirement
// or the default policy, and passed down to every child.
type Sum struct {
	function.Descriptor
	properties []string
}

var _ function.Function = (*Sum)(nil)

// FunctionID returns the id of the aggregation of valueName.
func FunctionID(valueName string) string { return "Sum" + valueName }

// NewSum creates the aggregation of valueName.
func NewSum(valueName string, properties []string) *Sum {
	props := slices.Clone(properties)
	slices.Sort(props)
	return &Sum{
		Descriptor: function.Descriptor{
			FunctionID: FunctionID(valueName),
			Type:       value.TargetPortfolioNode,
			Produces:   []string{valueName},
		},
		properties: slices.Compact(props),
	}
}

func (s *Sum) CanApplyTo(context.Context, *value.ComputationTarget) bool { return true }

func (s *Sum) Results(_ context.Context, target *value.ComputationTarget) ([]value.ValueSpecification, error) {
	b := value.Properties()
	for _, p := range s.properties {
		b.WithAny(p)
	}
	return []value.ValueSpecification{value.NewSpecification(s.Produces[0], target.Spec(), b.Get())}, nil
}

func (s *Sum) Requirements(_ context.Context, target *value.ComputationTarget, desired value.ValueSpecification) ([]value.ValueRequirement, error) {
	b := value.Properties()
	for _, p := range s.properties {
		if vs := desired.Properties.Values(p); len(vs) > 0 {
			b.With(p, vs...)
		}
	}
	constraints := b.Get()

	children := target.Children()
	reqs := make([]value.ValueRequirement, 0, len(children))
	for _, c := range children {
		reqs = append(reqs, value.NewRequirement(desired.Name, c, constraints))
	}
	return reqs, nil
}

// Module implements the registry.Module interface for this package.
type Module struct {
	Definitions []*config.AggregateDefinition
}

// Register registers one Sum per configured value.
func (m *Module) Register(r *registry.Registry) error {
	var errs []error
	for _, def := range m.Definitions {
		if err := r.Register(NewSum(def.ValueName, def.Properties), registry.Options{}); err != nil {
			errs = append(errs, fmt.Errorf("aggregate %q: %w", def.ValueName, err))
		}
	}
	return errors.Join(errs...)
}
