// Package marketdata provides the leaf function that satisfies requirements
// for values available directly from market data.
package marketdata

import (
	"context"
	"slices"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/function"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/value"
)

const (
	// FunctionID identifies the provider in specifications and graphs.
	FunctionID = "MarketData"
	// Priority places the provider ahead of every declared function.
	Priority = 1 << 30
)

// Provider is a function with no inputs producing the configured values on
// targets whose identifier scheme is covered.
type Provider struct {
	function.Descriptor
	schemes []string
}

var _ function.Function = (*Provider)(nil)

// NewProvider creates a provider for values on targets identified in one of
// schemes. No schemes means every scheme.
func NewProvider(values, schemes []string) *Provider {
	values = slices.Clone(values)
	slices.Sort(values)
	schemes = slices.Clone(schemes)
	slices.Sort(schemes)
	return &Provider{
		Descriptor: function.Descriptor{
			FunctionID: FunctionID,
			Type:       value.TargetAny,
			Produces:   slices.Compact(values),
		},
		schemes: slices.Compact(schemes),
	}
}

func (p *Provider) CanApplyTo(_ context.Context, target *value.ComputationTarget) bool {
	if len(p.schemes) == 0 {
		return true
	}
	_, ok := slices.BinarySearch(p.schemes, target.ID().Scheme)
	return ok
}

func (p *Provider) Results(_ context.Context, target *value.ComputationTarget) ([]value.ValueSpecification, error) {
	specs := make([]value.ValueSpecification, 0, len(p.Produces))
	for _, name := range p.Produces {
		specs = append(specs, value.NewSpecification(name, target.Spec(), value.ValueProperties{}))
	}
	return specs, nil
}

func (p *Provider) Requirements(context.Context, *value.ComputationTarget, value.ValueSpecification) ([]value.ValueRequirement, error) {
	return nil, nil
}

// Module implements the registry.Module interface for this package.
type Module struct {
	Definition *config.MarketDataDefinition
}

// Register registers the provider when market data values are configured.
func (m *Module) Register(r *registry.Registry) error {
	if m.Definition == nil || len(m.Definition.Values) == 0 {
		return nil
	}
	return r.Register(NewProvider(m.Definition.Values, m.Definition.Schemes), registry.Options{Priority: Priority})
}
