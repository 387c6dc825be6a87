package function

import (
	"context"

	"github.com/vk/valuegraph/internal/value"
)

// Function is a pure mapping from a target to the values it can produce, and
// from a desired output to the inputs it needs.
type Function interface {
	// ID is the unique function identifier. It is bound to the Function
	// property of every specification the function produces.
	ID() string
	// TargetType is the type of target the function applies to; TargetAny
	// applies to all.
	TargetType() value.TargetType
	// Outputs lists the value names the function can ever produce. It is
	// used to index the repository.
	Outputs() []string
	// CanApplyTo is a static filter evaluated before Results.
	CanApplyTo(ctx context.Context, target *value.ComputationTarget) bool
	// Results returns the specifications producible on target. Properties
	// may be templates with wildcards or value sets.
	Results(ctx context.Context, target *value.ComputationTarget) ([]value.ValueSpecification, error)
	// Requirements returns the inputs needed to produce desired, a concrete
	// specification previously bound from one of the Results.
	Requirements(ctx context.Context, target *value.ComputationTarget, desired value.ValueSpecification) ([]value.ValueRequirement, error)
}

// Descriptor carries the static identity of a Go-coded function. Embed it to
// get ID, TargetType and Outputs.
type Descriptor struct {
	FunctionID string
	Type       value.TargetType
	Produces   []string
}

func (d Descriptor) ID() string                   { return d.FunctionID }
func (d Descriptor) TargetType() value.TargetType { return d.Type }
func (d Descriptor) Outputs() []string            { return append([]string(nil), d.Produces...) }
