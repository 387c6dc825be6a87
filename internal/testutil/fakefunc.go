package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vk/valuegraph/internal/function"
	"github.com/vk/valuegraph/internal/value"
)

// Input describes one requirement a Func declares. An empty Target means the
// function's own target.
type Input struct {
	Name        string
	Target      string
	Constraints string
}

// Func is a scriptable function. Outputs are template property strings per
// value name; Inputs are returned for every desired specification.
type Func struct {
	function.Descriptor

	// Templates maps an output value name to its template properties.
	Templates map[string]string
	Inputs    []Input
	// Applies, when set, replaces the target-type-only CanApplyTo check.
	Applies func(*value.ComputationTarget) bool
	// RequirementsFn, when set, replaces Inputs.
	RequirementsFn func(target *value.ComputationTarget, desired value.ValueSpecification) ([]value.ValueRequirement, error)

	calls atomic.Int64
	mu    sync.Mutex
	seen  map[string]int
}

var _ function.Function = (*Func)(nil)

// NewFunc creates a fake producing outputs with no template properties.
func NewFunc(id string, tt value.TargetType, outputs ...string) *Func {
	templates := make(map[string]string, len(outputs))
	for _, o := range outputs {
		templates[o] = ""
	}
	return &Func{
		Descriptor: function.Descriptor{FunctionID: id, Type: tt, Produces: outputs},
		Templates:  templates,
		seen:       make(map[string]int),
	}
}

// WithTemplate sets the template properties of output name.
func (f *Func) WithTemplate(name, properties string) *Func {
	f.Templates[name] = properties
	return f
}

// Requires appends a declared input.
func (f *Func) Requires(name, target, constraints string) *Func {
	f.Inputs = append(f.Inputs, Input{Name: name, Target: target, Constraints: constraints})
	return f
}

func (f *Func) CanApplyTo(_ context.Context, target *value.ComputationTarget) bool {
	if !f.Type.Accepts(target.Type()) {
		return false
	}
	if f.Applies != nil {
		return f.Applies(target)
	}
	return true
}

func (f *Func) Results(_ context.Context, target *value.ComputationTarget) ([]value.ValueSpecification, error) {
	specs := make([]value.ValueSpecification, 0, len(f.Produces))
	for _, name := range f.Produces {
		props, err := value.ParseProperties(f.Templates[name])
		if err != nil {
			return nil, err
		}
		specs = append(specs, value.NewSpecification(name, target.Spec(), props))
	}
	return specs, nil
}

func (f *Func) Requirements(_ context.Context, target *value.ComputationTarget, desired value.ValueSpecification) ([]value.ValueRequirement, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen[desired.Key()]++
	f.mu.Unlock()

	if f.RequirementsFn != nil {
		return f.RequirementsFn(target, desired)
	}
	reqs := make([]value.ValueRequirement, 0, len(f.Inputs))
	for _, in := range f.Inputs {
		spec := target.Spec()
		if in.Target != "" {
			parsed, err := value.ParseTargetSpec(in.Target)
			if err != nil {
				return nil, err
			}
			spec = parsed
		}
		props, err := value.ParseProperties(in.Constraints)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, value.NewRequirement(in.Name, spec, props))
	}
	return reqs, nil
}

// Calls returns how many times Requirements was invoked.
func (f *Func) Calls() int64 { return f.calls.Load() }

// MaxCallsPerSpec returns the highest number of Requirements invocations for
// any single desired specification.
func (f *Func) MaxCallsPerSpec() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0
	for _, n := range f.seen {
		highest = max(highest, n)
	}
	return highest
}
