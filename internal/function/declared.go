package function

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/value"
)

// Declared is a function described by a catalogue `function` block. Its
// expressions are evaluated per target on every call.
type Declared struct {
	def        *config.FunctionDefinition
	targetType value.TargetType
	outputs    []string
}

var _ Function = (*Declared)(nil)

// NewDeclared validates a definition and wraps it. Expressions may only
// reference `target` (and `desired` inside input blocks) and the built-in
// functions.
func NewDeclared(def *config.FunctionDefinition) (*Declared, error) {
	if def.ID == "" {
		return nil, errors.New("function id cannot be empty")
	}
	tt, err := value.ParseTargetType(def.TargetType)
	if err != nil {
		return nil, fmt.Errorf("function '%s': %w", def.ID, err)
	}
	if len(def.Outputs) == 0 {
		return nil, fmt.Errorf("function '%s' declares no outputs", def.ID)
	}

	var errs []error
	outputs := make([]string, 0, len(def.Outputs))
	for _, out := range def.Outputs {
		if slices.Contains(outputs, out.Name) {
			errs = append(errs, fmt.Errorf("function '%s': duplicate output '%s'", def.ID, out.Name))
			continue
		}
		outputs = append(outputs, out.Name)
		errs = append(errs, checkReferences(def.ID, "output '"+out.Name+"'", []string{VarTarget}, out.Properties)...)
	}
	errs = append(errs, checkReferences(def.ID, "condition", []string{VarTarget}, def.Condition)...)
	for _, in := range def.Inputs {
		errs = append(errs, checkReferences(def.ID, "input '"+in.Name+"'", []string{VarTarget, VarDesired}, in.Target, in.Properties)...)
		if in.Children && in.Target != nil {
			errs = append(errs, fmt.Errorf("function '%s', input '%s': children and target are mutually exclusive", def.ID, in.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Declared{def: def, targetType: tt, outputs: outputs}, nil
}

func checkReferences(id, where string, allowed []string, exprs ...hcl.Expression) []error {
	var errs []error
	vars, funcs := references(exprs...)
	for _, v := range vars {
		if !slices.Contains(allowed, v) {
			errs = append(errs, fmt.Errorf("function '%s', %s: unknown variable '%s'", id, where, v))
		}
	}
	for _, f := range funcs {
		if _, ok := functions[f]; !ok {
			errs = append(errs, fmt.Errorf("function '%s', %s: unknown function '%s'", id, where, f))
		}
	}
	return errs
}

// Priority returns the declared priority.
func (d *Declared) Priority() int { return d.def.Priority }

func (d *Declared) ID() string                   { return d.def.ID }
func (d *Declared) TargetType() value.TargetType { return d.targetType }
func (d *Declared) Outputs() []string            { return slices.Clone(d.outputs) }

// CanApplyTo checks the target type and evaluates the optional condition. A
// condition that fails to evaluate (for example because the target lacks an
// attribute it reads) does not apply.
func (d *Declared) CanApplyTo(ctx context.Context, target *value.ComputationTarget) bool {
	if !d.targetType.Accepts(target.Type()) {
		return false
	}
	if d.def.Condition == nil {
		return true
	}
	v, diags := d.def.Condition.Value(evalContext(target, nil))
	if diags.HasErrors() {
		ctxlog.FromContext(ctx).Debug("Function condition did not evaluate.", "function", d.def.ID, "target", target.String(), "error", diags.Error())
		return false
	}
	v, err := convert.Convert(v, cty.Bool)
	if err != nil || v.IsNull() || !v.IsKnown() {
		return false
	}
	return v.True()
}

// Results evaluates the output property templates on target.
func (d *Declared) Results(ctx context.Context, target *value.ComputationTarget) ([]value.ValueSpecification, error) {
	evalCtx := evalContext(target, nil)
	specs := make([]value.ValueSpecification, 0, len(d.def.Outputs))
	for _, out := range d.def.Outputs {
		props, err := evalProperties(out.Properties, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("function '%s', output '%s': %w", d.def.ID, out.Name, err)
		}
		specs = append(specs, value.NewSpecification(out.Name, target.Spec(), props))
	}
	return specs, nil
}

// Requirements evaluates the input blocks for the bound output desired.
func (d *Declared) Requirements(ctx context.Context, target *value.ComputationTarget, desired value.ValueSpecification) ([]value.ValueRequirement, error) {
	evalCtx := evalContext(target, &desired)
	var reqs []value.ValueRequirement
	for _, in := range d.def.Inputs {
		props, err := evalProperties(in.Properties, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("function '%s', input '%s': %w", d.def.ID, in.Name, err)
		}

		if in.Children {
			for _, child := range target.Children() {
				reqs = append(reqs, value.NewRequirement(in.Name, child, props))
			}
			continue
		}

		spec := target.Spec()
		if in.Target != nil {
			spec, err = evalTarget(in.Target, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("function '%s', input '%s': %w", d.def.ID, in.Name, err)
			}
		}
		reqs = append(reqs, value.NewRequirement(in.Name, spec, props))
	}
	return reqs, nil
}

func evalTarget(expr hcl.Expression, ctx *hcl.EvalContext) (value.TargetSpec, error) {
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return value.TargetSpec{}, diags
	}
	s, err := asString(v)
	if err != nil {
		return value.TargetSpec{}, fmt.Errorf("target: %w", err)
	}
	return value.ParseTargetSpec(s)
}
