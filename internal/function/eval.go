package function

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyfunc "github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/valuegraph/internal/value"
)

// Variables available to catalogue expressions.
const (
	VarTarget  = "target"
	VarDesired = "desired"
)

// functions is the table of HCL functions catalogue expressions may call.
var functions = map[string]ctyfunc.Function{
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"format":   stdlib.FormatFunc,
	"join":     stdlib.JoinFunc,
	"coalesce": stdlib.CoalesceFunc,
}

// targetValue renders a target as the `target` object.
func targetValue(t *value.ComputationTarget) cty.Value {
	attrs := t.Attributes()
	attrVals := make(map[string]cty.Value, len(attrs))
	for k, v := range attrs {
		attrVals[k] = cty.StringVal(v)
	}
	attrObj := cty.MapValEmpty(cty.String)
	if len(attrVals) > 0 {
		attrObj = cty.MapVal(attrVals)
	}

	children := t.Children()
	childVals := make([]cty.Value, 0, len(children))
	for _, c := range children {
		childVals = append(childVals, cty.StringVal(c.String()))
	}
	childList := cty.ListValEmpty(cty.String)
	if len(childVals) > 0 {
		childList = cty.ListVal(childVals)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"type":       cty.StringVal(string(t.Type())),
		"id":         cty.StringVal(t.ID().String()),
		"scheme":     cty.StringVal(t.ID().Scheme),
		"value":      cty.StringVal(t.ID().Value),
		"attributes": attrObj,
		"children":   childList,
	})
}

// desiredValue renders the concrete properties of a bound specification as
// the `desired` map. Only single-valued keys are visible.
func desiredValue(spec value.ValueSpecification) cty.Value {
	vals := make(map[string]cty.Value)
	for _, k := range spec.Properties.Keys() {
		if v, ok := spec.Properties.Value(k); ok {
			vals[k] = cty.StringVal(v)
		}
	}
	if len(vals) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	return cty.MapVal(vals)
}

func evalContext(target *value.ComputationTarget, desired *value.ValueSpecification) *hcl.EvalContext {
	vars := map[string]cty.Value{VarTarget: targetValue(target)}
	if desired != nil {
		vars[VarDesired] = desiredValue(*desired)
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions}
}

// propertiesFromValue converts an evaluated `properties` object. A string is a
// single value, "*" a wildcard, a list or set a value set, and null leaves the
// key absent.
func propertiesFromValue(v cty.Value) (value.ValueProperties, error) {
	if v.IsNull() {
		return value.ValueProperties{}, nil
	}
	if !v.IsWhollyKnown() {
		return value.ValueProperties{}, fmt.Errorf("properties must be known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return value.ValueProperties{}, fmt.Errorf("properties must be an object, got %s", ty.FriendlyName())
	}

	b := value.Properties()
	for it := v.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		key := k.AsString()
		if elem.IsNull() {
			continue
		}
		et := elem.Type()
		switch {
		case et.IsListType() || et.IsSetType() || et.IsTupleType():
			if elem.LengthInt() == 0 {
				return value.ValueProperties{}, fmt.Errorf("property %q: empty value set", key)
			}
			var values []string
			for eit := elem.ElementIterator(); eit.Next(); {
				_, item := eit.Element()
				s, err := asString(item)
				if err != nil {
					return value.ValueProperties{}, fmt.Errorf("property %q: %w", key, err)
				}
				values = append(values, s)
			}
			b.With(key, values...)
		default:
			s, err := asString(elem)
			if err != nil {
				return value.ValueProperties{}, fmt.Errorf("property %q: %w", key, err)
			}
			if s == "*" {
				b.WithAny(key)
			} else {
				b.With(key, s)
			}
		}
	}
	return b.Get(), nil
}

func asString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("null value")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

// evalProperties evaluates an optional properties expression.
func evalProperties(expr hcl.Expression, ctx *hcl.EvalContext) (value.ValueProperties, error) {
	if expr == nil {
		return value.ValueProperties{}, nil
	}
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return value.ValueProperties{}, diags
	}
	return propertiesFromValue(v)
}

// references returns the sorted root variable names and function names used
// by the given expressions.
func references(exprs ...hcl.Expression) (vars []string, funcs []string) {
	varSet := make(map[string]struct{})
	funcSet := make(map[string]struct{})
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, tr := range expr.Variables() {
			varSet[tr.RootName()] = struct{}{}
		}
		if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
			hclsyntax.VisitAll(syntaxExpr, func(n hclsyntax.Node) hcl.Diagnostics {
				if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
					funcSet[call.Name] = struct{}{}
				}
				return nil
			})
		}
	}
	return sortedKeys(varSet), sortedKeys(funcSet)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
