// This file translates the HCL schema structs into the format-agnostic
// configuration model defined in the config package.

package hcl

import (
	"context"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/ctxlog"
)

func (l *Loader) translate(ctx context.Context, root *fileRoot) (*config.Model, error) {
	model := config.NewModel()
	if root.Catalogue != nil {
		model.Catalogue = l.translateCatalogue(root.Catalogue)
	}
	for _, fn := range root.Functions {
		model.Functions = append(model.Functions, l.translateFunction(ctx, fn))
	}
	for _, t := range root.Targets {
		model.Targets = append(model.Targets, l.translateTarget(t))
	}
	for _, v := range root.Views {
		model.Views = append(model.Views, l.translateView(v))
	}
	return model, nil
}

// translateCatalogue converts the catalogue block into the agnostic model.
func (l *Loader) translateCatalogue(s *Catalogue) *config.Catalogue {
	c := &config.Catalogue{Version: s.Version}
	if s.MarketData != nil {
		c.MarketData = &config.MarketDataDefinition{
			Values:  s.MarketData.Values,
			Schemes: s.MarketData.Schemes,
		}
	}
	for _, a := range s.Aggregates {
		c.Aggregates = append(c.Aggregates, &config.AggregateDefinition{
			ValueName:  a.ValueName,
			Properties: a.Properties,
		})
	}
	return c
}

// translateFunction converts a function block into the agnostic model.
func (l *Loader) translateFunction(ctx context.Context, s *Function) *config.FunctionDefinition {
	def := &config.FunctionDefinition{
		ID:          s.ID,
		Description: s.Description,
		TargetType:  s.TargetType,
		Priority:    s.Priority,
		Condition:   definedOrNil(ctx, s.Condition, "condition"),
	}
	for _, out := range s.Outputs {
		def.Outputs = append(def.Outputs, &config.OutputDefinition{
			Name:       out.Name,
			Properties: definedOrNil(ctx, out.Properties, "properties"),
		})
	}
	for _, in := range s.Inputs {
		def.Inputs = append(def.Inputs, &config.InputDefinition{
			Name:       in.Name,
			Target:     definedOrNil(ctx, in.Target, "target"),
			Properties: definedOrNil(ctx, in.Properties, "properties"),
			Children:   in.Children,
		})
	}
	return def
}

// translateTarget converts a target block into the agnostic model.
func (l *Loader) translateTarget(s *Target) *config.TargetDefinition {
	return &config.TargetDefinition{
		Type:       s.Type,
		ID:         s.ID,
		Attributes: s.Attributes,
		Children:   s.Children,
	}
}

// translateView converts a view block into the agnostic model.
func (l *Loader) translateView(s *View) *config.View {
	v := &config.View{Name: s.Name}
	for _, cc := range s.CalcConfigs {
		c := &config.CalcConfig{
			Name:              cc.Name,
			DefaultProperties: cc.DefaultProperties,
		}
		for _, r := range cc.Requirements {
			c.Requirements = append(c.Requirements, &config.RequirementDefinition{
				ValueName:   r.ValueName,
				Target:      r.Target,
				Constraints: r.Constraints,
			})
		}
		v.CalcConfigs = append(v.CalcConfigs, c)
	}
	return v
}

// definedOrNil returns nil for optional attributes that were omitted. The HCL
// decoder populates omitted optional expression fields with zero-width
// placeholder expressions, so a nil check alone is not enough.
func definedOrNil(ctx context.Context, expr hcl.Expression, attrName string) hcl.Expression {
	if expr == nil {
		return nil
	}
	r := expr.Range()
	if r.End.Byte > r.Start.Byte {
		return expr
	}
	ctxlog.FromContext(ctx).Debug("Optional HCL attribute omitted.", "attribute", attrName, "hcl_range", r.String())
	return nil
}
