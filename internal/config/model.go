package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of a catalogue of
// functions, the target universe and the views to build.
type Model struct {
	Catalogue *Catalogue
	// Functions are kept in declaration order, which is the secondary
	// candidate ordering after priority.
	Functions []*FunctionDefinition
	Targets   []*TargetDefinition
	Views     []*View
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Catalogue: &Catalogue{}}
}

// View looks up a view by name.
func (m *Model) View(name string) (*View, bool) {
	for _, v := range m.Views {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Merge appends everything declared in other. A second catalogue version is
// an error unless it matches the first. Market data settings are unioned.
func (m *Model) Merge(other *Model) error {
	if c := other.Catalogue; c != nil {
		if c.Version != "" {
			if m.Catalogue.Version != "" && m.Catalogue.Version != c.Version {
				return fmt.Errorf("conflicting catalogue versions %q and %q", m.Catalogue.Version, c.Version)
			}
			m.Catalogue.Version = c.Version
		}
		if c.MarketData != nil {
			if m.Catalogue.MarketData == nil {
				m.Catalogue.MarketData = &MarketDataDefinition{}
			}
			m.Catalogue.MarketData.Values = append(m.Catalogue.MarketData.Values, c.MarketData.Values...)
			m.Catalogue.MarketData.Schemes = append(m.Catalogue.MarketData.Schemes, c.MarketData.Schemes...)
		}
		m.Catalogue.Aggregates = append(m.Catalogue.Aggregates, c.Aggregates...)
	}
	m.Functions = append(m.Functions, other.Functions...)
	m.Targets = append(m.Targets, other.Targets...)
	m.Views = append(m.Views, other.Views...)
	return nil
}

// Catalogue carries metadata of the function repository.
type Catalogue struct {
	// Version is a semantic version label; empty means unlabelled.
	Version    string
	MarketData *MarketDataDefinition
	Aggregates []*AggregateDefinition
}

// MarketDataDefinition configures the market data provider: the value names
// it supplies and the identifier schemes of the targets it covers. No
// schemes means every scheme.
type MarketDataDefinition struct {
	Values  []string
	Schemes []string
}

// AggregateDefinition configures a value summed over portfolio node children.
// Properties are carried from the desired output down to the children.
type AggregateDefinition struct {
	ValueName  string
	Properties []string
}

// --- Function Catalogue Models ---

// FunctionDefinition is the format-agnostic representation of a `function` block.
type FunctionDefinition struct {
	ID          string
	Description string
	TargetType  string
	Priority    int
	// Condition is an optional boolean expression over `target`.
	Condition hcl.Expression
	Outputs   []*OutputDefinition
	Inputs    []*InputDefinition
}

// OutputDefinition declares one value the function can produce.
type OutputDefinition struct {
	Name string
	// Properties evaluates to an object of property values over `target`.
	Properties hcl.Expression
}

// InputDefinition declares one value the function requires.
type InputDefinition struct {
	Name string
	// Target evaluates to a target reference string; nil means the function's own target.
	Target hcl.Expression
	// Properties evaluates to an object of constraints over `target` and `desired`.
	Properties hcl.Expression
	// Children requests the value on every child of the target instead.
	Children bool
}

// --- Target Universe Models ---

// TargetDefinition is the format-agnostic representation of a `target` block.
type TargetDefinition struct {
	Type       string
	ID         string
	Attributes map[string]string
	Children   []string
}

// --- View Models ---

// View groups named calculation configurations that are built together.
type View struct {
	Name        string
	CalcConfigs []*CalcConfig
}

// CalcConfig is one calculation configuration: a requirement set and its
// default property bindings.
type CalcConfig struct {
	Name              string
	DefaultProperties string
	Requirements      []*RequirementDefinition
}

// RequirementDefinition is a requested output of a calculation configuration.
type RequirementDefinition struct {
	ValueName   string
	Target      string
	Constraints string
}
