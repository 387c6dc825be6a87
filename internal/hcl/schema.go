package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Catalogue *Catalogue  `hcl:"catalogue,block"`
	Functions []*Function `hcl:"function,block"`
	Targets   []*Target   `hcl:"target,block"`
	Views     []*View     `hcl:"view,block"`
	Remain    hcl.Body    `hcl:",remain"`
}

// --- Catalogue Schemas ---

// Catalogue holds repository metadata and the settings of the built-in
// function modules.
type Catalogue struct {
	Version    string       `hcl:"version,optional"`
	MarketData *MarketData  `hcl:"market_data,block"`
	Aggregates []*Aggregate `hcl:"aggregate,block"`
}

// MarketData lists the values available from market data.
type MarketData struct {
	Values  []string `hcl:"values"`
	Schemes []string `hcl:"schemes,optional"`
}

// Aggregate declares a value summed over the children of portfolio nodes.
type Aggregate struct {
	ValueName  string   `hcl:"value_name,label"`
	Properties []string `hcl:"properties,optional"`
}

// Function represents a `function` block: a declared function of the catalogue.
type Function struct {
	ID          string         `hcl:"id,label"`
	Description string         `hcl:"description,optional"`
	TargetType  string         `hcl:"target_type"`
	Priority    int            `hcl:"priority,optional"`
	Condition   hcl.Expression `hcl:"condition,optional"`
	Outputs     []*Output      `hcl:"output,block"`
	Inputs      []*Input       `hcl:"input,block"`
}

// Output is a value produced by a function.
type Output struct {
	Name       string         `hcl:"name,label"`
	Properties hcl.Expression `hcl:"properties,optional"`
}

// Input is a value required by a function.
type Input struct {
	Name       string         `hcl:"name,label"`
	Target     hcl.Expression `hcl:"target,optional"`
	Properties hcl.Expression `hcl:"properties,optional"`
	Children   bool           `hcl:"children,optional"`
}

// --- Target Universe Schemas ---

// Target represents a `target` block of the target universe.
type Target struct {
	Type       string            `hcl:"type,label"`
	ID         string            `hcl:"id,label"`
	Attributes map[string]string `hcl:"attributes,optional"`
	Children   []string          `hcl:"children,optional"`
}

// --- View Schemas ---

// View groups calculation configurations.
type View struct {
	Name        string        `hcl:"name,label"`
	CalcConfigs []*CalcConfig `hcl:"calc_config,block"`
}

// CalcConfig is a named calculation configuration.
type CalcConfig struct {
	Name              string         `hcl:"name,label"`
	DefaultProperties string         `hcl:"default_properties,optional"`
	Requirements      []*Requirement `hcl:"requirement,block"`
}

// Requirement is a requested output.
type Requirement struct {
	ValueName   string `hcl:"value_name,label"`
	Target      string `hcl:"target"`
	Constraints string `hcl:"constraints,optional"`
}
