// Package resolution defines the outcome of resolving one value requirement:
// either a Resolution tree (the chosen function and the resolutions of its
// inputs) or a Failure carrying one Reason per rejected candidate.
//
// Failures are ordinary values. Nothing in this package is an error.
package resolution

import (
	"fmt"
	"strings"

	"github.com/vk/valuegraph/internal/function"
	"github.com/vk/valuegraph/internal/value"
)

// ReasonKind classifies why a candidate (or a requirement) was rejected.
type ReasonKind string

const (
	// NoApplicableFunction: the resolver returned no candidate.
	NoApplicableFunction ReasonKind = "no_applicable_function"
	// UnknownTarget: the target universe does not know the requirement's target.
	UnknownTarget ReasonKind = "unknown_target"
	// SubRequirementUnsatisfiable: one of the candidate's inputs failed.
	SubRequirementUnsatisfiable ReasonKind = "sub_requirement_unsatisfiable"
	// WouldCreateCycle: one of the candidate's inputs loops back to a
	// requirement still being resolved.
	WouldCreateCycle ReasonKind = "would_create_cycle"
	// RequirementsError: the function failed to compute its inputs.
	RequirementsError ReasonKind = "requirements_error"
	// Inconsistent: the function requires its own output.
	Inconsistent ReasonKind = "inconsistent"
)

// FailureKind is the overall diagnosis of an unsatisfiable requirement.
type FailureKind string

const (
	// NoFunction: nothing can produce the value on that target.
	NoFunction FailureKind = "no_function"
	// Cyclic: every candidate was rejected because it would create a cycle.
	Cyclic FailureKind = "cyclic"
	// Unsatisfiable: candidates exist but none could be completed.
	Unsatisfiable FailureKind = "unsatisfiable"
)

// Reason explains a single rejection.
type Reason struct {
	Kind ReasonKind `json:"kind"`
	// FunctionID and Spec identify the rejected candidate, when there is one.
	FunctionID string `json:"function,omitempty"`
	Spec       string `json:"spec,omitempty"`
	// Input is the failing input of the candidate.
	Input *value.ValueRequirement `json:"input,omitempty"`
	// Cause is the failure of Input.
	Cause *Failure `json:"cause,omitempty"`
	// Cycle lists requirement keys from the in-progress ancestor back to
	// itself, for WouldCreateCycle.
	Cycle  []string `json:"cycle,omitempty"`
	Detail string   `json:"detail,omitempty"`
}

func (r Reason) String() string {
	var sb strings.Builder
	sb.WriteString(string(r.Kind))
	if r.FunctionID != "" {
		fmt.Fprintf(&sb, " [%s]", r.FunctionID)
	}
	if r.Input != nil {
		fmt.Fprintf(&sb, " input %s", r.Input)
	}
	if len(r.Cycle) > 0 {
		fmt.Fprintf(&sb, " cycle %s", strings.Join(r.Cycle, " -> "))
	}
	if r.Detail != "" {
		fmt.Fprintf(&sb, ": %s", r.Detail)
	}
	return sb.String()
}

// Failure records why a requirement could not be satisfied.
type Failure struct {
	Requirement value.ValueRequirement `json:"requirement"`
	Kind        FailureKind            `json:"kind"`
	Reasons     []Reason               `json:"reasons"`
}

// NewFailure derives the failure kind from the reasons: Cyclic when every
// reason is a cycle, NoFunction when nothing applied, else Unsatisfiable.
func NewFailure(req value.ValueRequirement, reasons []Reason) *Failure {
	kind := Unsatisfiable
	switch {
	case len(reasons) == 1 && reasons[0].Kind == NoApplicableFunction:
		kind = NoFunction
	case len(reasons) > 0 && allCycles(reasons):
		kind = Cyclic
	}
	return &Failure{Requirement: req, Kind: kind, Reasons: reasons}
}

func allCycles(reasons []Reason) bool {
	for _, r := range reasons {
		if r.Kind != WouldCreateCycle {
			return false
		}
	}
	return true
}

// CycleFailure is the failure of a requirement found on its own resolution
// path. path holds the requirement keys from the ancestor to the repeat.
func CycleFailure(req value.ValueRequirement, path []string) *Failure {
	return &Failure{
		Requirement: req,
		Kind:        Cyclic,
		Reasons:     []Reason{{Kind: WouldCreateCycle, Cycle: path}},
	}
}

func (f *Failure) String() string {
	reasons := make([]string, 0, len(f.Reasons))
	for _, r := range f.Reasons {
		reasons = append(reasons, r.String())
	}
	return fmt.Sprintf("%s: %s (%s)", f.Requirement, f.Kind, strings.Join(reasons, "; "))
}

// Resolution is a successful resolution: the chosen function applied to the
// target, producing Spec, with one resolved input per declared requirement.
type Resolution struct {
	Requirement value.ValueRequirement
	Function    function.Function
	Target      *value.ComputationTarget
	Spec        value.ValueSpecification
	// Requirements are the function's declared inputs, aligned with Inputs.
	Requirements []value.ValueRequirement
	Inputs       []*Resolution
	// Rejections are the candidates tried and rejected before this one.
	Rejections []Reason
}

// Walk visits r and every resolution below it, depth first, inputs in order.
// Shared sub-resolutions are visited once.
func (r *Resolution) Walk(visit func(*Resolution)) {
	seen := make(map[*Resolution]struct{})
	var walk func(*Resolution)
	walk = func(n *Resolution) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		visit(n)
		for _, in := range n.Inputs {
			walk(in)
		}
	}
	walk(r)
}

// Outcome is either a Resolution or a Failure.
type Outcome struct {
	Resolution *Resolution
	Failure    *Failure
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Resolution != nil }

// Success wraps a resolution.
func Success(r *Resolution) Outcome { return Outcome{Resolution: r} }

// Fail wraps a failure.
func Fail(f *Failure) Outcome { return Outcome{Failure: f} }
