package value

import "fmt"

// ValueSpecification describes a value a function produces. A resolved
// specification is concrete: every property is bound to exactly one value.
// Function results may be templates that still carry wildcards or value sets.
type ValueSpecification struct {
	Name       string          `json:"name"`
	Target     TargetSpec      `json:"target"`
	Properties ValueProperties `json:"properties"`
}

// NewSpecification creates a specification.
func NewSpecification(name string, target TargetSpec, properties ValueProperties) ValueSpecification {
	return ValueSpecification{Name: name, Target: target, Properties: properties}
}

// Key returns a canonical string that is equal for equal specifications.
func (s ValueSpecification) Key() string {
	return s.Name + "@" + s.Target.String() + "{" + s.Properties.String() + "}"
}

// Equal reports whether name, target and properties are all equal.
func (s ValueSpecification) Equal(other ValueSpecification) bool {
	return s.Name == other.Name && s.Target == other.Target && s.Properties.Equal(other.Properties)
}

// IsConcrete reports whether every property is bound to a single value.
func (s ValueSpecification) IsConcrete() bool {
	return s.Properties.IsConcrete()
}

// FunctionID returns the value of the Function property, if bound.
func (s ValueSpecification) FunctionID() string {
	id, _ := s.Properties.Value(PropertyFunction)
	return id
}

// AsRequirement returns the requirement that is satisfied exactly by this
// specification.
func (s ValueSpecification) AsRequirement() ValueRequirement {
	return ValueRequirement{Name: s.Name, Target: s.Target, Constraints: s.Properties}
}

func (s ValueSpecification) String() string {
	return fmt.Sprintf("%s on %s [%s]", s.Name, s.Target, s.Properties)
}

// Satisfies implements the matching rule between a specification and a
// requirement: same name, same target, a concrete specification, and every key
// constrained by the requirement present in the specification with an allowed
// value. Wildcard constraints accept any value; keys the requirement does not
// mention are ignored.
func Satisfies(spec ValueSpecification, req ValueRequirement) bool {
	if spec.Name != req.Name || spec.Target != req.Target {
		return false
	}
	if !spec.IsConcrete() {
		return false
	}
	return req.Constraints.IsSatisfiedBy(spec.Properties)
}
