package value

import "fmt"

// ValueRequirement asks for a named value on a target, subject to property
// constraints. It is immutable; use Key as a map key.
type ValueRequirement struct {
	Name        string          `json:"name"`
	Target      TargetSpec      `json:"target"`
	Constraints ValueProperties `json:"constraints"`
}

// NewRequirement creates a requirement.
func NewRequirement(name string, target TargetSpec, constraints ValueProperties) ValueRequirement {
	return ValueRequirement{Name: name, Target: target, Constraints: constraints}
}

// Key returns a canonical string that is equal for equal requirements.
func (r ValueRequirement) Key() string {
	return r.Name + "@" + r.Target.String() + "{" + r.Constraints.String() + "}"
}

// Equal reports whether name, target and constraints are all equal.
func (r ValueRequirement) Equal(other ValueRequirement) bool {
	return r.Name == other.Name && r.Target == other.Target && r.Constraints.Equal(other.Constraints)
}

// IsSatisfiedBy reports whether spec meets this requirement.
func (r ValueRequirement) IsSatisfiedBy(spec ValueSpecification) bool {
	return Satisfies(spec, r)
}

func (r ValueRequirement) String() string {
	if r.Constraints.IsEmpty() {
		return fmt.Sprintf("%s on %s", r.Name, r.Target)
	}
	return fmt.Sprintf("%s on %s [%s]", r.Name, r.Target, r.Constraints)
}
