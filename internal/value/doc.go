// Package value defines the immutable descriptors the graph builder reasons
// about: what a value is computed about (ComputationTarget), what a caller
// wants (ValueRequirement), what a function can produce (ValueSpecification),
// and the property-constraint algebra that matches the two.
//
// # Matching
//
// A specification satisfies a requirement when the value names and targets are
// equal and every key constrained by the requirement is present on the
// specification with an acceptable value. Wildcard constraints accept any value;
// keys the requirement does not mention are ignored.
//
// # Canonical strings
//
// Properties have a canonical textual form, `A=[bar,foo],B=*,C=x`, with keys and
// values sorted. The same syntax is accepted by ParseProperties and is used for
// default-property configuration. Requirement and specification keys built from
// the canonical form are stable and are used as cache and graph identifiers.
package value
