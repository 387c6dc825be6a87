// Package targets provides the in-memory computation target universe that
// resolves target references to ComputationTargets.
//
// The universe is written once while loading the configuration and read
// concurrently by every build, so targets live in a sync.Map keyed by
// TargetSpec.
//
// PRIMITIVE targets name plain identifiers (curves, currencies) and need no
// declaration: an unknown PRIMITIVE reference resolves to a target without
// attributes. Every other type must be declared.
package targets
