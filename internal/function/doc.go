// Package function defines the Function interface the graph builder resolves
// requirements against, and Declared, its implementation for functions
// declared in the configuration catalogue.
//
// A function answers three questions about a target: whether it applies
// (CanApplyTo), which values it can produce there (Results, possibly as
// templates carrying wildcards the resolver binds later), and what it needs
// as input to produce a given bound specification (Requirements). Functions
// hold no graph state; repeated calls with the same arguments return equal
// answers.
package function
