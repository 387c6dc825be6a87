// Package registry provides the function repository.
//
// The Registry is the mutable, start-up side: Go-coded modules register their
// functions into it, declared functions are added from the configuration
// model, and Validate checks the whole catalogue for consistency before it is
// used.
//
// Snapshot freezes the registry into a Repository: an immutable, versioned
// catalogue indexed by output value name, shared read-only by every build.
package registry
