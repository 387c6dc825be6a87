// Package engine owns the live function repository and the resolution cache
// shared by every build.
//
// Reloading a repository and its target universe is serialized and bumps the
// engine version, which discards the whole cache generation. A build takes
// its repository, universe and cache generation together under a read lock
// and keeps them until it finishes, so a concurrent reload never mixes two
// catalogues or two universes inside one graph.
package engine
