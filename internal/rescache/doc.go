// Package rescache implements the resolution cache shared by graph builds.
//
// A Cache holds one Generation at a time. A generation memoizes two things
// for a single repository version:
//
//   - (requirement, target) -> outcome, stored as an Entry together with its
//     footprint, the set of requirement keys the outcome's computation
//     visited;
//   - (function, target, desired specification) -> declared requirements,
//     so a function is asked for its inputs at most once per generation.
//
// Entries are immutable once stored. Invalidation replaces the whole
// generation; builders keep the generation they started with.
//
// The generation also tracks in-flight resolutions so that concurrent callers
// asking for the same key wait for the first one instead of duplicating work.
// Waiting is refused when it could deadlock: flights form a graph of
// "cannot finish before" edges (a flight started below another, and a flight
// whose walker is waiting on another), and a wait that would close a loop in
// that graph is declined, leaving the caller to compute the key itself.
package rescache
