// Package scheduler provides the bounded worker pool used by graph builds.
//
// Top-level requirements are dispatched with Go, which blocks until a worker
// slot is free and doubles as the cancellation check at dispatch. Sibling
// sub-requirements are dispatched with TryGo, which uses a free slot when
// there is one and otherwise runs the task inline on the caller's goroutine.
// Tasks never block waiting for a slot while holding one, so nested fan-out
// cannot exhaust the pool.
package scheduler
