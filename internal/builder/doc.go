/*
Package builder turns requested value requirements into a dependency graph of
function applications.

Each top-level requirement is resolved by a depth-first search:

 1. Lookup: a cached outcome for the requirement is reused when none of the
    requirements it visited is currently in progress above it.

 2. Candidate enumeration: the resolver lists the functions able to produce
    the value on the target, in priority order.

 3. Recursive descent: the first candidate whose declared inputs all resolve
    wins. Inputs of one candidate are resolved in parallel on the worker
    pool. A failing input rejects the candidate and the search backtracks
    to the next one; inputs that did resolve stay cached.

 4. Cycle check: an input that leads back to a requirement still being
    resolved on the current path rejects the candidate with a cycle reason.

 5. Acceptance and exhaustion: successes and failures are both plain values
    and are cached once they no longer depend on the path they were found on.

Cached outcomes are scoped to the target universe, the calculation
configuration and the binding policy, so builds share them only when all
three agree.

Afterwards the accepted resolution trees are assembled into a graph.Graph,
the graph is pruned to what the requested outputs need, and a Report lists
every unsatisfied requirement together with the candidates rejected on the
way to each success.

Only a broken internal invariant aborts a build (ErrInvariantViolation).
Cancellation ends a build with StatusCancelled and no graph; outcomes cached
before it remain valid.
*/
package builder
