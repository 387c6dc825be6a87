// Package dag is a small, concurrency-safe directed graph keyed by string
// IDs. An edge from A to B means B depends on A.
//
// It provides the topology operations the graph model needs: cycle detection,
// reachability over dependencies and a deterministic topological order.
// Every listing is sorted so results never depend on map iteration order.
package dag
