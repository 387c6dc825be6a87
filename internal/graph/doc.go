// Package graph provides the dependency graph produced by a build: the
// artifact handed to an executor.
//
// # Structure
//
// A Graph is a facade over two parts:
//
//   - a topology (dag.Graph) holding node IDs and producer -> consumer edges;
//   - the node table, mapping each ID to its Node: one function applied to
//     one target, with the specifications it consumes and produces.
//
// On top of that it records the terminal outputs (which requested
// requirement is satisfied by which specification, produced by which node)
// and the requested requirements that could not be satisfied.
//
// # Lifecycle
//
//  1. Population: the builder adds nodes, edges and terminal outputs.
//  2. Finalization: Prune drops nodes not needed by any terminal output and
//     DetectCycles confirms the graph is acyclic.
//  3. Consumption: the graph is read-only from then on; ExecutionOrder,
//     WriteDOT and JSON encoding are the usual consumers.
//
// # Identity
//
// Node IDs are derived from the function id, the target, the produced
// specification and the IDs of the producing nodes, so adding an equal node
// twice returns the node already present. Two consumers of the same input
// therefore share one *Node, while the same specification computed from
// different upstream nodes stays two nodes.
package graph
