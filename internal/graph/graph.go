package graph

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/valuegraph/internal/dag"
	"github.com/vk/valuegraph/internal/value"
)

// TerminalOutput maps a requested requirement to the specification that
// satisfies it.
type TerminalOutput struct {
	Requirement   value.ValueRequirement   `json:"requirement"`
	Specification value.ValueSpecification `json:"specification"`
	NodeID        string                   `json:"node"`
}

// Graph owns the nodes of one calculation configuration.
type Graph struct {
	calcConfig string

	mu          sync.RWMutex
	topology    *dag.Graph
	nodes       map[string]*Node
	terminals   map[string]TerminalOutput
	unsatisfied map[string]value.ValueRequirement
}

// New creates an empty graph for a calculation configuration.
func New(calcConfig string) *Graph {
	return &Graph{
		calcConfig:  calcConfig,
		topology:    dag.New(),
		nodes:       make(map[string]*Node),
		terminals:   make(map[string]TerminalOutput),
		unsatisfied: make(map[string]value.ValueRequirement),
	}
}

// CalculationConfiguration returns the name the graph was built for.
func (g *Graph) CalculationConfiguration() string { return g.calcConfig }

// AddNode inserts n unless a node with the same ID exists. It returns the
// node now stored under that ID.
func (g *Graph) AddNode(n *Node) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	g.nodes[n.ID] = n
	g.topology.AddNode(n.ID)
	return n
}

// AddEdge records that consumer takes an input produced by producer.
func (g *Graph) AddEdge(producerID, consumerID string) error {
	return g.topology.AddEdge(producerID, consumerID)
}

// SetTerminal records the satisfied requested requirement req.
func (g *Graph) SetTerminal(req value.ValueRequirement, spec value.ValueSpecification, nodeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[nodeID]; !ok {
		return fmt.Errorf("terminal output %s refers to unknown node %s", req, nodeID)
	}
	g.terminals[req.Key()] = TerminalOutput{Requirement: req, Specification: spec, NodeID: nodeID}
	return nil
}

// AddUnsatisfied records a requested requirement that could not be satisfied.
func (g *Graph) AddUnsatisfied(req value.ValueRequirement) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unsatisfied[req.Key()] = req
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lookupAll(slices.Sorted(maps.Keys(g.nodes)))
}

func (g *Graph) lookupAll(ids []string) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}

// Producers returns the nodes whose outputs feed the given node.
func (g *Graph) Producers(id string) ([]*Node, error) {
	ids, err := g.topology.Dependencies(id)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lookupAll(ids), nil
}

// Consumers returns the nodes that take an input from the given node.
func (g *Graph) Consumers(id string) ([]*Node, error) {
	ids, err := g.topology.Dependents(id)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lookupAll(ids), nil
}

// TerminalOutputs returns the satisfied requested requirements sorted by
// requirement key.
func (g *Graph) TerminalOutputs() []TerminalOutput {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]TerminalOutput, 0, len(g.terminals))
	for _, k := range slices.Sorted(maps.Keys(g.terminals)) {
		out = append(out, g.terminals[k])
	}
	return out
}

// Output returns the specification satisfying a requested requirement.
func (g *Graph) Output(req value.ValueRequirement) (value.ValueSpecification, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.terminals[req.Key()]
	return t.Specification, ok
}

// Unsatisfied returns the requested requirements that failed, sorted by key.
func (g *Graph) Unsatisfied() []value.ValueRequirement {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]value.ValueRequirement, 0, len(g.unsatisfied))
	for _, k := range slices.Sorted(maps.Keys(g.unsatisfied)) {
		out = append(out, g.unsatisfied[k])
	}
	return out
}

// DetectCycles returns an error wrapping dag.ErrCycle if any node depends on
// itself.
func (g *Graph) DetectCycles() error {
	return g.topology.DetectCycles()
}

// Prune removes every node that no terminal output transitively needs and
// returns how many were removed.
func (g *Graph) Prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	roots := make([]string, 0, len(g.terminals))
	for _, t := range g.terminals {
		roots = append(roots, t.NodeID)
	}
	live := make(map[string]struct{})
	for _, id := range g.topology.Reachable(roots...) {
		live[id] = struct{}{}
	}

	removed := 0
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		if _, ok := live[id]; ok {
			continue
		}
		g.topology.Remove(id)
		delete(g.nodes, id)
		removed++
	}
	return removed
}

// ExecutionOrder returns the nodes ordered so that every node follows its
// producers.
func (g *Graph) ExecutionOrder() ([]*Node, error) {
	ids, err := g.topology.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lookupAll(ids), nil
}
