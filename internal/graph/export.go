package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// dotQuote quotes an ID for DOT.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// dotLabel quotes lines for a DOT label, separated by DOT line breaks.
func dotLabel(lines ...string) string {
	escaped := make([]string, len(lines))
	for i, l := range lines {
		escaped[i] = dotEscaper.Replace(l)
	}
	return `"` + strings.Join(escaped, `\n`) + `"`
}

type nodeJSON struct {
	*Node
	Dependencies []string `json:"dependencies"`
}

type graphJSON struct {
	CalcConfig  string           `json:"calc_config"`
	Nodes       []nodeJSON       `json:"nodes"`
	Terminals   []TerminalOutput `json:"terminal_outputs"`
	Unsatisfied []any            `json:"unsatisfied"`
}

// MarshalJSON encodes the nodes with their dependencies, the terminal outputs
// and the unsatisfied requirements, all in sorted order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		CalcConfig:  g.calcConfig,
		Nodes:       []nodeJSON{},
		Terminals:   g.TerminalOutputs(),
		Unsatisfied: []any{},
	}
	for _, n := range g.Nodes() {
		deps, err := g.topology.Dependencies(n.ID)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, nodeJSON{Node: n, Dependencies: deps})
	}
	for _, r := range g.Unsatisfied() {
		out.Unsatisfied = append(out.Unsatisfied, r)
	}
	return json.Marshal(out)
}

// WriteDOT renders the graph in Graphviz DOT format. Terminal nodes are drawn
// with a double border.
func (g *Graph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)

	terminal := make(map[string]bool)
	for _, t := range g.TerminalOutputs() {
		terminal[t.NodeID] = true
	}

	fmt.Fprintf(bw, "digraph %s {\n", dotQuote(g.calcConfig))
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box];")

	nodes := g.Nodes()
	for _, n := range nodes {
		lines := []string{n.FunctionID, n.Target.String()}
		for _, o := range n.Outputs {
			lines = append(lines, o.Name)
		}
		attrs := "label=" + dotLabel(lines...)
		if terminal[n.ID] {
			attrs += ", peripheries=2"
		}
		fmt.Fprintf(bw, "  %s [%s];\n", dotQuote(n.ID), attrs)
	}
	for _, n := range nodes {
		deps, err := g.topology.Dependencies(n.ID)
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Fprintf(bw, "  %s -> %s;\n", dotQuote(d), dotQuote(n.ID))
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
