package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/vk/valuegraph/internal/value"
)

// Node is one function application.
type Node struct {
	ID         string                     `json:"id"`
	FunctionID string                     `json:"function"`
	Target     value.TargetSpec           `json:"target"`
	Inputs     []value.ValueSpecification `json:"inputs"`
	Outputs    []value.ValueSpecification `json:"outputs"`
}

// NodeID derives the identity of the node applying functionID to target to
// produce output from the nodes in producers. Applications that produce the
// same specification from different upstream nodes get different IDs.
func NodeID(functionID string, target value.TargetSpec, output value.ValueSpecification, producers ...string) string {
	id := functionID + "|" + target.String() + "|" + output.Name + "{" + output.Properties.String() + "}"
	if len(producers) == 0 {
		return id
	}
	upstream := slices.Compact(slices.Sorted(slices.Values(producers)))
	sum := sha256.Sum256([]byte(strings.Join(upstream, "\n")))
	return id + "#" + hex.EncodeToString(sum[:6])
}

// NewNode creates a node producing output. Inputs are de-duplicated and
// sorted by key. producers are the IDs of the nodes feeding it.
func NewNode(functionID string, target value.TargetSpec, output value.ValueSpecification, inputs []value.ValueSpecification, producers ...string) *Node {
	return &Node{
		ID:         NodeID(functionID, target, output, producers...),
		FunctionID: functionID,
		Target:     target,
		Inputs:     sortSpecs(inputs),
		Outputs:    []value.ValueSpecification{output},
	}
}

func sortSpecs(specs []value.ValueSpecification) []value.ValueSpecification {
	out := slices.Clone(specs)
	slices.SortFunc(out, func(a, b value.ValueSpecification) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return slices.CompactFunc(out, func(a, b value.ValueSpecification) bool {
		return a.Key() == b.Key()
	})
}

// Produces reports whether the node outputs spec.
func (n *Node) Produces(spec value.ValueSpecification) bool {
	return slices.ContainsFunc(n.Outputs, spec.Equal)
}
