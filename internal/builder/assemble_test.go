package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/resolution"
	"github.com/vk/valuegraph/internal/testutil"
	"github.com/vk/valuegraph/internal/value"
)

func resolved(fn *testutil.Func, target *value.ComputationTarget, name string, inputs ...*resolution.Resolution) *resolution.Resolution {
	spec := value.NewSpecification(name, target.Spec(), value.Properties().With(value.PropertyFunction, fn.ID()).Get())
	reqs := make([]value.ValueRequirement, len(inputs))
	for i, in := range inputs {
		reqs[i] = in.Requirement
	}
	return &resolution.Resolution{
		Requirement:  requirement(name, target.Spec()),
		Function:     fn,
		Target:       target,
		Spec:         spec,
		Requirements: reqs,
		Inputs:       inputs,
	}
}

func entries(rs ...*resolution.Resolution) []*rescache.Entry {
	out := make([]*rescache.Entry, len(rs))
	for i, r := range rs {
		out[i] = &rescache.Entry{Key: r.Requirement.Key(), Outcome: resolution.Success(r)}
	}
	return out
}

func TestAssemble_SharesNodesBySpecification(t *testing.T) {
	target := value.NewTarget(swap, nil)
	curveFn := testutil.NewFunc("Curve", value.TargetSecurity, "Curve")
	// Two distinct resolution objects for the same specification.
	c1 := resolved(curveFn, target, "Curve")
	c2 := resolved(curveFn, target, "Curve")
	pv := resolved(testutil.NewFunc("PV", value.TargetSecurity, "PV"), target, "PV", c1)
	delta := resolved(testutil.NewFunc("Delta", value.TargetSecurity, "Delta"), target, "Delta", c2)

	g, report, err := assemble(context.Background(), "Default",
		[]value.ValueRequirement{pv.Requirement, delta.Requirement}, entries(pv, delta))
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Empty(t, report.Unsatisfied)
	assert.Empty(t, report.Rejections)
	consumers, err := g.Consumers(g.Nodes()[0].ID)
	require.NoError(t, err)
	assert.Len(t, consumers, 2)
}

func TestAssemble_SeparatesNodesWithDifferentInputs(t *testing.T) {
	target := value.NewTarget(swap, nil)
	fFn := testutil.NewFunc("F", value.TargetSecurity, "X")
	w := resolved(testutil.NewFunc("K0", value.TargetSecurity, "W"), target, "W")
	viaG1 := resolved(testutil.NewFunc("G1", value.TargetSecurity, "Y"), target, "Y", w)
	viaG0 := resolved(testutil.NewFunc("G0", value.TargetSecurity, "Y"), target, "Y")
	// Same specification X{Function=F}, fed from different producers.
	x1 := resolved(fFn, target, "X", viaG1)
	x2 := resolved(fFn, target, "X", viaG0)
	top := resolved(testutil.NewFunc("H", value.TargetSecurity, "Z"), target, "Z", x2)

	g, _, err := assemble(context.Background(), "Default",
		[]value.ValueRequirement{x1.Requirement, top.Requirement}, entries(x1, top))
	require.NoError(t, err)

	assert.Equal(t, 6, g.Len())
	assertWired(t, g)
	for _, term := range g.TerminalOutputs() {
		producers, err := g.Producers(term.NodeID)
		require.NoError(t, err)
		assert.Len(t, producers, 1, term.NodeID)
	}
}

func TestAssemble_OneProducerPerInputSpecification(t *testing.T) {
	target := value.NewTarget(swap, nil)
	yFn := testutil.NewFunc("G", value.TargetSecurity, "Y")
	plain := resolved(yFn, target, "Y")
	fed := resolved(yFn, target, "Y", resolved(testutil.NewFunc("K0", value.TargetSecurity, "W"), target, "W"))
	// Two requirements of one candidate satisfied by the same specification
	// through different trees.
	x := resolved(testutil.NewFunc("F", value.TargetSecurity, "X"), target, "X", plain, fed)

	g, _, err := assemble(context.Background(), "Default",
		[]value.ValueRequirement{x.Requirement}, entries(x))
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len(), "the unused tree is pruned")
	assertWired(t, g)
}

func TestAssemble_InvariantViolations(t *testing.T) {
	security := value.NewTarget(swap, nil)
	other := value.NewTarget(value.MustParseTargetSpec("SECURITY:SEC~OTHER"), nil)

	tests := []struct {
		name string
		res  func() *resolution.Resolution
	}{
		{
			name: "function cannot apply to target type",
			res: func() *resolution.Resolution {
				return resolved(testutil.NewFunc("Pos", value.TargetPosition, "PV"), security, "PV")
			},
		},
		{
			name: "specification on another target",
			res: func() *resolution.Resolution {
				r := resolved(testutil.NewFunc("F", value.TargetSecurity, "PV"), security, "PV")
				r.Spec.Target = other.Spec()
				return r
			},
		},
		{
			name: "input does not satisfy requirement",
			res: func() *resolution.Resolution {
				in := resolved(testutil.NewFunc("Curve", value.TargetSecurity, "Curve"), security, "Curve")
				r := resolved(testutil.NewFunc("F", value.TargetSecurity, "PV"), security, "PV", in)
				r.Requirements[0] = requirement("Price", swap)
				return r
			},
		},
		{
			name: "inputs misaligned",
			res: func() *resolution.Resolution {
				r := resolved(testutil.NewFunc("F", value.TargetSecurity, "PV"), security, "PV")
				r.Requirements = []value.ValueRequirement{requirement("Curve", swap)}
				return r
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.res()
			_, _, err := assemble(context.Background(), "Default", []value.ValueRequirement{r.Requirement}, entries(r))
			assert.ErrorIs(t, err, ErrInvariantViolation)
		})
	}
}
