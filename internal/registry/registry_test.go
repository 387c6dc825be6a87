package registry

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/testutil"
	"github.com/vk/valuegraph/internal/value"
)

type fakeModule struct{ ids []string }

func (m *fakeModule) Register(r *Registry) error {
	for _, id := range m.ids {
		if err := r.Register(testutil.NewFunc(id, value.TargetSecurity, "PresentValue"), Options{}); err != nil {
			return err
		}
	}
	return nil
}

func TestRegister_Duplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testutil.NewFunc("A", value.TargetSecurity, "PV"), Options{}))
	err := r.Register(testutil.NewFunc("A", value.TargetPosition, "PV"), Options{})
	assert.ErrorIs(t, err, ErrDuplicateFunction)
	assert.Panics(t, func() { r.MustRegister(testutil.NewFunc("A", value.TargetSecurity, "PV"), Options{}) })
	assert.Equal(t, 1, r.Len())
}

func TestModule_Register(t *testing.T) {
	r := New()
	var m Module = &fakeModule{ids: []string{"X", "Y"}}
	require.NoError(t, m.Register(r))
	assert.Equal(t, 2, r.Len())

	err := (&fakeModule{ids: []string{"Z", "X"}}).Register(r)
	assert.ErrorIs(t, err, ErrDuplicateFunction)
}

func TestSnapshot_CandidateOrder(t *testing.T) {
	r := New()
	r.MustRegister(testutil.NewFunc("Low", value.TargetSecurity, "PV"), Options{Priority: 1})
	r.MustRegister(testutil.NewFunc("HighFirst", value.TargetSecurity, "PV", "Delta"), Options{Priority: 5})
	r.MustRegister(testutil.NewFunc("HighSecond", value.TargetSecurity, "PV"), Options{Priority: 5})
	r.MustRegister(testutil.NewFunc("Other", value.TargetSecurity, "Gamma"), Options{Priority: 9})

	repo, err := r.Snapshot("1.4.0")
	require.NoError(t, err)

	var ids []string
	for _, e := range repo.Candidates("PV") {
		ids = append(ids, e.Function.ID())
	}
	assert.Equal(t, []string{"HighFirst", "HighSecond", "Low"}, ids)
	assert.Len(t, repo.Candidates("Delta"), 1)
	assert.Empty(t, repo.Candidates("Unknown"))

	e, ok := repo.Lookup("Low")
	require.True(t, ok)
	assert.Equal(t, 0, e.Order)
	assert.Equal(t, 4, repo.Len())
	assert.Equal(t, "1.4.0", repo.Version().Label.String())
}

func TestSnapshot_IsImmutable(t *testing.T) {
	r := New()
	r.MustRegister(testutil.NewFunc("A", value.TargetSecurity, "PV"), Options{})
	first, err := r.Snapshot("")
	require.NoError(t, err)

	r.MustRegister(testutil.NewFunc("B", value.TargetSecurity, "PV"), Options{})
	second, err := r.Snapshot("")
	require.NoError(t, err)

	assert.Len(t, first.Candidates("PV"), 1)
	assert.Len(t, second.Candidates("PV"), 2)
	assert.Less(t, first.Version().Generation, second.Version().Generation)
	assert.Nil(t, first.Version().Label)
	assert.Equal(t, "gen-1", first.Version().String())

	// Mutating the returned slice must not affect the index.
	list := second.Candidates("PV")
	list[0] = nil
	assert.NotNil(t, second.Candidates("PV")[0])
}

func TestSnapshot_InvalidLabel(t *testing.T) {
	_, err := New().Snapshot("not-a-version")
	assert.Error(t, err)
}

func parse(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors())
	return e
}

func TestPopulateFromModel(t *testing.T) {
	model := config.NewModel()
	model.Functions = []*config.FunctionDefinition{
		{ID: "SwapPV", TargetType: "SECURITY", Priority: 3, Outputs: []*config.OutputDefinition{{Name: "PV"}}},
		{ID: "CurveProvider", TargetType: "PRIMITIVE", Outputs: []*config.OutputDefinition{{Name: "YieldCurve"}}},
	}

	r := New()
	require.NoError(t, r.PopulateFromModel(context.Background(), model))
	require.NoError(t, r.Validate(context.Background()))

	repo, err := r.Snapshot("")
	require.NoError(t, err)
	e, ok := repo.Lookup("SwapPV")
	require.True(t, ok)
	assert.Equal(t, 3, e.Priority)
}

func TestPopulateFromModel_CollectsErrors(t *testing.T) {
	model := config.NewModel()
	model.Functions = []*config.FunctionDefinition{
		{ID: "Bad", TargetType: "BOND", Outputs: []*config.OutputDefinition{{Name: "PV"}}},
		{ID: "Dup", TargetType: "SECURITY", Outputs: []*config.OutputDefinition{{Name: "PV"}}},
		{ID: "Dup", TargetType: "SECURITY", Outputs: []*config.OutputDefinition{{Name: "PV"}}},
		{
			ID: "UnknownVar", TargetType: "SECURITY",
			Condition: parse(t, `var.x == 1`),
			Outputs:   []*config.OutputDefinition{{Name: "PV"}},
		},
	}

	err := New().PopulateFromModel(context.Background(), model)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown target type")
	assert.ErrorIs(t, err, ErrDuplicateFunction)
	assert.ErrorContains(t, err, "unknown variable 'var'")
}

func TestValidate(t *testing.T) {
	r := New()
	r.MustRegister(testutil.NewFunc("NoOutputs", value.TargetSecurity), Options{})
	r.MustRegister(testutil.NewFunc("Twice", value.TargetSecurity, "PV", "PV"), Options{})
	r.MustRegister(testutil.NewFunc("BadType", value.TargetType("BOND"), "PV"), Options{})

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "registry validation failed")
	assert.ErrorContains(t, err, "'NoOutputs': declares no outputs")
	assert.ErrorContains(t, err, "output 'PV' declared twice")
	assert.ErrorContains(t, err, "unknown target type")
}
