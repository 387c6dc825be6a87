package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_Builder(t *testing.T) {
	p := Properties().
		With("Currency", "USD", "EUR", "USD").
		WithAny("Curve").
		With("Config", "Default").
		Get()

	assert.Equal(t, []string{"Config", "Currency", "Curve"}, p.Keys())
	assert.Equal(t, []string{"EUR", "USD"}, p.Values("Currency"))
	assert.True(t, p.IsWildcard("Curve"))
	assert.Nil(t, p.Values("Curve"))
	assert.False(t, p.IsConcrete())

	v, ok := p.Value("Config")
	require.True(t, ok)
	assert.Equal(t, "Default", v)

	_, ok = p.Value("Currency")
	assert.False(t, ok, "a value set is not a single value")
}

func TestProperties_ZeroValue(t *testing.T) {
	var p ValueProperties
	assert.True(t, p.IsEmpty())
	assert.True(t, p.IsConcrete())
	assert.Equal(t, "", p.String())
	assert.True(t, p.Equal(Properties().Get()))
}

func TestProperties_CopyOnWrite(t *testing.T) {
	base := Properties().With("A", "x").Get()
	derived := base.With("B", "y").WithAny("C").Without("A")

	assert.Equal(t, "A=x", base.String())
	assert.Equal(t, "B=y,C=*", derived.String())
}

func TestProperties_IsSatisfiedBy(t *testing.T) {
	testCases := []struct {
		name     string
		req      string
		spec     string
		expected bool
	}{
		{name: "no constraints", req: "", spec: "A=x", expected: true},
		{name: "allowed value", req: "A=[x,y]", spec: "A=x,B=z", expected: true},
		{name: "disallowed value", req: "A=[x,y]", spec: "A=z", expected: false},
		{name: "wildcard accepts any", req: "A=*", spec: "A=anything", expected: true},
		{name: "wildcard needs presence", req: "A=*", spec: "B=x", expected: false},
		{name: "constrained key missing", req: "A=x", spec: "", expected: false},
		{name: "spec wildcard does not meet fixed set", req: "A=x", spec: "A=*", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := MustParseProperties(tc.req)
			spec := MustParseProperties(tc.spec)
			assert.Equal(t, tc.expected, req.IsSatisfiedBy(spec))
		})
	}
}

func TestProperties_Compose(t *testing.T) {
	p := MustParseProperties("Curve=Forward")
	defaults := MustParseProperties("Curve=Discount,Currency=USD")

	got := p.Compose(defaults)
	assert.Equal(t, "Currency=USD,Curve=Forward", got.String())
	assert.Equal(t, "Curve=Forward", p.String(), "receiver must not change")
}

func TestProperties_Intersect(t *testing.T) {
	a := MustParseProperties("A=[x,y,z],W=*")
	b := MustParseProperties("A=[y,z,q],B=k")

	values, ok := a.Intersect("A", b)
	require.True(t, ok)
	assert.Equal(t, []string{"y", "z"}, values)

	values, ok = a.Intersect("B", b)
	require.True(t, ok)
	assert.Equal(t, []string{"k"}, values)

	values, ok = a.Intersect("W", b)
	require.True(t, ok)
	assert.Nil(t, values, "wildcard against absent stays open")

	_, ok = MustParseProperties("A=x").Intersect("A", MustParseProperties("A=y"))
	assert.False(t, ok)
}

func TestProperties_TextMarshaling(t *testing.T) {
	p := Properties().With("Odd,Key", "a=b", "c d").WithAny("Star").Get()

	text, err := p.MarshalText()
	require.NoError(t, err)

	var back ValueProperties
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, p.Equal(back), "got %s", back)
}

func TestProperties_Map(t *testing.T) {
	p := MustParseProperties("A=[b,a],W=*")
	assert.Equal(t, map[string][]string{"A": {"a", "b"}, "W": {"*"}}, p.Map())
}
