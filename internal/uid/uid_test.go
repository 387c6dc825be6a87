// internal/uid/uid_test.go
package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueID_String(t *testing.T) {
	testCases := []struct {
		name        string
		id          UniqueID
		expectedStr string
	}{
		{name: "unversioned", id: UniqueID{Scheme: "SEC", Value: "SWAP1"}, expectedStr: "SEC~SWAP1"},
		{name: "versioned", id: UniqueID{Scheme: "PORTFOLIO", Value: "Main", Version: "3"}, expectedStr: "PORTFOLIO~Main~3"},
		{name: "zero", id: UniqueID{}, expectedStr: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStr, tc.id.String())
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, raw := range []string{"SEC~SWAP1", "CURVE~USD.3M", "PORTFOLIO~Main~3", "Test~1"} {
		t.Run(raw, func(t *testing.T) {
			id, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, id.String())

			again, err := Parse(id.String())
			require.NoError(t, err)
			assert.Equal(t, id, again)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{"", "NoTilde", "a~b~c~d", "~value", "scheme~", "sch eme~x", "a~b[1]"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestUnversioned(t *testing.T) {
	id := MustParse("PORTFOLIO~Main~3")
	assert.Equal(t, Of("PORTFOLIO", "Main"), id.Unversioned())
}

func TestOf_PanicsOnInvalidInput(t *testing.T) {
	assert.Panics(t, func() { Of("", "x") })
}
