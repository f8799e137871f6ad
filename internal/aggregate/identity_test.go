package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactName(t *testing.T) {
	r := ExactName{}
	assert.Equal(t, "exact", r.Name())
	assert.Equal(t, "Acme Plumbing", r.Key("Acme Plumbing"))
	assert.NotEqual(t, r.Key("Acme Plumbing"), r.Key("acme plumbing"))
}

func TestNormalizedName(t *testing.T) {
	r := NormalizedName{}
	tests := []struct {
		a, b string
	}{
		{"Acme Plumbing", "ACME PLUMBING"},
		{"Acme Plumbing, Inc.", "acme plumbing"},
		{"Smith & Sons", "smith and sons"},
		{"Bolt-Electric  LLC", "bolt electric"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.Equal(t, r.Key(tt.b), r.Key(tt.a))
		})
	}
	assert.NotEqual(t, r.Key("Acme Plumbing"), r.Key("Acme Roofing"))
}

func TestResolverByName(t *testing.T) {
	r, err := ResolverByName("")
	require.NoError(t, err)
	assert.Equal(t, "exact", r.Name())

	r, err = ResolverByName("normalized")
	require.NoError(t, err)
	assert.Equal(t, "normalized", r.Name())

	_, err = ResolverByName("fuzzy")
	require.Error(t, err)
}
