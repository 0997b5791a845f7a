package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *testing.T) {
	cases := map[string]*int{
		"42":      intp(42),
		" 7 ":     intp(7),
		"12 anos": intp(12),
		"-3":      intp(-3),
		"":        nil,
		"abc":     nil,
		"+":       nil,
	}
	for in, want := range cases {
		got := ParseInt(in)
		if want == nil {
			assert.Nil(t, got, in)
			continue
		}
		require.NotNil(t, got, in)
		assert.Equal(t, *want, *got, in)
	}
}

func TestParseDecimal(t *testing.T) {
	got := ParseDecimal("1500,50")
	require.NotNil(t, got)
	assert.InDelta(t, 1500.5, *got, 1e-9)

	got = ParseDecimal("980.25 reais")
	require.NotNil(t, got)
	assert.InDelta(t, 980.25, *got, 1e-9)

	got = ParseDecimal("12.")
	require.NotNil(t, got)
	assert.InDelta(t, 12.0, *got, 1e-9)

	assert.Nil(t, ParseDecimal(""))
	assert.Nil(t, ParseDecimal("."))
	assert.Nil(t, ParseDecimal("n/a"))
}

func intp(v int) *int { return &v }
