package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	d, err := Parse("50.00")
	require.NoError(t, err)
	assert.Equal(t, "50", d.String())
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("fifty")
	assert.Error(t, err)
}

func TestParse_Zero(t *testing.T) {
	_, err := Parse("0")
	assert.Error(t, err)
}

func TestParse_Negative(t *testing.T) {
	_, err := Parse("-1.50")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"100.00", "100.00", true},
		{"100.00", "100", true},
		{"50.0", "50.00", true},
		{"99.994", "100.00", false},
		{"100.001", "100.00", false},
		{"abc", "100.00", false},
		{"100.00", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Equal(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
