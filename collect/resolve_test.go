package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boutNames = []string{"Ne", "Pe", "Pi", "phi", "Phi_0", "t_array", "MXSUB", "MXG", "wall_flux"}

func TestResolveName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ne", "Ne"},
		{"phi", "phi"},
		{"ne", "Ne"},
		{"PE", "Pe"},
		{"t_arr", "t_array"},
		{"wall", "wall_flux"},
		{"mxs", "MXSUB"},
		{"phi_", "Phi_0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveName(tt.name, boutNames)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNameIdempotent(t *testing.T) {
	for _, n := range boutNames {
		got, err := ResolveName(n, boutNames)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestResolveNameFailures(t *testing.T) {
	_, err := ResolveName("P", boutNames)
	assert.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "Pe")

	_, err = ResolveName("mx", boutNames)
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = ResolveName("vort", boutNames)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveName("ne", []string{"Ne", "NE"})
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = ResolveName("x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
