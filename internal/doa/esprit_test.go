package doa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoDOA/internal/doaerr"
)

func TestEspritRecoversAngles(t *testing.T) {
	for _, f := range []Formulation{LS, TLS} {
		t.Run(f.String(), func(t *testing.T) {
			src := newSource(t, 8, 500, 2, false, 31)
			e, err := NewEsprit(src)
			require.NoError(t, err)
			got, err := e.Estimate([]float64{-20, 15}, 30, 1, f)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.InDelta(t, -20, deg(got[0]), 0.5)
			assert.InDelta(t, 15, deg(got[1]), 0.5)
		})
	}
}

func TestEspritSingleSourceLargerDisplacement(t *testing.T) {
	src := newSource(t, 8, 300, 1, false, 4)
	e, err := NewEsprit(src)
	require.NoError(t, err)
	// Displacement 2 at half-wavelength spacing stays unambiguous for |θ| < 30°.
	got, err := e.Estimate([]float64{12}, 25, 2, TLS)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 12, deg(got[0]), 0.5)
}

func TestEspritValidation(t *testing.T) {
	src := newSource(t, 4, 50, 1, false, 1)
	e, err := NewEsprit(src)
	require.NoError(t, err)
	// 4 elements with displacement 4 would give empty Esx and Esy blocks.
	for _, d := range []int{0, -1, 4, 5} {
		_, err = e.Estimate([]float64{0}, 10, d, LS)
		assert.ErrorIs(t, err, doaerr.ErrInvalidParameter, "displacement %d", d)
	}
	_, err = e.Estimate([]float64{0}, 10, 1, Formulation(9))
	assert.ErrorIs(t, err, doaerr.ErrInvalidParameter)
	_, err = e.Estimate([]float64{0, 1}, 10, 1, LS)
	assert.ErrorIs(t, err, doaerr.ErrDimensionMismatch)

	_, err = NewEsprit(nil)
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)
}

func TestParseFormulation(t *testing.T) {
	f, err := ParseFormulation("LS")
	require.NoError(t, err)
	assert.Equal(t, LS, f)
	f, err = ParseFormulation("tls")
	require.NoError(t, err)
	assert.Equal(t, TLS, f)
	_, err = ParseFormulation("svd")
	assert.ErrorIs(t, err, doaerr.ErrInvalidParameter)
}
