package doa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoDOA/internal/doaerr"
)

func TestCaponResolvesTwoSources(t *testing.T) {
	src := newSource(t, 8, 400, 2, false, 3)
	grid := degreeGrid(-90, 90, 0.5)
	c, err := NewCapon(src, grid)
	require.NoError(t, err)

	p, err := c.Estimate([]float64{-20, 15}, 15)
	require.NoError(t, err)
	require.Len(t, p, len(grid))

	assert.InDelta(t, -20, peakNear(grid, p, -20, 5), 1)
	assert.InDelta(t, 15, peakNear(grid, p, 15, 5), 1)
	// Away from the sources the distortionless response sits near the noise floor.
	assert.Greater(t, p[int((-20+90)/0.5)], 10*p[int((60+90)/0.5)])
}

func TestCaponSingularCovariance(t *testing.T) {
	src := newSource(t, 8, 5, 1, false, 1)
	c, err := NewCapon(src, degreeGrid(-90, 90, 1))
	require.NoError(t, err)
	_, err = c.Estimate([]float64{10}, 10)
	assert.ErrorIs(t, err, doaerr.ErrSingularMatrix)
}

func TestCaponValidation(t *testing.T) {
	src := newSource(t, 4, 50, 2, false, 1)
	_, err := NewCapon(src, nil)
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)
	_, err = NewCapon(nil, []float64{0})
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)

	c, err := NewCapon(src, []float64{0})
	require.NoError(t, err)
	_, err = c.Estimate([]float64{10}, 10)
	assert.ErrorIs(t, err, doaerr.ErrDimensionMismatch)

	other := newSource(t, 6, 50, 1, false, 1)
	x, err := other.Collect([]float64{0}, 0)
	require.NoError(t, err)
	_, err = c.Spectrum(x)
	assert.ErrorIs(t, err, doaerr.ErrDimensionMismatch)
}
