package doa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/source"
)

func degreeGrid(lo, hi, step float64) []float64 {
	n := int(math.Round((hi-lo)/step)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func newSource(t testing.TB, numAntenna, numSample, numTarget int, coherent bool, seed uint64) *source.Source {
	t.Helper()
	g, err := array.NewGeometry(numAntenna, 1e9, 0.5, array.Degrees)
	require.NoError(t, err)
	src, err := source.New(g, source.Config{
		NumSample: numSample,
		NumTarget: numTarget,
		Coherent:  coherent,
		Baseband:  true,
	}, source.NewRand(seed))
	require.NoError(t, err)
	return src
}

// peakNear returns the grid angle of the largest value within ±halfWidth of centre.
func peakNear(grid, spectrum []float64, centre, halfWidth float64) float64 {
	best := math.Inf(-1)
	at := math.NaN()
	for i, a := range grid {
		if math.Abs(a-centre) > halfWidth {
			continue
		}
		if spectrum[i] > best {
			best = spectrum[i]
			at = a
		}
	}
	return at
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
