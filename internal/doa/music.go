package doa

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
)

// musicFloor replaces non-positive projections before taking the reciprocal.
const musicFloor = 1e-6

// Music evaluates the MUSIC pseudo-spectrum over a fixed angle grid.
//
// The manifold over the grid is built lazily and memoised by antenna count, so a Music
// value must not be shared between goroutines.
type Music struct {
	geom        *array.Geometry
	grid        []float64
	numSubarray int

	manifoldKey int
	manifold    *mat.CDense
}

// NewMusic returns a MUSIC estimator. A positive numSubarray evaluates the manifold for
// the N−(K−1) element aperture of a spatially smoothed covariance; zero disables it.
func NewMusic(geom *array.Geometry, grid []float64, numSubarray int) (*Music, error) {
	if geom == nil {
		return nil, fmt.Errorf("music: nil geometry: %w", doaerr.ErrConfiguration)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("music: empty angle grid: %w", doaerr.ErrConfiguration)
	}
	if numSubarray < 0 || numSubarray > geom.NumAntenna() {
		return nil, fmt.Errorf("music: subarray count %d outside [0, %d]: %w", numSubarray, geom.NumAntenna(), doaerr.ErrInvalidParameter)
	}
	return &Music{geom: geom, grid: append([]float64(nil), grid...), numSubarray: numSubarray}, nil
}

func (m *Music) Grid() []float64 { return m.grid }

// Aperture returns the number of elements the manifold is evaluated for.
func (m *Music) Aperture() int {
	if m.numSubarray > 0 {
		return m.geom.NumAntenna() - (m.numSubarray - 1)
	}
	return m.geom.NumAntenna()
}

func (m *Music) manifoldFor(n int) *mat.CDense {
	if m.manifold == nil || m.manifoldKey != n {
		m.manifold = m.geom.SteeringMatrixN(m.grid, n)
		m.manifoldKey = n
	}
	return m.manifold
}

// Estimate returns the pseudo-spectrum of the sample covariance of x assuming
// numSources signals.
func (m *Music) Estimate(x *mat.CDense, numSources int) ([]float64, error) {
	return m.EstimateCovariance(cmat.Covariance(x), numSources)
}

// EstimateCovariance is Estimate for a precomputed (possibly smoothed) covariance.
func (m *Music) EstimateCovariance(r *mat.CDense, numSources int) ([]float64, error) {
	aperture := m.Aperture()
	if rows, cols := r.Dims(); rows != aperture || cols != aperture {
		return nil, fmt.Errorf("music: covariance is %d×%d, want %d×%d: %w", rows, cols, aperture, aperture, doaerr.ErrDimensionMismatch)
	}
	if numSources < 0 || numSources >= aperture {
		return nil, fmt.Errorf("music: source count %d outside [0, %d): %w", numSources, aperture, doaerr.ErrInvalidParameter)
	}
	vecs, err := eigenvectors(r, "music")
	if err != nil {
		return nil, err
	}
	return m.EstimateNoiseSubspace(columns(vecs, numSources, aperture))
}

// EstimateNoiseSubspace evaluates 1/(aᴴ·En·Enᴴ·a) over the grid for a noise subspace
// whose columns span the complement of the signal directions.
func (m *Music) EstimateNoiseSubspace(en *mat.CDense) ([]float64, error) {
	aperture := m.Aperture()
	if rows, _ := en.Dims(); rows != aperture {
		return nil, fmt.Errorf("music: noise subspace has %d rows, want %d: %w", rows, aperture, doaerr.ErrDimensionMismatch)
	}
	a := m.manifoldFor(aperture)
	// aᴴEnEnᴴa = Σ_c |(Enᴴa)_c|², evaluated as p = diag(AᴴPA) with P = EnEnᴴ.
	proj := cmat.Mul(cmat.MulBH(en, en), a)
	out := make([]float64, len(m.grid))
	for k := range m.grid {
		var p complex128
		for i := 0; i < aperture; i++ {
			p += cmplx.Conj(a.At(i, k)) * proj.At(i, k)
		}
		if nonPositive(p) {
			p = musicFloor
		}
		out[k] = cmplx.Abs(1 / p)
	}
	return out, nil
}

// nonPositive orders complex values by real part, then imaginary part.
func nonPositive(p complex128) bool {
	return real(p) < 0 || (real(p) == 0 && imag(p) <= 0)
}
