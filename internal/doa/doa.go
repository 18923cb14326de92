// Package doa implements direction-of-arrival estimators for uniform linear arrays
// (Capon, MUSIC, Root-MUSIC, ESPRIT and a conventional beamscan) together with the
// stochastic Cramér–Rao bound used to grade them.
//
// Angles are expressed in the unit of the array geometry for grids and inputs.
// Root-MUSIC, ESPRIT and the bound report radians.
package doa

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
)

// Collector produces snapshots for estimators that draw their own data.
// *source.Source satisfies it.
type Collector interface {
	Collect(angles []float64, snrDB float64) (*mat.CDense, error)
	CollectDoublets(angles []float64, snrDB float64) (*mat.CDense, error)
	Geometry() *array.Geometry
	NumTarget() int
}

// hermitianTol is the largest asymmetry, relative to the largest entry, for which a
// covariance is treated as Hermitian.
const hermitianTol = 1e-9

// eigenvectors returns the left singular vectors of r sorted by descending singular
// value. For a Hermitian positive semidefinite r these are its eigenvectors, which are
// taken directly; other inputs, such as an improved-smoothing covariance, go through r·rᴴ.
func eigenvectors(r *mat.CDense, who string) (*mat.CDense, error) {
	decompose := cmat.LeftSingular
	if cmat.IsHermitian(r, hermitianTol*maxAbs(r)) {
		decompose = cmat.EigenHermitian
	}
	_, vecs, err := decompose(r)
	if err != nil {
		return nil, fmt.Errorf("%s: eigen decomposition: %w", who, err)
	}
	return vecs, nil
}

func maxAbs(a *mat.CDense) float64 {
	r, c := a.Dims()
	var m float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m = max(m, cmplx.Abs(a.At(i, j)))
		}
	}
	return m
}

// columns copies columns [c0, c1) of a.
func columns(a *mat.CDense, c0, c1 int) *mat.CDense {
	r, _ := a.Dims()
	return cmat.Block(a, 0, r, c0, c1)
}

func checkChannels(x *mat.CDense, want int, who string) error {
	if _, c := x.Dims(); c != want {
		return fmt.Errorf("%s: snapshot has %d channels, want %d: %w", who, c, want, doaerr.ErrDimensionMismatch)
	}
	return nil
}
