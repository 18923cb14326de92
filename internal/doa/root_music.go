package doa

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/dsp"
)

// unitCircleTol admits roots that land numerically just outside the unit circle.
const unitCircleTol = 1e-9

// RootMusic solves the MUSIC null-spectrum polynomial instead of scanning a grid.
type RootMusic struct {
	geom      *array.Geometry
	numTarget int
}

func NewRootMusic(geom *array.Geometry, numTarget int) (*RootMusic, error) {
	if geom == nil {
		return nil, fmt.Errorf("root-music: nil geometry: %w", doaerr.ErrConfiguration)
	}
	if numTarget <= 0 {
		return nil, fmt.Errorf("root-music: target count %d must be positive: %w", numTarget, doaerr.ErrConfiguration)
	}
	return &RootMusic{geom: geom, numTarget: numTarget}, nil
}

// Estimate returns up to numTarget arrival angles in radians, sorted ascending. Roots
// whose direction sine falls outside [-1, 1] are dropped, so the result may be short or
// empty.
func (rm *RootMusic) Estimate(x *mat.CDense) ([]float64, error) {
	n := rm.geom.NumAntenna()
	if err := checkChannels(x, n, "root-music"); err != nil {
		return nil, err
	}
	if rm.numTarget >= n {
		return nil, fmt.Errorf("root-music: %d targets need more than %d antennas: %w", rm.numTarget, n, doaerr.ErrInvalidParameter)
	}
	vecs, err := eigenvectors(cmat.Covariance(x), "root-music")
	if err != nil {
		return nil, err
	}
	en := columns(vecs, rm.numTarget, n)
	q := cmat.MulBH(en, en)

	// Bucket Q by diagonal offset; c[0] is the highest power.
	coeffs := make([]complex128, 2*n-1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			coeffs[n-1+i-j] += q.At(i, j)
		}
	}
	roots, err := cmat.Roots(coeffs)
	if err != nil {
		return nil, fmt.Errorf("root-music: polynomial roots: %w", err)
	}
	return rm.anglesFromRoots(roots), nil
}

func (rm *RootMusic) anglesFromRoots(roots []complex128) []float64 {
	// Roots come in pairs z, 1/conj(z) with equal phase; keep the member inside the
	// unit circle so a pair is never counted twice.
	inside := make([]complex128, 0, len(roots))
	for _, z := range roots {
		if cmplx.Abs(z) <= 1+unitCircleTol {
			inside = append(inside, z)
		}
	}
	if len(inside) < rm.numTarget {
		inside = roots
	}
	sort.SliceStable(inside, func(i, j int) bool {
		return math.Abs(cmplx.Abs(inside[i])-1) < math.Abs(cmplx.Abs(inside[j])-1)
	})
	if len(inside) > rm.numTarget {
		inside = inside[:rm.numTarget]
	}

	out := make([]float64, 0, len(inside))
	for _, z := range inside {
		s := dsp.PhaseToSine(cmplx.Phase(z), rm.geom.SpacingFraction())
		if math.Abs(s) > 1 {
			continue
		}
		out = append(out, math.Asin(s))
	}
	sort.Float64s(out)
	return out
}
