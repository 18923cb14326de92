// Package smoothing restores the rank of sample covariances of coherent sources by
// averaging over overlapping sub-arrays.
package smoothing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
)

func validate(x *mat.CDense, numAntenna, numSubarray int) error {
	if numSubarray < 1 || numSubarray > numAntenna {
		return fmt.Errorf("smoothing: subarray count %d outside [1, %d]: %w", numSubarray, numAntenna, doaerr.ErrInvalidParameter)
	}
	if _, c := x.Dims(); c != numAntenna {
		return fmt.Errorf("smoothing: snapshot has %d channels, want %d: %w", c, numAntenna, doaerr.ErrDimensionMismatch)
	}
	return nil
}

// FBSS returns the forward-backward spatially smoothed covariance of x
// (samples×antennas). The result is (N−K+1)×(N−K+1) and Hermitian.
func FBSS(x *mat.CDense, numAntenna, numSubarray int) (*mat.CDense, error) {
	if err := validate(x, numAntenna, numSubarray); err != nil {
		return nil, err
	}
	r := cmat.Covariance(x)
	p := numAntenna - numSubarray + 1
	rf := mat.NewCDense(p, p, nil)
	for i := 0; i < numSubarray; i++ {
		rf = cmat.AddScaled(rf, 1, cmat.Block(r, i, i+p, i, i+p))
	}
	cmat.Scale(rf, complex(1/float64(numSubarray), 0))

	out := cmat.AddScaled(rf, 1, cmat.Conj(cmat.Flip(rf)))
	cmat.Scale(out, 0.5)
	return out, nil
}

// Improved returns the improved spatially smoothed covariance of x: the forward and
// cross sub-array block sums, each multiplied by its own flipped copy, normalised by 2K.
func Improved(x *mat.CDense, numAntenna, numSubarray int) (*mat.CDense, error) {
	if err := validate(x, numAntenna, numSubarray); err != nil {
		return nil, err
	}
	r := cmat.Covariance(x)
	p := numAntenna - numSubarray + 1
	var (
		rii = mat.NewCDense(p, p, nil)
		rjj = mat.NewCDense(p, p, nil)
		rij = mat.NewCDense(p, p, nil)
		rji = mat.NewCDense(p, p, nil)
	)
	for i := 0; i < numSubarray; i++ {
		for j := 0; j < numSubarray; j++ {
			rii = cmat.AddScaled(rii, 1, cmat.Block(r, i, i+p, i, i+p))
			rjj = cmat.AddScaled(rjj, 1, cmat.Block(r, j, j+p, j, j+p))
			rij = cmat.AddScaled(rij, 1, cmat.Block(r, i, i+p, j, j+p))
			rji = cmat.AddScaled(rji, 1, cmat.Block(r, j, j+p, i, i+p))
		}
	}
	out := mat.NewCDense(p, p, nil)
	for _, b := range []*mat.CDense{rii, rjj, rij, rji} {
		out = cmat.AddScaled(out, 1, cmat.Mul(b, cmat.Flip(b)))
	}
	cmat.Scale(out, complex(1/(2*float64(numSubarray)), 0))
	return out, nil
}
