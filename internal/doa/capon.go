package doa

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
)

// Capon is the minimum-variance distortionless-response beamformer.
type Capon struct {
	src  Collector
	grid []float64
}

// NewCapon scans grid (in the geometry's angle unit) over snapshots drawn from src.
func NewCapon(src Collector, grid []float64) (*Capon, error) {
	if src == nil {
		return nil, fmt.Errorf("capon: nil collector: %w", doaerr.ErrConfiguration)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("capon: empty angle grid: %w", doaerr.ErrConfiguration)
	}
	return &Capon{src: src, grid: append([]float64(nil), grid...)}, nil
}

func (c *Capon) Grid() []float64 { return c.grid }

// Estimate collects a snapshot of sources at angles and returns the Capon power over the
// grid.
func (c *Capon) Estimate(angles []float64, snrDB float64) ([]float64, error) {
	x, err := c.src.Collect(angles, snrDB)
	if err != nil {
		return nil, fmt.Errorf("capon: %w", err)
	}
	return c.Spectrum(x)
}

// Spectrum returns the output power mean_t |wᴴx_t|² of the MVDR beamformer
// w = R⁻¹a / (aᴴR⁻¹a) steered at every grid angle.
func (c *Capon) Spectrum(x *mat.CDense) ([]float64, error) {
	geom := c.src.Geometry()
	if err := checkChannels(x, geom.NumAntenna(), "capon"); err != nil {
		return nil, err
	}
	samples, _ := x.Dims()
	rinv, err := cmat.Inverse(cmat.Covariance(x))
	if errors.Is(err, cmat.ErrSingular) {
		return nil, fmt.Errorf("capon: invert covariance of %d samples: %w", samples, doaerr.ErrSingularMatrix)
	}
	if err != nil {
		return nil, fmt.Errorf("capon: %w", err)
	}

	a := geom.SteeringMatrix(c.grid)
	ra := cmat.Mul(rinv, a) // column k is R⁻¹a_k
	// Entry (t, k) is (R⁻¹a_k)ᴴx_t, the unnormalised beamformer output.
	y := cmat.Mul(x, cmat.Conj(ra))
	power := make([]float64, len(c.grid))
	for k := range c.grid {
		var denom complex128
		for i := 0; i < geom.NumAntenna(); i++ {
			denom += cmplx.Conj(a.At(i, k)) * ra.At(i, k)
		}
		norm := real(denom)*real(denom) + imag(denom)*imag(denom)
		var sum float64
		for t := 0; t < samples; t++ {
			v := y.At(t, k)
			sum += real(v)*real(v) + imag(v)*imag(v)
		}
		power[k] = sum / float64(samples) / norm
	}
	return power, nil
}
