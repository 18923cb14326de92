package doa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/logging"
)

// CRB computes the stochastic Cramér–Rao bound for uncorrelated equal-power sources in
// unit-variance white noise.
type CRB struct {
	geom       *array.Geometry
	numSamples int
	log        logging.Logger
}

// NewCRB returns a bound calculator for numSamples snapshots. A nil logger uses
// logging.Default().
func NewCRB(geom *array.Geometry, numSamples int, logger logging.Logger) (*CRB, error) {
	if geom == nil {
		return nil, fmt.Errorf("crb: nil geometry: %w", doaerr.ErrConfiguration)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("crb: sample count %d must be positive: %w", numSamples, doaerr.ErrConfiguration)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CRB{geom: geom, numSamples: numSamples, log: logger}, nil
}

// FisherInformation returns the real D×D Fisher information matrix for DOAs doas at
// per-source SNR snrDB. It fails only when the model covariance APAᴴ+I is too
// ill-conditioned to invert, which takes an extreme SNR.
func (c *CRB) FisherInformation(doas []float64, snrDB float64) (*mat.Dense, error) {
	d := len(doas)
	n := c.geom.NumAntenna()
	a := c.geom.SteeringMatrix(doas)
	da := c.geom.SteeringMatrixDerivative(doas)

	snr := complex(math.Pow(10, snrDB/10), 0)
	p := cmat.Identity(d)
	cmat.Scale(p, snr)

	r := cmat.AddScaled(cmat.Mul(cmat.Mul(a, p), cmat.H(a)), 1, cmat.Identity(n))
	rinv, err := cmat.Inverse(r)
	if err != nil {
		return nil, singular("crb: invert array covariance", err)
	}

	ah := cmat.H(a)
	rinvA := cmat.Mul(rinv, a)
	ahRinvA := cmat.Mul(ah, rinvA)
	rinvAPAhRinv := cmat.Mul(cmat.Mul(rinvA, p), cmat.Mul(ah, rinv))

	fim := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		dai := columns(da, i, i+1)
		pRowI := cmat.Block(p, i, i+1, 0, d)
		rinvDai := cmat.Mul(rinv, dai)
		for j := 0; j < d; j++ {
			daj := columns(da, j, j+1)
			pColJ := cmat.Block(p, 0, d, j, j+1)
			dajH := cmat.H(daj)
			cross := cmat.Mul(dai, dajH)
			cmat.Scale(cross, p.At(i, j))

			t1 := cmat.Mul(cmat.Mul(cmat.Mul(rinvDai, pRowI), ahRinvA), cmat.Mul(pColJ, dajH))
			t2 := cmat.Mul(rinv, cross)
			t3 := cmat.Mul(cmat.Mul(cmat.Mul(rinvA, pColJ), dajH), cmat.Mul(rinvDai, cmat.Mul(pRowI, ah)))
			t4 := cmat.Mul(rinvAPAhRinv, cross)

			sum := cmat.Trace(t1) + cmat.Trace(t2) + cmat.Trace(t3) + cmat.Trace(t4)
			fim.Set(i, j, float64(c.numSamples)*real(sum))
		}
	}
	return fim, nil
}

// Stochastic returns the bound on the variance (radians²) of each DOA. A singular Fisher
// matrix, e.g. when a source sits at endfire where the steering derivative vanishes, is
// logged and yields +Inf for every entry.
func (c *CRB) Stochastic(doas []float64, snrDB float64) []float64 {
	if len(doas) == 0 {
		return []float64{}
	}
	fim, err := c.FisherInformation(doas, snrDB)
	if err == nil && len(doas) == 1 {
		if f := fim.At(0, 0); f > 0 {
			return []float64{1 / f}
		}
		err = cmat.ErrSingular
	}
	var inv *mat.Dense
	if err == nil {
		inv, err = cmat.InverseReal(fim)
	}
	if err != nil {
		c.log.Warn("fisher information matrix is singular or poorly conditioned",
			logging.F("doas", len(doas)), logging.F("snr_db", snrDB), logging.F("err", err))
		out := make([]float64, len(doas))
		for i := range out {
			out[i] = math.Inf(1)
		}
		return out
	}
	out := make([]float64, len(doas))
	for i := range out {
		out[i] = inv.At(i, i)
	}
	return out
}
