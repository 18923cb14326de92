// Package source synthesizes narrowband far-field snapshots received by a uniform linear
// array. It replaces a hardware receiver with a deterministic, seedable signal model.
package source

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
)

// DefaultSeed seeds the generator used when New is given a nil *rand.Rand.
const DefaultSeed = 0

// Config controls the emitted waveforms.
type Config struct {
	NumSample int
	NumTarget int
	Coherent  bool // one waveform shared by every target
	Baseband  bool // complex Gaussian waveforms instead of sampled carriers
}

// Source owns an array geometry and a random generator. A Source is not safe for
// concurrent use because every draw advances the generator.
type Source struct {
	geom *array.Geometry
	cfg  Config
	rng  *rand.Rand
	t    []float64 // RF sampling instants
}

// NewRand returns a PCG generator derived from seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New builds a source for geom.
func New(geom *array.Geometry, cfg Config, rng *rand.Rand) (*Source, error) {
	if geom == nil {
		return nil, fmt.Errorf("source: nil geometry: %w", doaerr.ErrConfiguration)
	}
	if cfg.NumSample <= 0 {
		return nil, fmt.Errorf("source: sample count %d must be positive: %w", cfg.NumSample, doaerr.ErrConfiguration)
	}
	if cfg.NumTarget <= 0 {
		return nil, fmt.Errorf("source: target count %d must be positive: %w", cfg.NumTarget, doaerr.ErrConfiguration)
	}
	if rng == nil {
		rng = NewRand(DefaultSeed)
	}
	s := &Source{geom: geom, cfg: cfg, rng: rng}
	if !cfg.Baseband {
		// Carrier sampled at four times its frequency.
		fs := 4 * geom.Frequency()
		s.t = make([]float64, cfg.NumSample)
		for n := range s.t {
			s.t[n] = float64(n) / fs
		}
	}
	return s, nil
}

func (s *Source) Geometry() *array.Geometry { return s.geom }
func (s *Source) NumTarget() int            { return s.cfg.NumTarget }
func (s *Source) NumSample() int            { return s.cfg.NumSample }
func (s *Source) Config() Config            { return s.cfg }

// Emit returns the targets×samples waveform matrix.
func (s *Source) Emit() *mat.CDense {
	if s.cfg.Baseband {
		return s.emitGaussian()
	}
	return s.emitCarrier()
}

func (s *Source) emitGaussian() *mat.CDense {
	k, n := s.cfg.NumTarget, s.cfg.NumSample
	out := mat.NewCDense(k, n, nil)
	if s.cfg.Coherent {
		wave := make([]complex128, n)
		for i := range wave {
			wave[i] = complex(s.rng.NormFloat64(), 0)
		}
		for i := range wave {
			wave[i] += complex(0, s.rng.NormFloat64())
		}
		for r := 0; r < k; r++ {
			amp := complex(s.uniform(0.5, 1.5), 0)
			for c, v := range wave {
				out.Set(r, c, v*amp)
			}
		}
		return out
	}
	re := make([]float64, k*n)
	for i := range re {
		re[i] = s.rng.NormFloat64()
	}
	for r := 0; r < k; r++ {
		for c := 0; c < n; c++ {
			out.Set(r, c, complex(re[r*n+c], s.rng.NormFloat64()))
		}
	}
	return out
}

func (s *Source) emitCarrier() *mat.CDense {
	k, n := s.cfg.NumTarget, s.cfg.NumSample
	f := s.geom.Frequency()
	out := mat.NewCDense(k, n, nil)
	phases := make([]float64, k)
	amps := make([]float64, k)
	if s.cfg.Coherent {
		for r := range amps {
			amps[r] = s.uniform(0.5, 1.5)
		}
	} else {
		for r := range phases {
			phases[r] = s.uniform(0, 2*math.Pi)
		}
		for r := range amps {
			amps[r] = s.uniform(0.5, 1.5)
		}
	}
	for r := 0; r < k; r++ {
		for c := 0; c < n; c++ {
			phase := 2*math.Pi*f*s.t[c] + phases[r]
			out.Set(r, c, cmplx.Exp(complex(0, -phase))*complex(amps[r], 0))
		}
	}
	return out
}

// Noise returns samples×antennas circular complex Gaussian noise with unit total power.
func (s *Source) Noise() *mat.CDense {
	n, m := s.cfg.NumSample, s.geom.NumAntenna()
	re := make([]float64, n*m)
	for i := range re {
		re[i] = s.rng.NormFloat64()
	}
	out := mat.NewCDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			out.Set(i, j, complex(re[i*m+j], s.rng.NormFloat64())/math.Sqrt2)
		}
	}
	return out
}

// Collect returns a samples×antennas snapshot of plane waves from angles, scaled so the
// mean signal power over the unit noise floor equals snrDB.
func (s *Source) Collect(angles []float64, snrDB float64) (*mat.CDense, error) {
	return s.collect(angles, snrDB, false)
}

// CollectDoublets is Collect with the doublet phase delay applied to every target,
// producing the second virtual sub-array used by ESPRIT.
func (s *Source) CollectDoublets(angles []float64, snrDB float64) (*mat.CDense, error) {
	return s.collect(angles, snrDB, true)
}

func (s *Source) collect(angles []float64, snrDB float64, doublet bool) (*mat.CDense, error) {
	if len(angles) != s.cfg.NumTarget {
		return nil, fmt.Errorf("source: %d angles for %d targets: %w", len(angles), s.cfg.NumTarget, doaerr.ErrDimensionMismatch)
	}
	sig := s.Emit()
	noise := s.Noise()
	a := s.geom.SteeringMatrix(angles)
	if doublet {
		a = cmat.Mul(a, s.geom.DoubletPhaseDelay(angles))
	}
	x := cmat.Mul(a, sig) // antennas×samples

	m, n := x.Dims()
	var power float64
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := x.At(i, j)
			power += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	power /= float64(m * n)
	scale := complex(math.Sqrt(math.Pow(10, snrDB/10)/power), 0)

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			noise.Set(i, j, x.At(j, i)*scale+noise.At(i, j))
		}
	}
	return noise, nil
}

func (s *Source) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}
