// Package array models a uniform linear sensor array (ULA) and the far-field plane-wave
// response it measures.
package array

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/doaerr"
)

// SpeedOfLight is the propagation speed used to derive the wavelength.
const SpeedOfLight = 3e8

// AngleUnit selects how callers express angles.
type AngleUnit int

const (
	Radians AngleUnit = iota
	Degrees
)

func (u AngleUnit) String() string {
	switch u {
	case Radians:
		return "rad"
	case Degrees:
		return "deg"
	default:
		return "unknown"
	}
}

// ParseAngleUnit converts "rad"/"radians" or "deg"/"degrees" (any case) to an AngleUnit.
// An empty string selects radians.
func ParseAngleUnit(s string) (AngleUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rad", "radians", "":
		return Radians, nil
	case "deg", "degrees":
		return Degrees, nil
	default:
		return 0, fmt.Errorf("array: angle unit %q (want rad or deg): %w", s, doaerr.ErrConfiguration)
	}
}

// Geometry is an immutable ULA description. It is safe for concurrent use.
type Geometry struct {
	numAntenna int
	freq       float64
	spacing    float64 // fraction of a wavelength
	lambda     float64
	d          float64
	unit       AngleUnit
}

// NewGeometry validates the array parameters. spacing is the element spacing expressed
// as a fraction of the wavelength (0.5 is a half-wavelength array).
func NewGeometry(numAntenna int, freqHz, spacing float64, unit AngleUnit) (*Geometry, error) {
	if numAntenna <= 0 {
		return nil, fmt.Errorf("array: antenna count %d must be positive: %w", numAntenna, doaerr.ErrConfiguration)
	}
	if !(freqHz > 0) {
		return nil, fmt.Errorf("array: frequency %g must be positive: %w", freqHz, doaerr.ErrConfiguration)
	}
	if !(spacing > 0) {
		return nil, fmt.Errorf("array: element spacing %g must be positive: %w", spacing, doaerr.ErrConfiguration)
	}
	if unit != Radians && unit != Degrees {
		return nil, fmt.Errorf("array: angle unit %d: %w", unit, doaerr.ErrConfiguration)
	}
	lambda := SpeedOfLight / freqHz
	return &Geometry{
		numAntenna: numAntenna,
		freq:       freqHz,
		spacing:    spacing,
		lambda:     lambda,
		d:          spacing * lambda,
		unit:       unit,
	}, nil
}

func (g *Geometry) NumAntenna() int          { return g.numAntenna }
func (g *Geometry) Frequency() float64       { return g.freq }
func (g *Geometry) Wavelength() float64      { return g.lambda }
func (g *Geometry) Spacing() float64         { return g.d }
func (g *Geometry) SpacingFraction() float64 { return g.spacing }
func (g *Geometry) Unit() AngleUnit          { return g.unit }

// ToRadians converts an angle from the configured unit to radians.
func (g *Geometry) ToRadians(angle float64) float64 {
	if g.unit == Degrees {
		return angle * math.Pi / 180
	}
	return angle
}

// FromRadians converts an angle in radians to the configured unit.
func (g *Geometry) FromRadians(rad float64) float64 {
	if g.unit == Degrees {
		return rad * 180 / math.Pi
	}
	return rad
}

// phase returns the electrical phase of element n for a wave from theta (radians).
func (g *Geometry) phase(n int, theta float64) float64 {
	return -2 * math.Pi * float64(n) * g.d * math.Sin(theta) / g.lambda
}

// SteeringVector returns the unit-modulus response of every element to a plane wave
// arriving from angle.
func (g *Geometry) SteeringVector(angle float64) []complex128 {
	theta := g.ToRadians(angle)
	out := make([]complex128, g.numAntenna)
	for n := range out {
		out[n] = cmplx.Exp(complex(0, g.phase(n, theta)))
	}
	return out
}

// SteeringMatrix returns the N×len(angles) array manifold; column i is
// SteeringVector(angles[i]).
func (g *Geometry) SteeringMatrix(angles []float64) *mat.CDense {
	return g.SteeringMatrixN(angles, g.numAntenna)
}

// SteeringMatrixN is SteeringMatrix for the first n elements of the array, the aperture
// seen by a spatially smoothed covariance.
func (g *Geometry) SteeringMatrixN(angles []float64, n int) *mat.CDense {
	out := mat.NewCDense(n, len(angles), nil)
	for j, a := range angles {
		theta := g.ToRadians(a)
		for i := 0; i < n; i++ {
			out.Set(i, j, cmplx.Exp(complex(0, g.phase(i, theta))))
		}
	}
	return out
}

// SteeringMatrixDerivative returns ∂A/∂θ with θ in radians.
func (g *Geometry) SteeringMatrixDerivative(angles []float64) *mat.CDense {
	out := mat.NewCDense(g.numAntenna, len(angles), nil)
	for j, a := range angles {
		theta := g.ToRadians(a)
		for n := 0; n < g.numAntenna; n++ {
			sv := cmplx.Exp(complex(0, g.phase(n, theta)))
			k := -2 * math.Pi * float64(n) * g.d * math.Cos(theta) / g.lambda
			out.Set(n, j, complex(0, k)*sv)
		}
	}
	return out
}

// DoubletPhaseDelay returns the diagonal matrix diag(exp(j·sin θ_i)) that shifts the
// second virtual sub-array of a doublet.
func (g *Geometry) DoubletPhaseDelay(angles []float64) *mat.CDense {
	out := mat.NewCDense(len(angles), len(angles), nil)
	for i, a := range angles {
		out.Set(i, i, cmplx.Exp(complex(0, math.Sin(g.ToRadians(a)))))
	}
	return out
}
