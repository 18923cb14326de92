package doa

import (
	"errors"
	"fmt"
	"math/cmplx"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/cmat"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/dsp"
)

// Formulation selects how ESPRIT solves the rotational-invariance equation.
type Formulation int

const (
	TLS Formulation = iota // total least squares
	LS                     // least squares
)

func (f Formulation) String() string {
	switch f {
	case TLS:
		return "tls"
	case LS:
		return "ls"
	default:
		return "unknown"
	}
}

// ParseFormulation accepts "ls" or "tls" in any case.
func ParseFormulation(s string) (Formulation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tls", "":
		return TLS, nil
	case "ls":
		return LS, nil
	default:
		return 0, fmt.Errorf("esprit: formulation %q (want ls or tls): %w", s, doaerr.ErrInvalidParameter)
	}
}

// Esprit estimates arrival angles from the shift invariance between two displaced
// copies of the signal subspace.
type Esprit struct {
	src Collector
}

func NewEsprit(src Collector) (*Esprit, error) {
	if src == nil {
		return nil, fmt.Errorf("esprit: nil collector: %w", doaerr.ErrConfiguration)
	}
	return &Esprit{src: src}, nil
}

// Estimate draws a primary and a doublet snapshot of sources at angles and returns
// exactly NumTarget angles in radians, sorted ascending.
func (e *Esprit) Estimate(angles []float64, snrDB float64, displacement int, f Formulation) ([]float64, error) {
	n := e.src.Geometry().NumAntenna()
	// A displacement of n or more leaves the shifted subarrays without rows.
	if displacement < 1 || displacement >= n {
		return nil, fmt.Errorf("esprit: displacement %d outside [1, %d): %w", displacement, n, doaerr.ErrInvalidParameter)
	}
	if f != LS && f != TLS {
		return nil, fmt.Errorf("esprit: formulation %d: %w", f, doaerr.ErrInvalidParameter)
	}
	k := e.src.NumTarget()
	if k >= n {
		return nil, fmt.Errorf("esprit: %d targets need more than %d antennas: %w", k, n, doaerr.ErrInvalidParameter)
	}

	x, err := e.src.Collect(angles, snrDB)
	if err != nil {
		return nil, fmt.Errorf("esprit: %w", err)
	}
	y, err := e.src.CollectDoublets(angles, snrDB)
	if err != nil {
		return nil, fmt.Errorf("esprit: %w", err)
	}
	vecs, err := eigenvectors(cmat.Covariance(cmat.Stack(x, y)), "esprit")
	if err != nil {
		return nil, err
	}
	es := columns(vecs, 0, k)
	esx := cmat.Block(es, 0, n-displacement, 0, k)
	esy := cmat.Block(es, displacement, n, 0, k)

	var phi *mat.CDense
	switch f {
	case LS:
		phi, err = espritLS(esx, esy)
	case TLS:
		phi, err = espritTLS(esx, esy, k)
	}
	if err != nil {
		return nil, err
	}

	eig, err := cmat.Eigenvalues(phi)
	if err != nil {
		return nil, fmt.Errorf("esprit: rotation eigenvalues: %w", err)
	}
	// The displaced subarrays see a phase step of displacement elements.
	spacing := e.src.Geometry().SpacingFraction() * float64(displacement)
	out := make([]float64, len(eig))
	for i, v := range eig {
		out[i] = dsp.PhaseToTheta(cmplx.Phase(v), spacing)
	}
	sort.Float64s(out)
	return out, nil
}

// espritLS solves Esx·Φ = Esy in the least-squares sense.
func espritLS(esx, esy *mat.CDense) (*mat.CDense, error) {
	inv, err := cmat.Inverse(cmat.MulH(esx, esx))
	if err != nil {
		return nil, singular("esprit: invert EsxᴴEsx", err)
	}
	return cmat.Mul(inv, cmat.MulH(esx, esy)), nil
}

// espritTLS returns Φ = −V12·V22⁻¹ from the eigenvectors of [Esx|Esy]ᴴ[Esx|Esy].
func espritTLS(esx, esy *mat.CDense, k int) (*mat.CDense, error) {
	exy := cmat.Augment(esx, esy)
	vecs, err := eigenvectors(cmat.MulH(exy, exy), "esprit")
	if err != nil {
		return nil, err
	}
	v12 := cmat.Block(vecs, 0, k, k, 2*k)
	v22 := cmat.Block(vecs, k, 2*k, k, 2*k)
	inv, err := cmat.Inverse(v22)
	if err != nil {
		return nil, singular("esprit: invert V22", err)
	}
	phi := cmat.Mul(v12, inv)
	cmat.Scale(phi, -1)
	return phi, nil
}

func singular(context string, err error) error {
	if errors.Is(err, cmat.ErrSingular) {
		return fmt.Errorf("%s: %w", context, doaerr.ErrSingularMatrix)
	}
	return fmt.Errorf("%s: %w", context, err)
}
