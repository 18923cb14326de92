// Package doaerr holds the error taxonomy shared by every estimation package.
//
// Components return these sentinels wrapped with context, e.g.
//
//	fmt.Errorf("capon: invert covariance: %w", doaerr.ErrSingularMatrix)
//
// and callers match them with errors.Is.
package doaerr

import "errors"

var (
	// ErrConfiguration reports invalid construction parameters: non-positive antenna
	// count, frequency, spacing, sample or target count, or an unknown angle unit.
	ErrConfiguration = errors.New("doa: invalid configuration")

	// ErrDimensionMismatch reports an angle list whose length differs from the configured
	// target count, or input data whose antenna dimension differs from the geometry.
	ErrDimensionMismatch = errors.New("doa: dimension mismatch")

	// ErrInvalidParameter reports an out-of-range algorithm parameter.
	ErrInvalidParameter = errors.New("doa: invalid parameter")

	// ErrSingularMatrix reports a covariance or Fisher matrix that cannot be inverted.
	ErrSingularMatrix = errors.New("doa: singular matrix")
)
