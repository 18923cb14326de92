// Package cmat provides the complex linear algebra used by the estimators on top of gonum.
//
// gonum stores complex matrices (mat.CDense) and multiplies them through cblas128, but it
// only factorizes real matrices. Hermitian eigenproblems, inverses and general eigenvalues
// are therefore solved on the real 2n×2n embedding
//
//	[ Re(A)  -Im(A) ]
//	[ Im(A)   Re(A) ]
//
// which maps complex vector x+jy to [x; y] and preserves products and inverses.
package cmat

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular is returned when an inverse is requested for a matrix whose
	// condition number exceeds CondLimit.
	ErrSingular = errors.New("cmat: matrix is singular or near-singular")

	// ErrNoConvergence is returned when an eigen solver fails.
	ErrNoConvergence = errors.New("cmat: eigen decomposition did not converge")
)

// CondLimit is the condition number above which a matrix is treated as singular.
// Rank-deficient sample covariances land around 1e15 and above; well-posed ones stay
// several orders of magnitude below.
const CondLimit = 1e12

// Mul returns a·b.
func Mul(a, b *mat.CDense) *mat.CDense { return product(blas.NoTrans, blas.NoTrans, a, b) }

// MulH returns aᴴ·b.
func MulH(a, b *mat.CDense) *mat.CDense { return product(blas.ConjTrans, blas.NoTrans, a, b) }

// MulBH returns a·bᴴ.
func MulBH(a, b *mat.CDense) *mat.CDense { return product(blas.NoTrans, blas.ConjTrans, a, b) }

func product(tA, tB blas.Transpose, a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	if tA != blas.NoTrans {
		ar, ac = ac, ar
	}
	br, bc := b.Dims()
	if tB != blas.NoTrans {
		br, bc = bc, br
	}
	if ac != br {
		panic(mat.ErrShape)
	}
	c := mat.NewCDense(ar, bc, nil)
	cblas128.Gemm(tA, tB, 1, a.RawCMatrix(), b.RawCMatrix(), 0, c.RawCMatrix())
	return c
}

// H returns the conjugate transpose of a as a new matrix.
func H(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(a.At(i, j)))
		}
	}
	return out
}

// Identity returns the n×n identity.
func Identity(n int) *mat.CDense {
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

// Block copies rows [r0,r1) and columns [c0,c1) of a.
func Block(a *mat.CDense, r0, r1, c0, c1 int) *mat.CDense {
	out := mat.NewCDense(r1-r0, c1-c0, nil)
	for i := r0; i < r1; i++ {
		for j := c0; j < c1; j++ {
			out.Set(i-r0, j-c0, a.At(i, j))
		}
	}
	return out
}

// Stack places b below a.
func Stack(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != bc {
		panic(mat.ErrShape)
	}
	out := mat.NewCDense(ar+br, ac, nil)
	for j := 0; j < ac; j++ {
		for i := 0; i < ar; i++ {
			out.Set(i, j, a.At(i, j))
		}
		for i := 0; i < br; i++ {
			out.Set(ar+i, j, b.At(i, j))
		}
	}
	return out
}

// Augment places b to the right of a.
func Augment(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br {
		panic(mat.ErrShape)
	}
	out := mat.NewCDense(ar, ac+bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			out.Set(i, j, a.At(i, j))
		}
		for j := 0; j < bc; j++ {
			out.Set(i, ac+j, b.At(i, j))
		}
	}
	return out
}

// Flip reverses a along both axes.
func Flip(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(r-1-i, c-1-j, a.At(i, j))
		}
	}
	return out
}

// Conj returns the element-wise conjugate of a.
func Conj(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, cmplx.Conj(a.At(i, j)))
		}
	}
	return out
}

// AddScaled stores a + alpha·b into a new matrix.
func AddScaled(a *mat.CDense, alpha complex128, b *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	if br, bc := b.Dims(); br != r || bc != c {
		panic(mat.ErrShape)
	}
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)+alpha*b.At(i, j))
		}
	}
	return out
}

// Scale multiplies every element of a by alpha in place.
func Scale(a *mat.CDense, alpha complex128) {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Set(i, j, alpha*a.At(i, j))
		}
	}
}

// Trace returns the sum of the diagonal of a square matrix.
func Trace(a *mat.CDense) complex128 {
	r, c := a.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}
	var sum complex128
	for i := 0; i < r; i++ {
		sum += a.At(i, i)
	}
	return sum
}

// IsHermitian reports whether a equals its conjugate transpose within tol.
func IsHermitian(a *mat.CDense, tol float64) bool {
	r, c := a.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			if cmplx.Abs(a.At(i, j)-cmplx.Conj(a.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}

// Covariance returns the sample covariance of the columns of x (observations in rows),
// with the column means removed and n-1 normalisation. Entry (i, j) is
// Σ_t x_i(t)·conj(x_j(t)) / (n-1).
func Covariance(x *mat.CDense) *mat.CDense {
	n, p := x.Dims()
	centered := mat.NewCDense(n, p, nil)
	for j := 0; j < p; j++ {
		var mean complex128
		for i := 0; i < n; i++ {
			mean += x.At(i, j)
		}
		mean /= complex(float64(n), 0)
		for i := 0; i < n; i++ {
			centered.Set(i, j, x.At(i, j)-mean)
		}
	}
	ddof := n - 1
	if ddof < 1 {
		ddof = 1
	}
	// (XᴴX)ᵀ = conj(XᴴX) for the Hermitian Gram matrix.
	g := MulH(centered, centered)
	out := Conj(g)
	Scale(out, complex(1/float64(ddof), 0))
	return out
}

func embed(a *mat.CDense) *mat.Dense {
	r, c := a.Dims()
	e := mat.NewDense(2*r, 2*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			e.Set(i, j, real(v))
			e.Set(i, c+j, -imag(v))
			e.Set(r+i, j, imag(v))
			e.Set(r+i, c+j, real(v))
		}
	}
	return e
}

func unembed(e mat.Matrix, r, c int) *mat.CDense {
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, complex(e.At(i, j), e.At(r+i, j)))
		}
	}
	return out
}

// Inverse returns a⁻¹ or ErrSingular.
func Inverse(a *mat.CDense) (*mat.CDense, error) {
	r, c := a.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}
	inv, err := InverseReal(embed(a))
	if err != nil {
		return nil, err
	}
	return unembed(inv, r, c), nil
}

// InverseReal returns a⁻¹ for a real square matrix or ErrSingular.
func InverseReal(a mat.Matrix) (*mat.Dense, error) {
	var lu mat.LU
	lu.Factorize(a)
	cond := lu.Cond()
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > CondLimit {
		return nil, ErrSingular
	}
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, ErrSingular
	}
	return &inv, nil
}
