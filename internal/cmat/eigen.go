package cmat

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// EigenHermitian returns the eigenvalues of the Hermitian matrix a in descending order
// together with the matching orthonormal eigenvectors as columns.
//
// Only the Hermitian part of a is used. Because a sample covariance is Hermitian and
// positive semidefinite, the result coincides with its singular value decomposition.
func EigenHermitian(a *mat.CDense) ([]float64, *mat.CDense, error) {
	n, c := a.Dims()
	if n != c {
		panic(mat.ErrSquare)
	}
	sym := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aij, aji := a.At(i, j), a.At(j, i)
			re := (real(aij) + real(aji)) / 2
			im := (imag(aij) - imag(aji)) / 2
			if i <= j {
				sym.SetSym(i, j, re)
				sym.SetSym(n+i, n+j, re)
			}
			sym.SetSym(n+i, j, im)
		}
	}

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, nil, ErrNoConvergence
	}
	realVals := es.Values(nil)
	var realVecs mat.Dense
	es.VectorsTo(&realVecs)

	// Every complex eigenpair shows up twice in the embedding, as [x; y] and [-y; x].
	// Walk the real eigenvectors in descending order and keep the ones that add a new
	// complex direction.
	order := make([]int, 2*n)
	for i := range order {
		order[i] = 2*n - 1 - i
	}
	values := make([]float64, 0, n)
	basis := make([][]complex128, 0, n)
	accept := func(k int, minResidual float64) bool {
		z := make([]complex128, n)
		for i := 0; i < n; i++ {
			z[i] = complex(realVecs.At(i, k), realVecs.At(n+i, k))
		}
		for _, b := range basis {
			var proj complex128
			for i := range b {
				proj += cmplx.Conj(b[i]) * z[i]
			}
			for i := range z {
				z[i] -= proj * b[i]
			}
		}
		var norm float64
		for _, v := range z {
			norm += real(v)*real(v) + imag(v)*imag(v)
		}
		norm = math.Sqrt(norm)
		if norm <= minResidual {
			return false
		}
		for i := range z {
			z[i] /= complex(norm, 0)
		}
		basis = append(basis, z)
		values = append(values, realVals[k])
		return true
	}

	used := make([]bool, 2*n)
	for _, k := range order {
		if len(basis) == n {
			break
		}
		if accept(k, 0.5) {
			used[k] = true
		}
	}
	// Large degenerate clusters can leave directions behind at the strict threshold.
	for _, k := range order {
		if len(basis) == n {
			break
		}
		if !used[k] && accept(k, 1e-8) {
			used[k] = true
		}
	}
	if len(basis) != n {
		return nil, nil, ErrNoConvergence
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return values[idx[i]] > values[idx[j]] })

	sorted := make([]float64, n)
	vecs := mat.NewCDense(n, n, nil)
	for col, k := range idx {
		sorted[col] = values[k]
		for i := 0; i < n; i++ {
			vecs.Set(i, col, basis[k][i])
		}
	}
	return sorted, vecs, nil
}

// LeftSingular returns the singular values of the square matrix a in descending order
// together with the matching left singular vectors as columns. They come from the
// eigendecomposition of the Hermitian product a·aᴴ, so a itself need not be Hermitian.
func LeftSingular(a *mat.CDense) ([]float64, *mat.CDense, error) {
	vals, vecs, err := EigenHermitian(MulBH(a, a))
	if err != nil {
		return nil, nil, err
	}
	for i, v := range vals {
		vals[i] = math.Sqrt(math.Max(v, 0))
	}
	return vals, vecs, nil
}

// realTol separates eigenvalues that the real solver reports as real from genuinely
// complex ones.
const realTol = 1e-10

// Eigenvalues returns the eigenvalues of a general complex square matrix in no particular
// order.
//
// The real embedding carries both λ and conj(λ) for every eigenvalue λ of a. Eigenvectors
// of the embedding belonging to λ have the form [z; -jz], those of conj(λ) the form
// [conj(z); j·conj(z)], which tells the two apart. Real eigenvalues appear twice and are
// taken once.
func Eigenvalues(a *mat.CDense) ([]complex128, error) {
	n, c := a.Dims()
	if n != c {
		panic(mat.ErrSquare)
	}
	var eig mat.Eigen
	if !eig.Factorize(embed(a), mat.EigenRight) {
		return nil, ErrNoConvergence
	}
	vals := eig.Values(nil)
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	scores := make([]float64, len(vals))
	for k := range vals {
		var own, mirror float64
		for i := 0; i < n; i++ {
			p, q := vecs.At(i, k), vecs.At(n+i, k)
			d1 := q + 1i*p
			d2 := q - 1i*p
			own += real(d1)*real(d1) + imag(d1)*imag(d1)
			mirror += real(d2)*real(d2) + imag(d2)*imag(d2)
		}
		if own+mirror == 0 {
			scores[k] = 0.5
			continue
		}
		scores[k] = own / (own + mirror)
	}

	out := make([]complex128, 0, n)
	var reals []float64
	for k, v := range vals {
		if math.Abs(imag(v)) <= realTol*math.Max(1, cmplx.Abs(v)) {
			reals = append(reals, real(v))
			continue
		}
		if scores[k] < 0.5 {
			out = append(out, v)
		}
	}
	if len(reals)%2 == 0 {
		sort.Float64s(reals)
		for i := 0; i+1 < len(reals); i += 2 {
			out = append(out, complex((reals[i]+reals[i+1])/2, 0))
		}
	}
	if len(out) == n {
		return out, nil
	}

	// Classification disagreed with the expected count: fall back to the eigenvector
	// structure alone.
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] < scores[idx[j]] })
	out = out[:0]
	for _, k := range idx[:n] {
		out = append(out, vals[k])
	}
	return out, nil
}

// Roots returns the roots of the polynomial c[0]·x^m + c[1]·x^(m-1) + … + c[m] as the
// eigenvalues of its companion matrix. Leading zero coefficients are dropped and trailing
// zeros contribute roots at the origin.
func Roots(c []complex128) ([]complex128, error) {
	start := 0
	for start < len(c) && c[start] == 0 {
		start++
	}
	end := len(c)
	for end > start && c[end-1] == 0 {
		end--
	}
	trailing := len(c) - end
	p := c[start:end]

	var roots []complex128
	if deg := len(p) - 1; deg >= 1 {
		comp := mat.NewCDense(deg, deg, nil)
		for j := 0; j < deg; j++ {
			comp.Set(0, j, -p[j+1]/p[0])
		}
		for i := 1; i < deg; i++ {
			comp.Set(i, i-1, 1)
		}
		var err error
		roots, err = Eigenvalues(comp)
		if err != nil {
			return nil, err
		}
	}
	for i := 0; i < trailing; i++ {
		roots = append(roots, 0)
	}
	return roots, nil
}
