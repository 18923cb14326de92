package peaks

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/doaerr"
)

// FilterKind selects the smoothing applied to a spectrum before peak picking.
type FilterKind int

const (
	Butterworth FilterKind = iota
	Gaussian
	Savgol
	NoFilter
)

func (k FilterKind) String() string {
	switch k {
	case Butterworth:
		return "butterworth"
	case Gaussian:
		return "gaussian"
	case Savgol:
		return "savgol"
	case NoFilter:
		return "none"
	default:
		return "unknown"
	}
}

// ParseFilterKind converts a filter name to a FilterKind.
func ParseFilterKind(s string) (FilterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "butterworth", "butter", "":
		return Butterworth, nil
	case "gaussian":
		return Gaussian, nil
	case "savgol":
		return Savgol, nil
	case "none":
		return NoFilter, nil
	default:
		return 0, fmt.Errorf("peaks: unknown filter %q: %w", s, doaerr.ErrInvalidParameter)
	}
}

// FilterConfig holds the smoothing parameters. Zero fields take the defaults below.
type FilterConfig struct {
	Kind FilterKind

	Cutoff float64 // Butterworth cutoff, fraction of Nyquist
	Order  int     // Butterworth order

	Sigma float64 // Gaussian standard deviation in samples

	Window    int // Savitzky–Golay window length
	PolyOrder int // Savitzky–Golay polynomial order
}

const (
	DefaultCutoff    = 0.1
	DefaultOrder     = 4
	DefaultSigma     = 2.0
	DefaultWindow    = 11
	DefaultPolyOrder = 3

	gaussianTruncate = 4.0
)

func (c FilterConfig) withDefaults() FilterConfig {
	if c.Cutoff == 0 {
		c.Cutoff = DefaultCutoff
	}
	if c.Order == 0 {
		c.Order = DefaultOrder
	}
	if c.Sigma == 0 {
		c.Sigma = DefaultSigma
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.PolyOrder == 0 {
		c.PolyOrder = DefaultPolyOrder
	}
	return c
}

func (c FilterConfig) validate() error {
	switch c.Kind {
	case Butterworth:
		if !(c.Cutoff > 0 && c.Cutoff < 1) {
			return fmt.Errorf("peaks: butterworth cutoff %g outside (0, 1): %w", c.Cutoff, doaerr.ErrInvalidParameter)
		}
		if c.Order < 1 {
			return fmt.Errorf("peaks: butterworth order %d: %w", c.Order, doaerr.ErrInvalidParameter)
		}
	case Gaussian:
		if !(c.Sigma > 0) {
			return fmt.Errorf("peaks: gaussian sigma %g: %w", c.Sigma, doaerr.ErrInvalidParameter)
		}
	case Savgol:
		if c.Window < 1 || c.PolyOrder < 0 {
			return fmt.Errorf("peaks: savgol window %d order %d: %w", c.Window, c.PolyOrder, doaerr.ErrInvalidParameter)
		}
	case NoFilter:
	default:
		return fmt.Errorf("peaks: filter kind %d: %w", c.Kind, doaerr.ErrInvalidParameter)
	}
	return nil
}

// Smooth returns a filtered copy of spectrum. The input is never modified.
func Smooth(spectrum []float64, cfg FilterConfig) ([]float64, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case Butterworth:
		b, a := ButterLowpass(cfg.Order, cfg.Cutoff)
		return FiltFilt(b, a, spectrum)
	case Gaussian:
		return GaussianFilter(spectrum, cfg.Sigma), nil
	case Savgol:
		return SavgolFilter(spectrum, cfg.Window, cfg.PolyOrder)
	default:
		return append([]float64(nil), spectrum...), nil
	}
}

// ButterLowpass designs a digital Butterworth low-pass filter by the bilinear transform
// with prewarping and returns its numerator and denominator, highest power first.
// cutoff is a fraction of the Nyquist frequency.
func ButterLowpass(order int, cutoff float64) (b, a []float64) {
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*cutoff/fs)

	poles := make([]complex128, order)
	for i := range poles {
		m := float64(-order + 1 + 2*i)
		poles[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order))) * complex(warped, 0)
	}
	gain := complex(math.Pow(warped, float64(order)), 0)

	zz := make([]complex128, order)
	pz := make([]complex128, order)
	den := complex(1, 0)
	for i, p := range poles {
		pz[i] = (2*fs + p) / (2*fs - p)
		den *= 2*fs - p
		zz[i] = -1
	}
	k := real(gain / den)

	bc := poly(zz)
	ac := poly(pz)
	b = make([]float64, len(bc))
	a = make([]float64, len(ac))
	for i := range bc {
		b[i] = k * real(bc[i])
		a[i] = real(ac[i])
	}
	return b, a
}

// poly expands Π(x − r) into coefficients, highest power first.
func poly(roots []complex128) []complex128 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	return c
}

// lfilter runs a direct-form II transposed IIR filter with a[0] == 1 from initial
// state zi.
func lfilter(b, a, x, zi []float64) []float64 {
	n := len(b)
	z := append([]float64(nil), zi...)
	y := make([]float64, len(x))
	for t, xv := range x {
		yv := b[0]*xv + z[0]
		for i := 0; i < n-2; i++ {
			z[i] = b[i+1]*xv + z[i+1] - a[i+1]*yv
		}
		z[n-2] = b[n-1]*xv - a[n-1]*yv
		y[t] = yv
	}
	return y
}

// lfilterZI returns the steady-state filter state for a unit step input.
func lfilterZI(b, a []float64) ([]float64, error) {
	n := len(a)
	m := mat.NewDense(n-1, n-1, nil)
	rhs := mat.NewVecDense(n-1, nil)
	for i := 0; i < n-1; i++ {
		// I − companion(a)ᵀ: the companion's first row becomes the first column.
		m.Set(i, 0, a[i+1])
		if i+1 < n-1 {
			m.Set(i, i+1, -1)
		}
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}
	m.Set(0, 0, m.At(0, 0)+1)
	for i := 1; i < n-1; i++ {
		m.Set(i, i, m.At(i, i)+1)
	}
	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("peaks: filter initial state: %w", err)
	}
	return zi.RawVector().Data, nil
}

// FiltFilt applies the filter forward and backward for zero phase distortion. The signal
// is extended at both ends by odd reflection of 3·max(len(a), len(b)) samples and each
// pass starts from the steady state for its first sample.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	if len(a) != len(b) || len(a) < 2 || a[0] == 0 {
		return nil, fmt.Errorf("peaks: filter of %d/%d taps: %w", len(b), len(a), doaerr.ErrInvalidParameter)
	}
	if a[0] != 1 {
		b = scaled(b, 1/a[0])
		a = scaled(a, 1/a[0])
	}
	padlen := 3 * len(a)
	n := len(x)
	if n <= padlen {
		return nil, fmt.Errorf("peaks: %d samples too short for %d samples of padding: %w", n, padlen, doaerr.ErrInvalidParameter)
	}
	ext := make([]float64, 0, n+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i >= n-1-padlen; i-- {
		ext = append(ext, 2*x[n-1]-x[i])
	}

	zi, err := lfilterZI(b, a)
	if err != nil {
		return nil, err
	}
	y := lfilter(b, a, ext, scaled(zi, ext[0]))
	reverse(y)
	y = lfilter(b, a, y, scaled(zi, y[0]))
	reverse(y)
	return y[padlen : padlen+n], nil
}

// GaussianFilter convolves x with a normalised Gaussian kernel truncated at four
// standard deviations, reflecting the signal about its edges.
func GaussianFilter(x []float64, sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * d * d / (sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	n := len(x)
	out := make([]float64, n)
	for i := range out {
		var acc float64
		for k, w := range kernel {
			acc += w * x[reflectIndex(i+k-radius, n)]
		}
		out[i] = acc
	}
	return out
}

// reflectIndex maps i into [0, n) by mirroring about the edges, repeating the edge
// sample (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// SavgolFilter smooths x with a Savitzky–Golay filter. An even window is made odd, the
// window is clamped to the signal length, and the first and last half-windows are
// replaced by a polynomial fitted to the outermost full window.
func SavgolFilter(x []float64, window, polyOrder int) ([]float64, error) {
	if window%2 == 0 {
		window++
	}
	if window < polyOrder+1 {
		window = polyOrder + 1
	}
	if window > len(x) {
		window = len(x)
	}
	if window%2 == 0 {
		window--
	}
	if window < 1 || polyOrder >= window {
		return nil, fmt.Errorf("peaks: savgol order %d needs a window longer than %d: %w", polyOrder, window, doaerr.ErrInvalidParameter)
	}
	half := window / 2

	// Row 0 of the pseudo-inverse evaluates the fitted polynomial at the window centre.
	design := vandermonde(window, polyOrder, -half)
	var pinv mat.Dense
	if err := pinv.Solve(design, identity(window)); err != nil {
		return nil, fmt.Errorf("peaks: savgol coefficients: %w", err)
	}
	coeffs := mat.Row(nil, 0, &pinv)

	n := len(x)
	out := make([]float64, n)
	for i := half; i < n-half; i++ {
		var acc float64
		for k, c := range coeffs {
			acc += c * x[i+k-half]
		}
		out[i] = acc
	}

	edge := vandermonde(window, polyOrder, 0)
	for _, start := range []int{0, n - window} {
		var fit mat.VecDense
		if err := fit.SolveVec(edge, mat.NewVecDense(window, append([]float64(nil), x[start:start+window]...))); err != nil {
			return nil, fmt.Errorf("peaks: savgol edge fit: %w", err)
		}
		from, to := 0, half
		if start != 0 {
			from, to = window-half, window
		}
		for p := from; p < to; p++ {
			out[start+p] = polyval(fit.RawVector().Data, float64(p))
		}
	}
	return out, nil
}

// vandermonde returns rows [t⁰, t¹, …, t^order] for t = offset, offset+1, ….
func vandermonde(rows, order, offset int) *mat.Dense {
	v := mat.NewDense(rows, order+1, nil)
	for i := 0; i < rows; i++ {
		t := float64(i + offset)
		p := 1.0
		for j := 0; j <= order; j++ {
			v.Set(i, j, p)
			p *= t
		}
	}
	return v
}

// polyval evaluates Σ c_j t^j.
func polyval(c []float64, t float64) float64 {
	var acc float64
	for j := len(c) - 1; j >= 0; j-- {
		acc = acc*t + c[j]
	}
	return acc
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func scaled(v []float64, f float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * f
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
