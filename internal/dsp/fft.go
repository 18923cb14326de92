package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// FFTShift returns the FFT output shifted so that the zero spatial frequency is centered.
// The input is not modified.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	shifted := make([]complex128, 0, n)
	shifted = append(shifted, data[half:]...)
	return append(shifted, data[:half]...)
}

// PowerDB converts linear power to decibels. Zero power maps to -Inf.
func PowerDB(power []float64) []float64 {
	out := make([]float64, len(power))
	for i, p := range power {
		if p <= 0 {
			out[i] = math.Inf(-1)
			continue
		}
		out[i] = 10 * math.Log10(p)
	}
	return out
}

// SpatialPower tapers every snapshot (row of x) with a Hamming window, zero-pads it to
// size and returns the shifted, window-normalised power spectrum averaged over rows.
func SpatialPower(x mat.CMatrix, size int) []float64 {
	_, m := x.Dims()
	if size < m {
		size = m
	}
	win := Hamming(m)
	return spatialPower(x, win, windowSum(win), fourier.NewCmplxFFT(size))
}

func spatialPower(x mat.CMatrix, win []float64, sum float64, fft *fourier.CmplxFFT) []float64 {
	rows, m := x.Dims()
	size := fft.Len()
	power := make([]float64, size)
	if rows == 0 {
		return power
	}
	buf := make([]complex128, size)
	coeff := make([]complex128, size)
	for r := 0; r < rows; r++ {
		for i := range buf {
			buf[i] = 0
		}
		for i := 0; i < m; i++ {
			buf[i] = x.At(r, i) * complex(win[i]/sum, 0)
		}
		coeff = fft.Coefficients(coeff, buf)
		for i, v := range FFTShift(coeff) {
			power[i] += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	for i := range power {
		power[i] /= float64(rows)
	}
	return power
}
