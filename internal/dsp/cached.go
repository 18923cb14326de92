package dsp

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// CachedFFT keeps the aperture taper and FFT plan for one (aperture, size) pair so that
// repeated spatial spectra avoid rebuilding them.
type CachedFFT struct {
	mu        sync.Mutex
	window    []float64
	windowSum float64
	aperture  int
	fft       *fourier.CmplxFFT
}

// NewCachedFFT creates a spatial FFT for an aperture of the given element count,
// zero-padded to size bins.
func NewCachedFFT(aperture, size int) *CachedFFT {
	c := &CachedFFT{}
	c.reset(aperture, size)
	return c
}

func (c *CachedFFT) reset(aperture, size int) {
	if size < aperture {
		size = aperture
	}
	c.aperture = aperture
	c.window = Hamming(aperture)
	c.windowSum = windowSum(c.window)
	c.fft = fourier.NewCmplxFFT(size)
}

// SpatialPower is the cached form of SpatialPower. Snapshots whose width differs from
// the cached aperture fall back to the uncached computation.
func (c *CachedFFT) SpatialPower(x mat.CMatrix) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, m := x.Dims(); m != c.aperture {
		return SpatialPower(x, c.fft.Len())
	}
	return spatialPower(x, c.window, c.windowSum, c.fft)
}

// Size returns the number of FFT bins.
func (c *CachedFFT) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fft.Len()
}
