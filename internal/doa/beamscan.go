package doa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/dsp"
)

// DefaultBeamscanSize is the spatial FFT length used when none is given.
const DefaultBeamscanSize = 1024

// Beamscan is the conventional (Bartlett) beamformer evaluated with a tapered, zero-padded
// spatial FFT across the aperture. It serves as a resolution baseline for the
// subspace methods.
type Beamscan struct {
	geom  *array.Geometry
	fft   *dsp.CachedFFT
	bins  []int     // visible FFT bins, ordered by ascending direction sine
	sines []float64 // direction sine of each bin in bins
}

func NewBeamscan(geom *array.Geometry, fftSize int) (*Beamscan, error) {
	if geom == nil {
		return nil, fmt.Errorf("beamscan: nil geometry: %w", doaerr.ErrConfiguration)
	}
	if fftSize < 0 {
		return nil, fmt.Errorf("beamscan: fft size %d: %w", fftSize, doaerr.ErrConfiguration)
	}
	if fftSize == 0 {
		fftSize = DefaultBeamscanSize
	}
	b := &Beamscan{geom: geom, fft: dsp.NewCachedFFT(geom.NumAntenna(), fftSize)}
	size := b.fft.Size()
	// Direction sine decreases with bin index, so walk the bins backwards.
	for i := size - 1; i >= 0; i-- {
		s := dsp.BinToSine(i, size, geom.SpacingFraction())
		if math.Abs(s) > 1 {
			continue
		}
		b.bins = append(b.bins, i)
		b.sines = append(b.sines, s)
	}
	return b, nil
}

// SinGrid returns the direction sines the spectrum is reported on, ascending.
func (b *Beamscan) SinGrid() []float64 { return append([]float64(nil), b.sines...) }

// Angles returns SinGrid converted to angles in the geometry's unit.
func (b *Beamscan) Angles() []float64 {
	out := make([]float64, len(b.sines))
	for i, s := range b.sines {
		out[i] = b.geom.FromRadians(math.Asin(s))
	}
	return out
}

// Spectrum returns the average beam power of the snapshots in x over Angles().
func (b *Beamscan) Spectrum(x *mat.CDense) ([]float64, error) {
	if err := checkChannels(x, b.geom.NumAntenna(), "beamscan"); err != nil {
		return nil, err
	}
	power := b.fft.SpatialPower(x)
	out := make([]float64, len(b.bins))
	for i, bin := range b.bins {
		out[i] = power[bin]
	}
	return out, nil
}

// SpectrumDB is Spectrum in decibels.
func (b *Beamscan) SpectrumDB(x *mat.CDense) ([]float64, error) {
	p, err := b.Spectrum(x)
	if err != nil {
		return nil, err
	}
	return dsp.PowerDB(p), nil
}
