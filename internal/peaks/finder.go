// Package peaks turns a pseudo-spectrum into a fixed number of peak positions by
// smoothing it and repeatedly extracting the most prominent peak.
package peaks

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/rjboer/GoDOA/internal/doaerr"
)

// DefaultMinProminenceRatio is the share of the working maximum a peak's prominence must
// reach to be considered.
const DefaultMinProminenceRatio = 0.05

// Finder locates exactly Expected peaks per spectrum.
type Finder struct {
	expected int
	filter   FilterConfig

	// MinProminenceRatio overrides DefaultMinProminenceRatio when positive.
	MinProminenceRatio float64
}

func NewFinder(expectedPeaks int, cfg FilterConfig) (*Finder, error) {
	if expectedPeaks < 0 {
		return nil, fmt.Errorf("peaks: expected peak count %d: %w", expectedPeaks, doaerr.ErrInvalidParameter)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Finder{expected: expectedPeaks, filter: cfg}, nil
}

func (f *Finder) Expected() int              { return f.expected }
func (f *Finder) FilterConfig() FilterConfig { return f.filter }

// Find returns Expected indices into spectrum, ascending. Each round takes the most
// prominent peak of a working copy (or its maximum when nothing is prominent enough),
// refines it to the centroid of its half-power region, and clears twice that width
// around it. Rounds on an exhausted spectrum report index 0, so duplicates are possible.
func (f *Finder) Find(spectrum []float64) ([]int, error) {
	working, err := Smooth(spectrum, f.filter)
	if err != nil {
		return nil, err
	}
	ratio := f.MinProminenceRatio
	if ratio <= 0 {
		ratio = DefaultMinProminenceRatio
	}
	out := make([]int, 0, f.expected)
	for i := 0; i < f.expected; i++ {
		idx, width := singlePeak(working, ratio)
		out = append(out, idx)
		clearRegion(working, idx, width)
	}
	sort.Ints(out)
	return out, nil
}

// singlePeak returns the centroid index and half-power width of the strongest peak.
func singlePeak(x []float64, ratio float64) (int, int) {
	if len(x) == 0 {
		return 0, 0
	}
	top := floats.Max(x)
	if top <= 0 {
		return 0, 0
	}
	cands := localMaxima(x)
	prom := prominences(x, cands)
	minProm := top * ratio
	best := -1
	for k, p := range cands {
		if prom[k] < minProm {
			continue
		}
		if best < 0 || x[p] > x[best] {
			best = p
		}
	}
	if best < 0 {
		peak := floats.MaxIdx(x)
		return peak, halfPowerWidth(x, peak)
	}
	width := halfPowerWidth(x, best)

	left := int(math.Max(0, float64(best)-float64(width)/2))
	right := int(math.Min(float64(len(x)), float64(best)+float64(width)/2+1))
	region := x[left:right]
	total := floats.Sum(region)
	if len(region) == 0 || total <= 0 {
		return best, width
	}
	var mean float64
	for k, v := range region {
		mean += float64(left+k) * v / total
	}
	return int(mean), width
}

// halfPowerWidth walks outward from peak while the samples stay above half its value.
func halfPowerWidth(x []float64, peak int) int {
	half := x[peak] / 2
	l, r := peak, peak
	for l > 0 && x[l] > half {
		l--
	}
	for r < len(x)-1 && x[r] > half {
		r++
	}
	return r - l
}

// clearRegion zeroes x over [idx−width, idx+width].
func clearRegion(x []float64, idx, width int) {
	lo := idx - width
	if lo < 0 {
		lo = 0
	}
	hi := idx + width + 1
	if hi > len(x) {
		hi = len(x)
	}
	for i := lo; i < hi; i++ {
		x[i] = 0
	}
}

// localMaxima returns interior samples larger than both neighbours. A flat top reports
// its middle sample (the left one of the two middles).
func localMaxima(x []float64) []int {
	var out []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
			i = ahead
		}
	}
	return out
}

// prominences returns, for every peak, its height above the higher of the lowest
// points reached on either side before climbing above the peak.
func prominences(x []float64, peaks []int) []float64 {
	out := make([]float64, len(peaks))
	for k, p := range peaks {
		leftMin := x[p]
		for i := p; i >= 0 && x[i] <= x[p]; i-- {
			if x[i] < leftMin {
				leftMin = x[i]
			}
		}
		rightMin := x[p]
		for i := p; i < len(x) && x[i] <= x[p]; i++ {
			if x[i] < rightMin {
				rightMin = x[i]
			}
		}
		base := leftMin
		if rightMin > base {
			base = rightMin
		}
		out[k] = x[p] - base
	}
	return out
}

// IndicesToAngles looks the indices up in grid.
func IndicesToAngles(indices []int, grid []float64) ([]float64, error) {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(grid) {
			return nil, fmt.Errorf("peaks: index %d outside grid of %d: %w", idx, len(grid), doaerr.ErrDimensionMismatch)
		}
		out[i] = grid[idx]
	}
	return out, nil
}
