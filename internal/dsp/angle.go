package dsp

import "math"

// PhaseToSine converts the electrical phase step between adjacent elements (radians) to
// the direction sine it implies. spacing is the element spacing as a fraction of the
// wavelength. The steering convention is exp(-j·2π·n·spacing·sin θ).
func PhaseToSine(phaseRad, spacing float64) float64 {
	if spacing == 0 {
		return 0
	}
	return -phaseRad / (2 * math.Pi * spacing)
}

// PhaseToTheta converts a phase step to an arrival angle in radians, clamping the sine
// to [-1, 1].
func PhaseToTheta(phaseRad, spacing float64) float64 {
	s := PhaseToSine(phaseRad, spacing)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return math.Asin(s)
}

// BinToSine maps bin i of a shifted spatial FFT of the given size to a direction sine.
// Values outside [-1, 1] correspond to invisible space.
func BinToSine(i, size int, spacing float64) float64 {
	if size <= 0 || spacing == 0 {
		return 0
	}
	u := float64(i-size/2) / float64(size)
	return PhaseToSine(2*math.Pi*u, spacing)
}
