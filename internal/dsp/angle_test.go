package dsp

import (
	"math"
	"testing"
)

func TestPhaseToSine(t *testing.T) {
	tests := []struct {
		phase   float64
		spacing float64
		want    float64
	}{
		{phase: -math.Pi / 2, spacing: 0.5, want: 0.5},
		{phase: 0.8 * math.Pi, spacing: 0.5, want: -0.8},
		{phase: -0.15 * math.Pi, spacing: 0.25, want: 0.3},
		{phase: 1, spacing: 0, want: 0},
	}

	for _, tt := range tests {
		if got := PhaseToSine(tt.phase, tt.spacing); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("phase %g: expected %g got %g", tt.phase, tt.want, got)
		}
	}
}

func TestPhaseToThetaClamps(t *testing.T) {
	if got := PhaseToTheta(-4*math.Pi, 0.5); got != math.Pi/2 {
		t.Fatalf("expected clamp to +π/2, got %g", got)
	}
	if got := PhaseToTheta(-math.Pi/2, 0.5); math.Abs(got-math.Pi/6) > 1e-12 {
		t.Fatalf("expected π/6, got %g", got)
	}
}

func TestBinToSine(t *testing.T) {
	tests := []struct {
		bin, size int
		spacing   float64
		want      float64
	}{
		{bin: 32, size: 64, spacing: 0.5, want: 0},
		{bin: 40, size: 64, spacing: 0.5, want: -0.25},
		{bin: 0, size: 64, spacing: 0.5, want: 1},
	}
	for _, tt := range tests {
		if got := BinToSine(tt.bin, tt.size, tt.spacing); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("bin %d: expected %g got %g", tt.bin, tt.want, got)
		}
	}
}
