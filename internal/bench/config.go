// Package bench runs Monte-Carlo experiments that pit the DOA estimators against each
// other and against the Cramér–Rao bound.
package bench

import (
	"fmt"
	"math"
	"strings"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/doa"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/peaks"
)

// Method names accepted in Config.Methods.
const (
	MethodMusic     = "music"
	MethodCapon     = "capon"
	MethodRootMusic = "root-music"
	MethodEsprit    = "esprit"
	MethodBeamscan  = "beamscan"
)

// Smoothing modes accepted in SmoothingConfig.Mode.
const (
	SmoothingNone     = "none"
	SmoothingFBSS     = "fbss"
	SmoothingImproved = "improved"
)

// Config is the complete description of an experiment.
type Config struct {
	Array      ArrayConfig      `mapstructure:"array" yaml:"array"`
	Source     SourceConfig     `mapstructure:"source" yaml:"source"`
	Experiment ExperimentConfig `mapstructure:"experiment" yaml:"experiment"`
	Grid       GridConfig       `mapstructure:"grid" yaml:"grid"`
	Methods    []string         `mapstructure:"methods" yaml:"methods"`
	Smoothing  SmoothingConfig  `mapstructure:"smoothing" yaml:"smoothing"`
	Esprit     EspritConfig     `mapstructure:"esprit" yaml:"esprit"`
	Peaks      PeaksConfig      `mapstructure:"peaks" yaml:"peaks"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ArrayConfig describes the uniform linear array.
type ArrayConfig struct {
	Antennas  int     `mapstructure:"antennas" yaml:"antennas"`
	Frequency float64 `mapstructure:"frequency" yaml:"frequency"` // carrier in Hz
	Spacing   float64 `mapstructure:"spacing" yaml:"spacing"`     // fraction of a wavelength
	Unit      string  `mapstructure:"unit" yaml:"unit"`           // degrees or radians
}

// SourceConfig describes the simulated emitters.
type SourceConfig struct {
	Samples  int  `mapstructure:"samples" yaml:"samples"`
	Targets  int  `mapstructure:"targets" yaml:"targets"`
	Coherent bool `mapstructure:"coherent" yaml:"coherent"`
	Baseband bool `mapstructure:"baseband" yaml:"baseband"`
}

// ExperimentConfig controls the trial loop.
type ExperimentConfig struct {
	Trials        int       `mapstructure:"trials" yaml:"trials"`
	Workers       int       `mapstructure:"workers" yaml:"workers"` // 0 means one per CPU
	Seed          uint64    `mapstructure:"seed" yaml:"seed"`
	SNR           float64   `mapstructure:"snr" yaml:"snr"`       // per-source SNR in dB
	Angles        []float64 `mapstructure:"angles" yaml:"angles"` // fixed truth; empty draws from the grid
	MinSeparation float64   `mapstructure:"min_separation" yaml:"min_separation"`
	Tolerance     float64   `mapstructure:"tolerance" yaml:"tolerance"` // success threshold per source
	HistoryLimit  int       `mapstructure:"history_limit" yaml:"history_limit"`
}

// GridConfig is the scan grid shared by the spectral methods and the angle sampler.
type GridConfig struct {
	Min  float64 `mapstructure:"min" yaml:"min"`
	Max  float64 `mapstructure:"max" yaml:"max"`
	Step float64 `mapstructure:"step" yaml:"step"`
}

// SmoothingConfig selects spatial smoothing ahead of MUSIC.
type SmoothingConfig struct {
	Mode      string `mapstructure:"mode" yaml:"mode"`
	Subarrays int    `mapstructure:"subarrays" yaml:"subarrays"`
}

type EspritConfig struct {
	Displacement int    `mapstructure:"displacement" yaml:"displacement"`
	Formulation  string `mapstructure:"formulation" yaml:"formulation"`
}

// PeaksConfig configures the finder applied to every spectrum.
type PeaksConfig struct {
	Filter        string  `mapstructure:"filter" yaml:"filter"`
	Cutoff        float64 `mapstructure:"cutoff" yaml:"cutoff"`
	Order         int     `mapstructure:"order" yaml:"order"`
	Sigma         float64 `mapstructure:"sigma" yaml:"sigma"`
	Window        int     `mapstructure:"window" yaml:"window"`
	PolyOrder     int     `mapstructure:"poly_order" yaml:"poly_order"`
	MinProminence float64 `mapstructure:"min_prominence" yaml:"min_prominence"`
	BeamscanSize  int     `mapstructure:"beamscan_size" yaml:"beamscan_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a two-source, 8-element half-wavelength experiment.
func DefaultConfig() Config {
	return Config{
		Array: ArrayConfig{
			Antennas:  8,
			Frequency: 1e9,
			Spacing:   0.5,
			Unit:      "degrees",
		},
		Source: SourceConfig{
			Samples:  500,
			Targets:  2,
			Baseband: true,
		},
		Experiment: ExperimentConfig{
			Trials:        100,
			SNR:           10,
			MinSeparation: 10,
			Tolerance:     1,
			HistoryLimit:  500,
		},
		Grid: GridConfig{Min: -90, Max: 90, Step: 0.1},
		Methods: []string{
			MethodMusic, MethodCapon, MethodRootMusic, MethodEsprit, MethodBeamscan,
		},
		Smoothing: SmoothingConfig{Mode: SmoothingNone},
		Esprit:    EspritConfig{Displacement: 1, Formulation: "tls"},
		Peaks:     PeaksConfig{Filter: "butterworth"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Validate checks the fields that the estimator constructors do not.
func (c Config) Validate() error {
	if c.Experiment.Trials <= 0 {
		return fmt.Errorf("bench: trial count %d must be positive: %w", c.Experiment.Trials, doaerr.ErrConfiguration)
	}
	if c.Experiment.Workers < 0 {
		return fmt.Errorf("bench: worker count %d: %w", c.Experiment.Workers, doaerr.ErrConfiguration)
	}
	if c.Experiment.Tolerance <= 0 {
		return fmt.Errorf("bench: tolerance %g must be positive: %w", c.Experiment.Tolerance, doaerr.ErrConfiguration)
	}
	if c.Experiment.MinSeparation < 0 {
		return fmt.Errorf("bench: minimum separation %g: %w", c.Experiment.MinSeparation, doaerr.ErrConfiguration)
	}
	if n := len(c.Experiment.Angles); n > 0 && n != c.Source.Targets {
		return fmt.Errorf("bench: %d fixed angles for %d targets: %w", n, c.Source.Targets, doaerr.ErrDimensionMismatch)
	}
	if c.Grid.Step <= 0 || c.Grid.Max < c.Grid.Min || math.IsNaN(c.Grid.Min) || math.IsNaN(c.Grid.Max) {
		return fmt.Errorf("bench: grid [%g, %g] step %g: %w", c.Grid.Min, c.Grid.Max, c.Grid.Step, doaerr.ErrConfiguration)
	}
	if len(c.Methods) == 0 {
		return fmt.Errorf("bench: no methods selected: %w", doaerr.ErrConfiguration)
	}
	seen := make(map[string]bool, len(c.Methods))
	for _, m := range c.Methods {
		name := strings.ToLower(strings.TrimSpace(m))
		switch name {
		case MethodMusic, MethodCapon, MethodRootMusic, MethodEsprit, MethodBeamscan:
		default:
			return fmt.Errorf("bench: unknown method %q: %w", m, doaerr.ErrConfiguration)
		}
		if seen[name] {
			return fmt.Errorf("bench: method %q listed twice: %w", m, doaerr.ErrConfiguration)
		}
		seen[name] = true
	}
	switch c.smoothingMode() {
	case SmoothingNone:
	case SmoothingFBSS, SmoothingImproved:
		if c.Smoothing.Subarrays < 1 {
			return fmt.Errorf("bench: %s smoothing needs at least one subarray: %w", c.Smoothing.Mode, doaerr.ErrConfiguration)
		}
	default:
		return fmt.Errorf("bench: unknown smoothing mode %q: %w", c.Smoothing.Mode, doaerr.ErrConfiguration)
	}
	return nil
}

// AngleGrid expands Grid into its points, both ends included.
func (c Config) AngleGrid() []float64 {
	n := int(math.Floor((c.Grid.Max-c.Grid.Min)/c.Grid.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = c.Grid.Min + float64(i)*c.Grid.Step
	}
	return out
}

// Geometry builds the array described by Array.
func (c Config) Geometry() (*array.Geometry, error) {
	unit, err := array.ParseAngleUnit(c.Array.Unit)
	if err != nil {
		return nil, err
	}
	return array.NewGeometry(c.Array.Antennas, c.Array.Frequency, c.Array.Spacing, unit)
}

// FilterConfig converts Peaks into the finder's smoothing parameters.
func (c Config) FilterConfig() (peaks.FilterConfig, error) {
	kind, err := peaks.ParseFilterKind(c.Peaks.Filter)
	if err != nil {
		return peaks.FilterConfig{}, err
	}
	return peaks.FilterConfig{
		Kind:      kind,
		Cutoff:    c.Peaks.Cutoff,
		Order:     c.Peaks.Order,
		Sigma:     c.Peaks.Sigma,
		Window:    c.Peaks.Window,
		PolyOrder: c.Peaks.PolyOrder,
	}, nil
}

func (c Config) formulation() (doa.Formulation, error) {
	if c.Esprit.Formulation == "" {
		return doa.TLS, nil
	}
	return doa.ParseFormulation(c.Esprit.Formulation)
}

func (c Config) smoothingMode() string {
	m := strings.ToLower(strings.TrimSpace(c.Smoothing.Mode))
	if m == "" {
		return SmoothingNone
	}
	return m
}

func (c Config) methods() []string {
	out := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		out[i] = strings.ToLower(strings.TrimSpace(m))
	}
	return out
}
