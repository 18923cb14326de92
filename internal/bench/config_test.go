package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/peaks"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	geom, err := cfg.Geometry()
	require.NoError(t, err)
	assert.Equal(t, 8, geom.NumAntenna())
	assert.Equal(t, array.Degrees, geom.Unit())

	fc, err := cfg.FilterConfig()
	require.NoError(t, err)
	assert.Equal(t, peaks.Butterworth, fc.Kind)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero trials", func(c *Config) { c.Experiment.Trials = 0 }, doaerr.ErrConfiguration},
		{"negative workers", func(c *Config) { c.Experiment.Workers = -1 }, doaerr.ErrConfiguration},
		{"zero tolerance", func(c *Config) { c.Experiment.Tolerance = 0 }, doaerr.ErrConfiguration},
		{"angle count", func(c *Config) { c.Experiment.Angles = []float64{10} }, doaerr.ErrDimensionMismatch},
		{"zero grid step", func(c *Config) { c.Grid.Step = 0 }, doaerr.ErrConfiguration},
		{"inverted grid", func(c *Config) { c.Grid.Min, c.Grid.Max = 10, -10 }, doaerr.ErrConfiguration},
		{"no methods", func(c *Config) { c.Methods = nil }, doaerr.ErrConfiguration},
		{"unknown method", func(c *Config) { c.Methods = []string{"music", "bartlett"} }, doaerr.ErrConfiguration},
		{"duplicate method", func(c *Config) { c.Methods = []string{"music", " MUSIC"} }, doaerr.ErrConfiguration},
		{"unknown smoothing", func(c *Config) { c.Smoothing.Mode = "backward" }, doaerr.ErrConfiguration},
		{"smoothing without subarrays", func(c *Config) { c.Smoothing.Mode = "fbss" }, doaerr.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestAngleGrid(t *testing.T) {
	cfg := DefaultConfig()
	grid := cfg.AngleGrid()
	require.Len(t, grid, 1801)
	assert.Equal(t, -90.0, grid[0])
	assert.InDelta(t, 90.0, grid[len(grid)-1], 1e-9)

	cfg.Grid = GridConfig{Min: 0, Max: 1, Step: 0.3}
	assert.InDeltaSlice(t, []float64{0, 0.3, 0.6, 0.9}, cfg.AngleGrid(), 1e-12)
}

func TestConfigConversionsRejectUnknownNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Array.Unit = "gradians"
	_, err := cfg.Geometry()
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)

	cfg = DefaultConfig()
	cfg.Peaks.Filter = "kalman"
	_, err = cfg.FilterConfig()
	assert.ErrorIs(t, err, doaerr.ErrInvalidParameter)

	cfg = DefaultConfig()
	cfg.Esprit.Formulation = "svd"
	_, err = NewRunner(cfg, nil, nil)
	assert.ErrorIs(t, err, doaerr.ErrInvalidParameter)
}
