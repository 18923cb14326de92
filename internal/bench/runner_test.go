package bench

import (
	"bytes"
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/logging"
	"github.com/rjboer/GoDOA/internal/report"
)

func quietLogger() logging.Logger {
	return logging.New(logging.Error, logging.Text, &bytes.Buffer{})
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Source.Samples = 200
	cfg.Experiment.Trials = 8
	cfg.Experiment.Workers = 3
	cfg.Experiment.SNR = 20
	cfg.Experiment.Angles = []float64{15, -20}
	cfg.Experiment.Seed = 42
	return cfg
}

func summaryFor(t *testing.T, s report.Summary, method string) report.MethodSummary {
	t.Helper()
	for _, m := range s.Methods {
		if m.Method == method {
			return m
		}
	}
	t.Fatalf("no summary for %s in %+v", method, s.Methods)
	return report.MethodSummary{}
}

func TestTrialSeed(t *testing.T) {
	assert.Equal(t, TrialSeed(7, 3), TrialSeed(7, 3))
	seen := make(map[uint64]bool)
	for trial := 0; trial < 1000; trial++ {
		s := TrialSeed(7, trial)
		require.False(t, seen[s], "seed collision at trial %d", trial)
		seen[s] = true
	}
	assert.NotEqual(t, TrialSeed(7, 0), TrialSeed(8, 0))
}

func TestMatch(t *testing.T) {
	errs, ok := match([]float64{-20, 15}, []float64{15.5, -20.2}, 1)
	assert.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.2, 0.5}, errs, 1e-12)

	_, ok = match([]float64{-20, 15}, []float64{-20, 17}, 1)
	assert.False(t, ok)

	errs, ok = match([]float64{-20, 15}, []float64{-20}, 1)
	assert.False(t, ok)
	assert.Len(t, errs, 1)

	_, ok = match([]float64{0}, []float64{math.NaN()}, 1)
	assert.False(t, ok)
}

func TestRunnerRecoversFixedAngles(t *testing.T) {
	cfg := smallConfig()
	hub := report.NewHub(0)
	r, err := NewRunner(cfg, hub, quietLogger())
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Experiment.Trials, summary.Trials)
	require.Len(t, summary.Methods, len(cfg.Methods))

	for _, m := range summary.Methods {
		assert.Equal(t, cfg.Experiment.Trials, m.Trials, m.Method)
		assert.Zero(t, m.Failures, m.Method)
		assert.Greater(t, m.MeanCRB, 0.0, m.Method)
		assert.Less(t, m.MeanCRB, 1.0, m.Method)
	}
	for _, name := range []string{MethodMusic, MethodRootMusic, MethodEsprit, MethodCapon} {
		m := summaryFor(t, summary, name)
		assert.GreaterOrEqual(t, m.SuccessRate, 0.75, name)
	}

	history := hub.History()
	assert.Len(t, history, cfg.Experiment.Trials*len(cfg.Methods))
	for _, res := range history {
		assert.Equal(t, []float64{-20, 15}, res.Truth)
		assert.Equal(t, TrialSeed(cfg.Experiment.Seed, res.Trial), res.Seed)
	}
	got, ok := hub.Summary()
	require.True(t, ok)
	assert.Equal(t, summary.Trials, got.Trials)
}

func TestRunnerIsIndependentOfWorkerCount(t *testing.T) {
	type key struct {
		trial  int
		method string
	}
	collect := func(workers int) map[key][]float64 {
		cfg := smallConfig()
		cfg.Experiment.Trials = 6
		cfg.Experiment.Workers = workers
		cfg.Methods = []string{MethodMusic, MethodEsprit}
		hub := report.NewHub(0)
		r, err := NewRunner(cfg, hub, quietLogger())
		require.NoError(t, err)
		_, err = r.Run(context.Background())
		require.NoError(t, err)
		out := make(map[key][]float64)
		for _, res := range hub.History() {
			out[key{res.Trial, res.Method}] = res.Estimates
		}
		return out
	}
	assert.Equal(t, collect(1), collect(4))
}

func TestRunnerRandomAngles(t *testing.T) {
	cfg := smallConfig()
	cfg.Experiment.Angles = nil
	cfg.Experiment.MinSeparation = 20
	cfg.Grid = GridConfig{Min: -60, Max: 60, Step: 1}
	cfg.Methods = []string{MethodRootMusic}
	hub := report.NewHub(0)
	r, err := NewRunner(cfg, hub, quietLogger())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	for _, res := range hub.History() {
		require.Len(t, res.Truth, 2)
		assert.True(t, sort.Float64sAreSorted(res.Truth))
		assert.GreaterOrEqual(t, res.Truth[1]-res.Truth[0], 20.0)
		for _, a := range res.Truth {
			assert.Equal(t, math.Round(a), a)
			assert.LessOrEqual(t, math.Abs(a), 60.0)
		}
	}
}

func TestRunnerCoherentSourcesWithSmoothing(t *testing.T) {
	for _, mode := range []string{SmoothingFBSS, SmoothingImproved} {
		t.Run(mode, func(t *testing.T) {
			cfg := smallConfig()
			cfg.Source.Coherent = true
			cfg.Methods = []string{MethodMusic}
			cfg.Smoothing = SmoothingConfig{Mode: mode, Subarrays: 3}
			r, err := NewRunner(cfg, nil, quietLogger())
			require.NoError(t, err)
			summary, err := r.Run(context.Background())
			require.NoError(t, err)
			m := summaryFor(t, summary, MethodMusic)
			assert.Zero(t, m.Failures)
			assert.GreaterOrEqual(t, m.SuccessRate, 0.75)
		})
	}
}

func TestRunnerReportsEstimatorErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.Source.Targets = 8
	cfg.Experiment.Angles = nil
	cfg.Experiment.MinSeparation = 5
	cfg.Experiment.Trials = 2
	cfg.Methods = []string{MethodRootMusic}
	hub := report.NewHub(0)
	r, err := NewRunner(cfg, hub, quietLogger())
	require.NoError(t, err)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	m := summaryFor(t, summary, MethodRootMusic)
	assert.Equal(t, 2, m.Failures)
	for _, res := range hub.History() {
		assert.Contains(t, res.Err, doaerr.ErrInvalidParameter.Error())
	}
}

func TestRunnerCancellation(t *testing.T) {
	cfg := smallConfig()
	cfg.Experiment.Trials = 1000
	cfg.Methods = []string{MethodRootMusic}
	r, err := NewRunner(cfg, nil, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, summary.Trials, cfg.Experiment.Trials)
}

func TestNewRunnerValidation(t *testing.T) {
	cfg := smallConfig()
	cfg.Esprit.Displacement = 8
	_, err := NewRunner(cfg, nil, quietLogger())
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)

	cfg = smallConfig()
	cfg.Smoothing = SmoothingConfig{Mode: SmoothingImproved, Subarrays: 9}
	_, err = NewRunner(cfg, nil, quietLogger())
	assert.ErrorIs(t, err, doaerr.ErrInvalidParameter)

	cfg = smallConfig()
	cfg.Source.Samples = 0
	_, err = NewRunner(cfg, nil, quietLogger())
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)
}

func TestBoundSweep(t *testing.T) {
	cfg := smallConfig()
	points, err := BoundSweep(cfg, []float64{0, 10, 20}, quietLogger())
	require.NoError(t, err)
	require.Len(t, points, 3)
	for i := 1; i < len(points); i++ {
		for k := range points[i].Std {
			assert.Less(t, points[i].Std[k], points[i-1].Std[k])
		}
	}

	cfg.Experiment.Angles = nil
	_, err = BoundSweep(cfg, []float64{0}, nil)
	assert.ErrorIs(t, err, doaerr.ErrConfiguration)
}
