package bench

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/rjboer/GoDOA/internal/array"
	"github.com/rjboer/GoDOA/internal/doa"
	"github.com/rjboer/GoDOA/internal/doaerr"
	"github.com/rjboer/GoDOA/internal/logging"
	"github.com/rjboer/GoDOA/internal/peaks"
	"github.com/rjboer/GoDOA/internal/report"
	"github.com/rjboer/GoDOA/internal/smoothing"
	"github.com/rjboer/GoDOA/internal/source"
)

// Runner executes the trials of a Config on a pool of workers.
type Runner struct {
	cfg         Config
	geom        *array.Geometry
	grid        []float64
	filter      peaks.FilterConfig
	formulation doa.Formulation
	methods     []string
	reporter    report.Reporter
	logger      logging.Logger
}

// NewRunner validates cfg and prepares a run. A nil reporter discards per-trial results;
// a nil logger uses logging.Default().
func NewRunner(cfg Config, reporter report.Reporter, logger logging.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	if reporter == nil {
		reporter = report.MultiReporter(nil)
	}
	geom, err := cfg.Geometry()
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	filter, err := cfg.FilterConfig()
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	f, err := cfg.formulation()
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	r := &Runner{
		cfg:         cfg,
		geom:        geom,
		grid:        cfg.AngleGrid(),
		filter:      filter,
		formulation: f,
		methods:     cfg.methods(),
		reporter:    reporter,
		logger:      logger.With(logging.F("subsystem", "bench")),
	}
	for _, m := range r.methods {
		if m != MethodEsprit {
			continue
		}
		if d := cfg.Esprit.Displacement; d < 1 || d >= geom.NumAntenna() {
			return nil, fmt.Errorf("bench: esprit displacement %d outside [1, %d): %w", d, geom.NumAntenna(), doaerr.ErrConfiguration)
		}
	}
	// Surface estimator construction errors before any goroutine starts.
	if _, err := r.newWorker(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) Geometry() *array.Geometry { return r.geom }

// Run executes every trial and returns the per-method summary. Cancelling ctx stops the
// pool; the summary then covers the trials that completed and ctx.Err() is returned.
func (r *Runner) Run(ctx context.Context) (report.Summary, error) {
	trials := r.cfg.Experiment.Trials
	numWorkers := r.cfg.Experiment.Workers
	if numWorkers == 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > trials {
		numWorkers = trials
	}

	workers := make([]*worker, numWorkers)
	for i := range workers {
		w, err := r.newWorker()
		if err != nil {
			return report.Summary{}, err
		}
		workers[i] = w
	}

	r.logger.Info("starting run",
		logging.F("trials", trials),
		logging.F("workers", numWorkers),
		logging.F("methods", r.methods),
		logging.F("antennas", r.geom.NumAntenna()),
		logging.F("wavelength_m", r.geom.Wavelength()),
		logging.F("seed", r.cfg.Experiment.Seed))
	start := time.Now()

	jobs := make(chan int)
	results := make(chan []report.TrialResult, numWorkers)

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			for trial := range jobs {
				results <- w.run(trial)
			}
		}(w)
	}

	go func() {
		defer close(jobs)
		for trial := 0; trial < trials; trial++ {
			select {
			case jobs <- trial:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		all       []report.TrialResult
		completed int
	)
	for batch := range results {
		for _, res := range batch {
			r.reporter.ReportTrial(res)
		}
		all = append(all, batch...)
		completed++
	}

	summary := report.Summary{
		Trials:  completed,
		Elapsed: time.Since(start),
		Methods: report.Aggregate(all),
	}
	r.reporter.ReportSummary(summary)
	if err := ctx.Err(); err != nil {
		r.logger.Warn("run cancelled", logging.F("completed", completed), logging.F("trials", trials))
		return summary, err
	}
	return summary, nil
}

// TrialSeed derives the generator seed of one trial from the run seed, so a trial's
// outcome does not depend on scheduling.
func TrialSeed(seed uint64, trial int) uint64 {
	x := seed ^ (uint64(trial) + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// worker owns estimator instances that keep per-call state and therefore cannot be
// shared between goroutines.
type worker struct {
	r          *Runner
	music      *doa.Music
	rootMusic  *doa.RootMusic
	beamscan   *doa.Beamscan
	beamAngles []float64
	crb        *doa.CRB
	finder     *peaks.Finder
}

func (r *Runner) newWorker() (*worker, error) {
	subarrays := 0
	if r.cfg.smoothingMode() != SmoothingNone {
		subarrays = r.cfg.Smoothing.Subarrays
	}
	music, err := doa.NewMusic(r.geom, r.grid, subarrays)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	rootMusic, err := doa.NewRootMusic(r.geom, r.cfg.Source.Targets)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	beamscan, err := doa.NewBeamscan(r.geom, r.cfg.Peaks.BeamscanSize)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	crb, err := doa.NewCRB(r.geom, r.cfg.Source.Samples, r.logger)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	finder, err := peaks.NewFinder(r.cfg.Source.Targets, r.filter)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	finder.MinProminenceRatio = r.cfg.Peaks.MinProminence
	return &worker{
		r:          r,
		music:      music,
		rootMusic:  rootMusic,
		beamscan:   beamscan,
		beamAngles: beamscan.Angles(),
		crb:        crb,
		finder:     finder,
	}, nil
}

func (w *worker) sourceConfig() source.Config {
	sc := w.r.cfg.Source
	return source.Config{
		NumSample: sc.Samples,
		NumTarget: sc.Targets,
		Coherent:  sc.Coherent,
		Baseband:  sc.Baseband,
	}
}

// run simulates one trial and evaluates every configured method on it.
func (w *worker) run(trial int) []report.TrialResult {
	cfg := w.r.cfg
	seed := TrialSeed(cfg.Experiment.Seed, trial)
	rng := source.NewRand(seed)

	out := make([]report.TrialResult, len(w.r.methods))
	for i, m := range w.r.methods {
		out[i] = report.TrialResult{Trial: trial, Seed: seed, Method: m}
	}
	fail := func(err error) []report.TrialResult {
		for i := range out {
			out[i].Err = err.Error()
		}
		return out
	}

	src, err := source.New(w.r.geom, w.sourceConfig(), rng)
	if err != nil {
		return fail(err)
	}
	truth := append([]float64(nil), cfg.Experiment.Angles...)
	if len(truth) == 0 {
		truth = source.RandomAngles(rng, cfg.Source.Targets, w.r.grid, cfg.Experiment.MinSeparation)
	}
	sort.Float64s(truth)
	if len(truth) != cfg.Source.Targets {
		return fail(fmt.Errorf("bench: drew %d of %d angles at separation %g: %w",
			len(truth), cfg.Source.Targets, cfg.Experiment.MinSeparation, doaerr.ErrInvalidParameter))
	}
	x, err := src.Collect(truth, cfg.Experiment.SNR)
	if err != nil {
		return fail(err)
	}
	bound := w.bound(truth)

	for i, m := range w.r.methods {
		start := time.Now()
		est, err := w.estimate(m, src, x, truth)
		res := &out[i]
		res.Duration = time.Since(start)
		res.Truth = truth
		res.CRB = bound
		if err != nil {
			res.Err = err.Error()
			continue
		}
		res.Estimates = est
		res.Errors, res.Success = match(truth, est, cfg.Experiment.Tolerance)
	}
	return out
}

// bound returns the CRB standard deviation of each source in the geometry's unit.
func (w *worker) bound(truth []float64) []float64 {
	variance := w.crb.Stochastic(truth, w.r.cfg.Experiment.SNR)
	out := make([]float64, len(variance))
	for i, v := range variance {
		out[i] = w.r.geom.FromRadians(math.Sqrt(v))
	}
	return out
}

// estimate returns the angles found by method m, in the geometry's unit.
func (w *worker) estimate(m string, src *source.Source, x *mat.CDense, truth []float64) ([]float64, error) {
	cfg := w.r.cfg
	switch m {
	case MethodMusic:
		spectrum, err := w.musicSpectrum(x)
		if err != nil {
			return nil, err
		}
		return w.pick(spectrum, w.r.grid)
	case MethodCapon:
		capon, err := doa.NewCapon(src, w.r.grid)
		if err != nil {
			return nil, err
		}
		spectrum, err := capon.Spectrum(x)
		if err != nil {
			return nil, err
		}
		return w.pick(spectrum, w.r.grid)
	case MethodBeamscan:
		spectrum, err := w.beamscan.Spectrum(x)
		if err != nil {
			return nil, err
		}
		return w.pick(spectrum, w.beamAngles)
	case MethodRootMusic:
		rad, err := w.rootMusic.Estimate(x)
		if err != nil {
			return nil, err
		}
		return w.fromRadians(rad), nil
	case MethodEsprit:
		esprit, err := doa.NewEsprit(src)
		if err != nil {
			return nil, err
		}
		rad, err := esprit.Estimate(truth, cfg.Experiment.SNR, cfg.Esprit.Displacement, w.r.formulation)
		if err != nil {
			return nil, err
		}
		return w.fromRadians(rad), nil
	default:
		return nil, fmt.Errorf("bench: unknown method %q: %w", m, doaerr.ErrConfiguration)
	}
}

func (w *worker) musicSpectrum(x *mat.CDense) ([]float64, error) {
	cfg := w.r.cfg
	n := w.r.geom.NumAntenna()
	switch cfg.smoothingMode() {
	case SmoothingFBSS:
		r, err := smoothing.FBSS(x, n, cfg.Smoothing.Subarrays)
		if err != nil {
			return nil, err
		}
		return w.music.EstimateCovariance(r, cfg.Source.Targets)
	case SmoothingImproved:
		r, err := smoothing.Improved(x, n, cfg.Smoothing.Subarrays)
		if err != nil {
			return nil, err
		}
		return w.music.EstimateCovariance(r, cfg.Source.Targets)
	default:
		return w.music.Estimate(x, cfg.Source.Targets)
	}
}

func (w *worker) pick(spectrum, grid []float64) ([]float64, error) {
	idx, err := w.finder.Find(spectrum)
	if err != nil {
		return nil, err
	}
	return peaks.IndicesToAngles(idx, grid)
}

func (w *worker) fromRadians(rad []float64) []float64 {
	out := make([]float64, len(rad))
	for i, v := range rad {
		out[i] = w.r.geom.FromRadians(v)
	}
	return out
}

// match pairs sorted estimates with sorted truth and returns the absolute error of each
// pair. Success needs one estimate per source, each within tol.
func match(truth, estimates []float64, tol float64) ([]float64, bool) {
	est := append([]float64(nil), estimates...)
	sort.Float64s(est)
	n := min(len(truth), len(est))
	errs := make([]float64, n)
	ok := len(est) == len(truth)
	for i := 0; i < n; i++ {
		errs[i] = math.Abs(est[i] - truth[i])
		if !(errs[i] <= tol) {
			ok = false
		}
	}
	return errs, ok
}
