// Package report collects Monte-Carlo trial outcomes and fans them out to sinks.
package report

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TrialResult is the outcome of one estimator on one trial. Angles are in the unit of
// the experiment's geometry.
type TrialResult struct {
	Trial     int           `json:"trial"`
	Seed      uint64        `json:"seed"`
	Method    string        `json:"method"`
	Truth     []float64     `json:"truth"`
	Estimates []float64     `json:"estimates"`
	Errors    []float64     `json:"errors,omitempty"` // |estimate − truth| per matched pair
	CRB       []float64     `json:"crb,omitempty"`    // bound on the standard deviation per source
	Success   bool          `json:"success"`
	Err       string        `json:"err,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// MethodSummary aggregates every trial of one method.
type MethodSummary struct {
	Method       string        `json:"method"`
	Trials       int           `json:"trials"`
	Failures     int           `json:"failures"` // trials that returned an error
	Successes    int           `json:"successes"`
	SuccessRate  float64       `json:"successRate"`
	RMSE         float64       `json:"rmse"`
	MeanAbsError float64       `json:"meanAbsError"`
	StdAbsError  float64       `json:"stdAbsError"`
	MeanCRB      float64       `json:"meanCrb"` // root of the mean CRB variance
	MeanDuration time.Duration `json:"meanDuration"`
}

// Summary is the result of a whole run.
type Summary struct {
	Trials  int             `json:"trials"`
	Elapsed time.Duration   `json:"elapsed"`
	Methods []MethodSummary `json:"methods"`
}

// Reporter receives per-trial results as they complete and the final summary.
type Reporter interface {
	ReportTrial(TrialResult)
	ReportSummary(Summary)
}

// MultiReporter fans out to multiple destinations.
type MultiReporter []Reporter

func (m MultiReporter) ReportTrial(r TrialResult) {
	for _, rep := range m {
		if rep != nil {
			rep.ReportTrial(r)
		}
	}
}

func (m MultiReporter) ReportSummary(s Summary) {
	for _, rep := range m {
		if rep != nil {
			rep.ReportSummary(s)
		}
	}
}

// Aggregate summarises results per method, in method name order.
func Aggregate(results []TrialResult) []MethodSummary {
	byMethod := make(map[string][]TrialResult)
	for _, r := range results {
		byMethod[r.Method] = append(byMethod[r.Method], r)
	}
	names := make([]string, 0, len(byMethod))
	for name := range byMethod {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]MethodSummary, 0, len(names))
	for _, name := range names {
		out = append(out, summarise(name, byMethod[name]))
	}
	return out
}

func summarise(method string, results []TrialResult) MethodSummary {
	s := MethodSummary{Method: method, Trials: len(results)}
	var (
		errs     []float64
		variance []float64
		total    time.Duration
	)
	for _, r := range results {
		total += r.Duration
		if r.Err != "" {
			s.Failures++
			continue
		}
		if r.Success {
			s.Successes++
		}
		errs = append(errs, r.Errors...)
		for _, c := range r.CRB {
			if !math.IsInf(c, 0) && !math.IsNaN(c) {
				variance = append(variance, c*c)
			}
		}
	}
	if s.Trials > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Trials)
		s.MeanDuration = total / time.Duration(s.Trials)
	}
	if len(errs) > 0 {
		sq := make([]float64, len(errs))
		for i, e := range errs {
			sq[i] = e * e
		}
		s.RMSE = math.Sqrt(stat.Mean(sq, nil))
		s.MeanAbsError, s.StdAbsError = stat.MeanStdDev(errs, nil)
		if len(errs) == 1 {
			s.StdAbsError = 0
		}
	}
	if len(variance) > 0 {
		s.MeanCRB = math.Sqrt(stat.Mean(variance, nil))
	}
	return s
}
