package report

import (
	"math"
	"testing"
	"time"
)

func TestAggregate(t *testing.T) {
	results := []TrialResult{
		{Method: "music", Errors: []float64{0.1, 0.3}, CRB: []float64{0.2, 0.2}, Success: true, Duration: 2 * time.Millisecond},
		{Method: "music", Errors: []float64{1.5, 0.5}, CRB: []float64{0.2, math.Inf(1)}, Duration: 4 * time.Millisecond},
		{Method: "capon", Err: "singular", Duration: time.Millisecond},
		{Method: "capon", Errors: []float64{0.2}, Success: true, Duration: time.Millisecond},
	}
	got := Aggregate(results)
	if len(got) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(got))
	}
	if got[0].Method != "capon" || got[1].Method != "music" {
		t.Fatalf("methods not sorted: %q, %q", got[0].Method, got[1].Method)
	}

	capon := got[0]
	if capon.Trials != 2 || capon.Failures != 1 || capon.Successes != 1 {
		t.Fatalf("unexpected capon counts: %+v", capon)
	}
	if capon.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", capon.SuccessRate)
	}
	if capon.StdAbsError != 0 {
		t.Fatalf("single error should have zero spread, got %v", capon.StdAbsError)
	}

	music := got[1]
	wantRMSE := math.Sqrt((0.01 + 0.09 + 2.25 + 0.25) / 4)
	if math.Abs(music.RMSE-wantRMSE) > 1e-12 {
		t.Fatalf("rmse: want %v got %v", wantRMSE, music.RMSE)
	}
	if math.Abs(music.MeanAbsError-0.6) > 1e-12 {
		t.Fatalf("mean abs error: got %v", music.MeanAbsError)
	}
	if math.Abs(music.MeanCRB-0.2) > 1e-12 {
		t.Fatalf("infinite bounds must be skipped, got %v", music.MeanCRB)
	}
	if music.MeanDuration != 3*time.Millisecond {
		t.Fatalf("mean duration: got %v", music.MeanDuration)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Fatalf("expected no summaries, got %d", len(got))
	}
}

type recorder struct {
	trials  []TrialResult
	summary []Summary
}

func (r *recorder) ReportTrial(t TrialResult) { r.trials = append(r.trials, t) }
func (r *recorder) ReportSummary(s Summary)   { r.summary = append(r.summary, s) }

func TestMultiReporter(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := MultiReporter{a, nil, b}
	m.ReportTrial(TrialResult{Trial: 3})
	m.ReportSummary(Summary{Trials: 1})
	for _, r := range []*recorder{a, b} {
		if len(r.trials) != 1 || r.trials[0].Trial != 3 {
			t.Fatalf("trial not forwarded: %+v", r.trials)
		}
		if len(r.summary) != 1 {
			t.Fatalf("summary not forwarded")
		}
	}
}
