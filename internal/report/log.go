package report

import (
	"github.com/rjboer/GoDOA/internal/logging"
)

// LogReporter writes results through a structured logger. Trials log at debug level,
// failed trials at warn, and the summary at info with one entry per method.
type LogReporter struct {
	logger logging.Logger
}

func NewLogReporter(logger logging.Logger) LogReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return LogReporter{logger: logger.With(logging.F("subsystem", "report"))}
}

func (r LogReporter) ReportTrial(t TrialResult) {
	fields := []logging.Field{
		{Key: "trial", Value: t.Trial},
		{Key: "method", Value: t.Method},
		{Key: "truth", Value: t.Truth},
		{Key: "estimates", Value: t.Estimates},
	}
	if t.Err != "" {
		r.logger.Warn("trial failed", append(fields, logging.F("err", t.Err))...)
		return
	}
	fields = append(fields, logging.F("success", t.Success))
	if len(t.Errors) > 0 {
		fields = append(fields, logging.F("errors", t.Errors))
	}
	r.logger.Debug("trial", fields...)
}

func (r LogReporter) ReportSummary(s Summary) {
	r.logger.Info("run complete", logging.F("trials", s.Trials), logging.F("elapsed", s.Elapsed))
	for _, m := range s.Methods {
		r.logger.Info("method summary",
			logging.F("method", m.Method),
			logging.F("success_rate", m.SuccessRate),
			logging.F("rmse", m.RMSE),
			logging.F("crb", m.MeanCRB),
			logging.F("failures", m.Failures),
		)
	}
}
