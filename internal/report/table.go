package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteTable renders s as an aligned plain-text table, one row per method.
func WriteTable(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "trials: %d\telapsed: %s\n", s.Trials, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(tw, "METHOD\tSUCCESS\tRMSE\tMEAN |ERR|\tSTD |ERR|\tCRB\tFAILED\tMEAN TIME")
	for _, m := range s.Methods {
		fmt.Fprintf(tw, "%s\t%.1f%%\t%.4g\t%.4g\t%.4g\t%.4g\t%d\t%s\n",
			m.Method, 100*m.SuccessRate, m.RMSE, m.MeanAbsError, m.StdAbsError, m.MeanCRB,
			m.Failures, m.MeanDuration)
	}
	return tw.Flush()
}
