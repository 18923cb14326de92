package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, Summary{
		Trials:  10,
		Elapsed: 1500 * time.Millisecond,
		Methods: []MethodSummary{
			{Method: "esprit", SuccessRate: 1, RMSE: 0.05, MeanCRB: 0.04},
			{Method: "music", SuccessRate: 0.9, RMSE: 0.1, Failures: 1},
		},
	})
	if err != nil {
		t.Fatalf("write table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "trials: 10") || !strings.Contains(lines[0], "1.5s") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "esprit") || !strings.Contains(lines[2], "100.0%") {
		t.Fatalf("unexpected esprit row %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "music") || !strings.Contains(lines[3], "90.0%") {
		t.Fatalf("unexpected music row %q", lines[3])
	}
}
