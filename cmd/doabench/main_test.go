package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/rjboer/GoDOA/internal/bench"
	"github.com/rjboer/GoDOA/internal/report"
)

// configFor parses args like an invocation of the run command and returns the merged
// configuration without running anything.
func configFor(t *testing.T, args ...string) bench.Config {
	t.Helper()
	var got bench.Config
	c := newCLI(&bytes.Buffer{}, &bytes.Buffer{})
	root := c.command()
	for _, sub := range root.Commands() {
		if sub.Name() != "run" {
			continue
		}
		sub.RunE = func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = c.loadConfig(cmd)
			return err
		}
	}
	root.SetArgs(append([]string{"run"}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	return got
}

func TestParseConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := configFor(t)
	def := bench.DefaultConfig()
	if cfg.Array != def.Array || cfg.Source != def.Source || cfg.Grid != def.Grid {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Experiment.Trials != def.Experiment.Trials || cfg.Experiment.SNR != def.Experiment.SNR {
		t.Fatalf("unexpected experiment defaults: %+v", cfg.Experiment)
	}
	if strings.Join(cfg.Methods, ",") != strings.Join(def.Methods, ",") {
		t.Fatalf("unexpected methods: %v", cfg.Methods)
	}
	if len(cfg.Experiment.Angles) != 0 {
		t.Fatalf("expected random angles by default, got %v", cfg.Experiment.Angles)
	}
}

func TestParseConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `
array:
  antennas: 10
  unit: radians
experiment:
  trials: 7
  snr: 3
methods: [music, capon, esprit]
`
	path := filepath.Join(dir, "exp.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOA_EXPERIMENT_SNR", "12.5")
	t.Setenv("DOA_SOURCE_SAMPLES", "321")

	cfg := configFor(t, "--config", path, "--trials", "9", "--methods", "root-music", "--angles=-20,15")
	if cfg.Array.Antennas != 10 || cfg.Array.Unit != "radians" {
		t.Fatalf("config file not applied: %+v", cfg.Array)
	}
	if cfg.Experiment.SNR != 12.5 || cfg.Source.Samples != 321 {
		t.Fatalf("env overrides not applied: snr=%v samples=%v", cfg.Experiment.SNR, cfg.Source.Samples)
	}
	if cfg.Experiment.Trials != 9 {
		t.Fatalf("flag should beat the config file, got %d trials", cfg.Experiment.Trials)
	}
	if len(cfg.Methods) != 1 || cfg.Methods[0] != "root-music" {
		t.Fatalf("unexpected methods %v", cfg.Methods)
	}
	if len(cfg.Experiment.Angles) != 2 || cfg.Experiment.Angles[0] != -20 || cfg.Experiment.Angles[1] != 15 {
		t.Fatalf("unexpected angles %v", cfg.Experiment.Angles)
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	root.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}

func TestRunCommandJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	root := newRootCmd(&out, &bytes.Buffer{})
	root.SetArgs([]string{
		"run", "--json", "--trials", "3", "--workers", "2", "--samples", "100",
		"--snr", "20", "--methods", "root-music,esprit", "--angles=-20,15",
		"--log-level", "error",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary report.Summary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out.String())
	}
	if summary.Trials != 3 || len(summary.Methods) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, m := range summary.Methods {
		if m.Failures != 0 {
			t.Fatalf("%s failed %d trials", m.Method, m.Failures)
		}
	}
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	root := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	root.SetArgs([]string{"run", "--methods", "bartlett", "--log-level", "error"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for unknown method")
	}

	root = newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	root.SetArgs([]string{"run", "--log-level", "loud"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestCRBCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	root := newRootCmd(&out, &bytes.Buffer{})
	root.SetArgs([]string{"crb", "--angles=-20,15", "--snrs=0,10", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("crb: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out.String())
	}
	if !strings.Contains(lines[0], "σ @ -20") || !strings.HasPrefix(lines[2], "10") {
		t.Fatalf("unexpected table:\n%s", out.String())
	}

	root = newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	root.SetArgs([]string{"crb", "--log-level", "error"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without fixed angles")
	}
}
