// doabench runs Monte-Carlo comparisons of direction-of-arrival estimators on a
// simulated uniform linear array.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rjboer/GoDOA/internal/bench"
	"github.com/rjboer/GoDOA/internal/logging"
	"github.com/rjboer/GoDOA/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagBinding ties a command line flag to its configuration key.
type flagBinding struct {
	flag string
	key  string
}

var bindings = []flagBinding{
	{"antennas", "array.antennas"},
	{"frequency", "array.frequency"},
	{"spacing", "array.spacing"},
	{"unit", "array.unit"},
	{"samples", "source.samples"},
	{"targets", "source.targets"},
	{"coherent", "source.coherent"},
	{"baseband", "source.baseband"},
	{"trials", "experiment.trials"},
	{"workers", "experiment.workers"},
	{"seed", "experiment.seed"},
	{"snr", "experiment.snr"},
	{"min-separation", "experiment.min_separation"},
	{"tolerance", "experiment.tolerance"},
	{"history-limit", "experiment.history_limit"},
	{"grid-min", "grid.min"},
	{"grid-max", "grid.max"},
	{"grid-step", "grid.step"},
	{"methods", "methods"},
	{"smoothing", "smoothing.mode"},
	{"subarrays", "smoothing.subarrays"},
	{"displacement", "esprit.displacement"},
	{"formulation", "esprit.formulation"},
	{"filter", "peaks.filter"},
	{"cutoff", "peaks.cutoff"},
	{"order", "peaks.order"},
	{"sigma", "peaks.sigma"},
	{"window", "peaks.window"},
	{"poly-order", "peaks.poly_order"},
	{"min-prominence", "peaks.min_prominence"},
	{"beamscan-size", "peaks.beamscan_size"},
	{"log-level", "logging.level"},
	{"log-format", "logging.format"},
}

// cli holds the state shared by the commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	angles  []float64
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return newCLI(stdout, stderr).command()
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{v: viper.New(), stdout: stdout, stderr: stderr}
}

func (c *cli) command() *cobra.Command {
	def := bench.DefaultConfig()

	root := &cobra.Command{
		Use:   "doabench",
		Short: "Monte-Carlo benchmark for direction-of-arrival estimators",
		Long: `doabench simulates far-field sources impinging on a uniform linear array and
grades MUSIC, Capon, Root-MUSIC, ESPRIT and a conventional beamscan against the
stochastic Cramér-Rao bound.

Settings come from defaults, a YAML file (--config), DOA_* environment variables
(e.g. DOA_EXPERIMENT_SNR) and flags, later sources winning.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "", "config file (default ./doabench.yaml when present)")
	pf.Int("antennas", def.Array.Antennas, "number of array elements")
	pf.Float64("frequency", def.Array.Frequency, "carrier frequency (Hz)")
	pf.Float64("spacing", def.Array.Spacing, "element spacing as a fraction of the wavelength")
	pf.String("unit", def.Array.Unit, "angle unit: degrees or radians")
	pf.Int("samples", def.Source.Samples, "snapshots per trial")
	pf.Int("targets", def.Source.Targets, "number of sources")
	pf.Bool("coherent", def.Source.Coherent, "all sources share one waveform")
	pf.Bool("baseband", def.Source.Baseband, "complex Gaussian waveforms instead of sampled carriers")
	pf.Float64SliceVar(&c.angles, "angles", nil, "fixed source angles; random per trial when empty")
	pf.Float64("snr", def.Experiment.SNR, "per-source SNR (dB)")
	pf.String("log-level", def.Logging.Level, "log level: debug, info, warn or error")
	pf.String("log-format", def.Logging.Format, "log format: text or json")

	root.AddCommand(c.newRunCmd(def), c.newCRBCmd())

	for _, b := range bindings {
		f := pf.Lookup(b.flag)
		if f == nil {
			continue
		}
		if err := c.v.BindPFlag(b.key, f); err != nil {
			panic(err)
		}
	}
	return root
}

func (c *cli) newRunCmd(def bench.Config) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Monte-Carlo experiment and print a per-method summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := c.setupLogging(cfg)
			if err != nil {
				return err
			}
			hub := report.NewHub(cfg.Experiment.HistoryLimit)
			runner, err := bench.NewRunner(cfg, report.MultiReporter{hub, report.NewLogReporter(logger)}, logger)
			if err != nil {
				return err
			}
			summary, runErr := runner.Run(cmd.Context())
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			if asJSON {
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			} else if err := report.WriteTable(c.stdout, summary); err != nil {
				return err
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print the summary as JSON")
	f.Int("trials", def.Experiment.Trials, "number of trials")
	f.Int("workers", def.Experiment.Workers, "parallel workers (0 = one per CPU)")
	f.Uint64("seed", def.Experiment.Seed, "base seed; trial seeds derive from it")
	f.Float64("min-separation", def.Experiment.MinSeparation, "minimum separation of random angles")
	f.Float64("tolerance", def.Experiment.Tolerance, "largest error counted as a success")
	f.Int("history-limit", def.Experiment.HistoryLimit, "trial results kept in memory")
	f.Float64("grid-min", def.Grid.Min, "scan grid start")
	f.Float64("grid-max", def.Grid.Max, "scan grid end")
	f.Float64("grid-step", def.Grid.Step, "scan grid step")
	f.StringSlice("methods", def.Methods, "estimators: music, capon, root-music, esprit, beamscan")
	f.String("smoothing", def.Smoothing.Mode, "spatial smoothing before MUSIC: none, fbss or improved")
	f.Int("subarrays", def.Smoothing.Subarrays, "smoothing subarray count")
	f.Int("displacement", def.Esprit.Displacement, "ESPRIT subarray displacement")
	f.String("formulation", def.Esprit.Formulation, "ESPRIT formulation: ls or tls")
	f.String("filter", def.Peaks.Filter, "spectrum filter: butterworth, gaussian, savgol or none")
	f.Float64("cutoff", def.Peaks.Cutoff, "Butterworth cutoff (fraction of Nyquist)")
	f.Int("order", def.Peaks.Order, "Butterworth order")
	f.Float64("sigma", def.Peaks.Sigma, "Gaussian filter sigma (samples)")
	f.Int("window", def.Peaks.Window, "Savitzky-Golay window length")
	f.Int("poly-order", def.Peaks.PolyOrder, "Savitzky-Golay polynomial order")
	f.Float64("min-prominence", def.Peaks.MinProminence, "minimum peak prominence relative to the maximum")
	f.Int("beamscan-size", def.Peaks.BeamscanSize, "beamscan FFT length (0 = default)")

	for _, b := range bindings {
		if fl := f.Lookup(b.flag); fl != nil {
			if err := c.v.BindPFlag(b.key, fl); err != nil {
				panic(err)
			}
		}
	}
	return cmd
}

func (c *cli) newCRBCmd() *cobra.Command {
	var snrs []float64
	cmd := &cobra.Command{
		Use:   "crb",
		Short: "Print the stochastic Cramér-Rao bound of the fixed angles over a range of SNRs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := c.setupLogging(cfg)
			if err != nil {
				return err
			}
			points, err := bench.BoundSweep(cfg, snrs, logger)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
			header := []string{"SNR (dB)"}
			for _, a := range cfg.Experiment.Angles {
				header = append(header, fmt.Sprintf("σ @ %g", a))
			}
			fmt.Fprintln(tw, strings.Join(header, "\t"))
			for _, p := range points {
				row := []string{fmt.Sprintf("%g", p.SNR)}
				for _, s := range p.Std {
					row = append(row, fmt.Sprintf("%.4g", s))
				}
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Float64SliceVar(&snrs, "snrs", []float64{-10, 0, 10, 20, 30}, "SNRs (dB) to evaluate")
	return cmd
}

// loadConfig merges defaults, the config file, DOA_* environment variables and flags.
func (c *cli) loadConfig(cmd *cobra.Command) (bench.Config, error) {
	v := c.v
	v.SetEnvPrefix("DOA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if c.cfgFile != "" {
		v.SetConfigFile(c.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return bench.Config{}, fmt.Errorf("read config %s: %w", c.cfgFile, err)
		}
	} else {
		v.SetConfigName("doabench")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return bench.Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := bench.DefaultConfig()
	// Decoding into a shorter slice would keep the tail of the default.
	cfg.Methods = nil
	if err := v.Unmarshal(&cfg); err != nil {
		return bench.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cmd.Flags().Changed("angles") {
		cfg.Experiment.Angles = append([]float64(nil), c.angles...)
	}
	return cfg, nil
}

func (c *cli) setupLogging(cfg bench.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level, format, c.stderr)
	logging.SetDefault(logger)
	return logger, nil
}
