// Package cmd implements the rdsim command-line driver.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rdsim/rdsim/sim"
)

// Version of the rdsim tool.
const Version = "0.2.0"

// errUsage marks command-line errors, mapped to exit code 2.
var errUsage = errors.New("usage error")

var (
	modelName   string  // -m: model name within the stream
	nEvents     int64   // -n: run N events
	tEnd        float64 // -t: run until simulated time
	sampleEvery float64 // -d: sample cadence (events with -n, seconds with -t)
	nInstances  int     // -P: number of independent instances
	verbose     bool    // -v: per-event state dump
	batchOutput bool    // -B: buffer output, flush at end
	showVersion bool    // -V: print version

	logLevel    string // log verbosity
	seed        int64  // master RNG seed
	resultsPath string // optional JSON run summary
)

var rootCmd = &cobra.Command{
	Use:           "rdsim [flags] [model-file]",
	Short:         "Stochastic simulator for reaction-diffusion networks",
	Long:          "rdsim generates exact SSA trajectories of spatially-discretised\nreaction-diffusion models and emits sampled state as CSV.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSimulation,
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Println("rdsim " + Version)
		return nil
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("%w: invalid log level %q", errUsage, logLevel)
	}
	logrus.SetLevel(level)

	hasN := cmd.Flags().Changed("events")
	hasT := cmd.Flags().Changed("time")
	if hasN == hasT {
		return fmt.Errorf("%w: exactly one of -n and -t must be specified", errUsage)
	}
	if hasN && nEvents < 1 {
		return fmt.Errorf("%w: -n requires a positive event count", errUsage)
	}
	if hasT && tEnd <= 0 {
		return fmt.Errorf("%w: -t requires a positive end time", errUsage)
	}
	if nInstances < 1 {
		return fmt.Errorf("%w: -P requires at least one instance", errUsage)
	}

	modelFile := ""
	if len(args) == 1 {
		modelFile = args[0]
	}
	m, err := sim.LoadModelFile(modelFile, modelName)
	if err != nil {
		return err
	}
	logrus.Debugf("loaded model:\n%s", m)

	s, err := sim.NewSimulator(nInstances, m, 0)
	if err != nil {
		return err
	}

	cfg := sim.RunConfig{Verbose: verbose}
	if hasN {
		cfg.Events = nEvents
		cfg.SampleEvery = int64(sampleEvery)
	} else {
		cfg.TEnd = tEnd
		cfg.SampleDT = sampleEvery
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	emitter := sim.NewEmitter(os.Stdout, m, batchOutput, sim.ExpectedSamples(s, cfg))
	metrics := sim.NewMetrics(s, seed)

	logrus.Infof("starting run %s: model=%s instances=%d processes=%d",
		metrics.RunID, m.Name, nInstances, s.NumProcesses())

	start := time.Now()
	if err := sim.NewDriver(s, rng, emitter).Run(cfg); err != nil {
		return err
	}
	metrics.Capture(s, start)
	if err := metrics.SaveResults(resultsPath); err != nil {
		return err
	}

	logrus.Infof("run %s complete: %d events in %.3fs", metrics.RunID, metrics.TotalEvents, metrics.WallSeconds)
	return nil
}

// Execute runs the CLI and exits with 0 on success, 1 on runtime errors,
// and 2 on usage errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rdsim: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "", "Model name (required when the stream contains multiple models)")
	rootCmd.Flags().Int64VarP(&nEvents, "events", "n", 0, "Run N events per instance")
	rootCmd.Flags().Float64VarP(&tEnd, "time", "t", 0, "Run until simulated time >= TIME")
	rootCmd.Flags().Float64VarP(&sampleEvery, "sample", "d", 0, "Sample every N events (with -n) or every TIME seconds (with -t)")
	rootCmd.Flags().IntVarP(&nInstances, "instances", "P", 1, "Number of independent instances")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Per-event state dump")
	rootCmd.Flags().BoolVarP(&batchOutput, "batch", "B", false, "Batch output: buffer internally, flush at end")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "Print version and exit")

	rootCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Master RNG seed")
	rootCmd.Flags().StringVar(&resultsPath, "results-path", "", "File to save the JSON run summary to")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
}
