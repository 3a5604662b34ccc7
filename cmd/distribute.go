package cmd

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rdsim/rdsim/sim"
	"github.com/rdsim/rdsim/sim/sample"
)

// Weight profiles for the distribute harness.
const (
	weightsConstant  = "constant"
	weightsLinear    = "linear"
	weightsGeometric = "geometric"
)

var (
	distCount   int64   // -c: count to distribute
	distBins    int     // -b: number of bins
	distTrials  int     // -N: number of trials
	distMethod  string  // sampling method keyword
	distGeom    float64 // first:last weight ratio, geometric profile
	distLinear  float64 // first:last weight ratio, linear profile
	distSeed    int64   // RNG seed
	distSummary bool    // print summary statistics instead of raw trials
)

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Allocate an integer total across weighted bins",
	Long: "distribute repeatedly allocates a count across weighted bins by\n" +
		"floor-assignment plus residual sampling, and reports the per-bin\n" +
		"allocations or their summary statistics as CSV.",
	RunE: runDistribute,
}

// binWeights builds the bin weight profile, scaled so the weights total the
// number of bins.
func binWeights(n int, profile string, ratio float64) []float64 {
	w := make([]float64, n)
	switch {
	case n == 1 || profile == weightsConstant:
		for i := range w {
			w[i] = 1
		}
	case profile == weightsLinear:
		a := 2.0 / float64(n-1) * (ratio - 1) / (ratio + 1)
		for i := range w {
			w[i] = 1 + a*(float64(i)-float64(n-1)*0.5)
		}
	case profile == weightsGeometric:
		a := math.Pow(ratio, 1/float64(n-1))
		w[0] = float64(n) * (a - 1) / (math.Pow(a, float64(n)) - 1)
		for i := 1; i < n; i++ {
			w[i] = a * w[i-1]
		}
	}
	return w
}

func runDistribute(cmd *cobra.Command, args []string) error {
	if !sample.IsValidMethod(distMethod) {
		return fmt.Errorf("%w: unknown method %q (valid: multinomial, oss, adjpareto, efraimidis, cpsrej)", errUsage, distMethod)
	}
	if distBins < 1 {
		return fmt.Errorf("%w: -b requires at least one bin", errUsage)
	}
	if distCount < 0 {
		return fmt.Errorf("%w: -c requires a non-negative count", errUsage)
	}
	if cmd.Flags().Changed("geometric") && cmd.Flags().Changed("linear") {
		return fmt.Errorf("%w: -g and -l are mutually exclusive", errUsage)
	}

	profile, ratio := weightsConstant, 1.0
	if cmd.Flags().Changed("geometric") {
		profile, ratio = weightsGeometric, distGeom
	} else if cmd.Flags().Changed("linear") {
		profile, ratio = weightsLinear, distLinear
	}
	weights := binWeights(distBins, profile, ratio)

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(distSeed)).ForSubsystem(sim.SubsystemSampler)
	bins := make([]int64, distBins)
	stats := make([]sample.RunningStats, distBins)

	out := os.Stdout
	if !distSummary {
		cols := make([]string, 0, distBins+1)
		cols = append(cols, "trial")
		for i := range bins {
			cols = append(cols, fmt.Sprintf("B%d", i+1))
		}
		fmt.Fprintln(out, strings.Join(cols, ","))
	}

	for trial := 0; trial < distTrials; trial++ {
		if err := sample.Distribute(distCount, weights, sample.Method(distMethod), rng, bins); err != nil {
			return err
		}
		if distSummary {
			for i, b := range bins {
				stats[i].Insert(float64(b))
			}
			continue
		}
		row := make([]string, 0, distBins+1)
		row = append(row, strconv.Itoa(trial+1))
		for _, b := range bins {
			row = append(row, strconv.FormatInt(b, 10))
		}
		fmt.Fprintln(out, strings.Join(row, ","))
	}

	if distSummary {
		fmt.Fprintln(out, "bin,weight,mean,cv,min,max")
		for i := range stats {
			fmt.Fprintf(out, "%d,%g,%g,%g,%g,%g\n",
				i+1, weights[i], stats[i].Mean(), stats[i].CV(), stats[i].Min(), stats[i].Max())
		}
	}
	return nil
}

func init() {
	distributeCmd.Flags().Int64VarP(&distCount, "count", "c", 1, "Count to distribute")
	distributeCmd.Flags().IntVarP(&distBins, "bins", "b", 1, "Number of bins")
	distributeCmd.Flags().IntVarP(&distTrials, "trials", "N", 1, "Number of trials")
	distributeCmd.Flags().StringVar(&distMethod, "method", string(sample.Systematic), "Residual sampling method (multinomial, oss, adjpareto, efraimidis, cpsrej)")
	distributeCmd.Flags().Float64VarP(&distGeom, "geometric", "g", 1, "Distribute weights geometrically with first:last = RATIO")
	distributeCmd.Flags().Float64VarP(&distLinear, "linear", "l", 1, "Distribute weights linearly with first:last = RATIO")
	distributeCmd.Flags().Int64Var(&distSeed, "seed", 0, "RNG seed")
	distributeCmd.Flags().BoolVarP(&distSummary, "summary", "S", false, "Print summary statistics instead of raw allocations")

	rootCmd.AddCommand(distributeCmd)
}
