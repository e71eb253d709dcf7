package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"xenocpu/internal/models"
	"xenocpu/internal/services"
	"xenocpu/internal/telemetry"
)

var (
	benchRuns int
	benchJSON bool

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Run a prime-counting benchmark locally",
	}
	benchSingleCmd = &cobra.Command{
		Use:   "single",
		Short: "Single-core benchmark (median of five trials)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, models.BenchmarkSingleCore)
		},
	}
	benchMultiCmd = &cobra.Command{
		Use:   "multi",
		Short: "Multi-core benchmark; --runs selects the progress variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("runs") {
				return runBench(cmd, models.BenchmarkMultiCoreProgress)
			}
			return runBench(cmd, models.BenchmarkMultiCore)
		},
	}
)

func init() {
	benchMultiCmd.Flags().IntVar(&benchRuns, "runs", 3, "number of trials, clamped to 1..10")
	benchCmd.PersistentFlags().BoolVar(&benchJSON, "json", false, "print the result as JSON")
	benchCmd.AddCommand(benchSingleCmd, benchMultiCmd)
}

func runBench(cmd *cobra.Command, kind models.BenchmarkKind) error {
	defer log.Sync() //nolint:errcheck

	runner := services.NewBenchmarkRunner(cfg.Benchmark, services.NewPriorityBooster(), log)
	bench := services.NewBenchmarkService(runner, nil, telemetry.New(), log)

	out := cmd.OutOrStdout()
	result := bench.Run(kind, benchRuns, func(p models.BenchmarkProgress) {
		if !benchJSON {
			fmt.Fprintf(out, "run %d/%d\n", p.CurrentRun, p.TotalRuns)
		}
	})

	if benchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "%s score: %.2f (runs=%d threads=%d, %s)\n",
		result.Kind, result.Score, result.Runs, result.Threads, result.Duration.Round(time.Millisecond))
	return nil
}
