package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xenocpu/internal/services"
	"xenocpu/internal/telemetry"
)

var (
	stressThreads  int
	stressDuration time.Duration

	stressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Load the CPU until the duration elapses or the process is interrupted",
		RunE:  runStress,
	}
)

func init() {
	stressCmd.Flags().IntVarP(&stressThreads, "threads", "t", 0, "worker count (default stress.default_threads)")
	stressCmd.Flags().DurationVarP(&stressDuration, "duration", "d", 0, "stop after this long; 0 runs until interrupted")
}

func runStress(cmd *cobra.Command, args []string) error {
	defer log.Sync() //nolint:errcheck

	threads := stressThreads
	if threads == 0 {
		threads = cfg.Stress.DefaultThreads
	}
	if threads < 1 {
		return fmt.Errorf("--threads must be at least 1, got %d", threads)
	}

	stress := services.NewStressController(cfg.Stress, log, telemetry.New())
	if !stress.Start(threads) {
		return fmt.Errorf("stress test did not start")
	}
	defer stress.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deadline <-chan time.Time
	if stressDuration > 0 {
		timer := time.NewTimer(stressDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stressing %d threads\n", stress.ActiveThreadCount())
	select {
	case <-ctx.Done():
	case <-deadline:
	}
	return nil
}
