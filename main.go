package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/logging"
)

var (
	configPath string
	logLevel   string

	// Loaded once by the root command before any subcommand runs
	cfg config.Config
	log *zap.SugaredLogger

	rootCmd = &cobra.Command{
		Use:   "xenocpu",
		Short: "CPU stress, benchmark and hardware inspection server",
		Long: `xenocpu drives synthetic CPU load, scores the processor with
prime-counting benchmarks and reports live CPU readings over HTTP and WebSocket.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadRuntime,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(serveCmd, benchCmd, infoCmd, stressCmd, tokenCmd)
}

func loadRuntime(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err = logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}
