package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"xenocpu/internal/controllers"
	"xenocpu/internal/middleware"
	"xenocpu/internal/routes"
	"xenocpu/internal/services"
	"xenocpu/internal/telemetry"
)

var (
	serveAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// buildHandlers wires every service behind the HTTP surface
func buildHandlers(metrics *telemetry.Metrics) *controllers.Handlers {
	stress := services.NewStressController(cfg.Stress, log, metrics)
	hardware := services.NewHardwareInspector(services.NewPlatformProvider(cfg.Hardware), cfg.Hardware, metrics, log)
	history := services.NewHistoryCollector(cfg.History, hardware, log)
	runner := services.NewBenchmarkRunner(cfg.Benchmark, services.NewPriorityBooster(), log)

	h := controllers.NewHandlers(&controllers.Handlers{
		Stress:     stress,
		Benchmarks: services.NewBenchmarkService(runner, history, metrics, log),
		Hardware:   hardware,
		History:    history,
		Auth:       services.NewAuthService(cfg.Auth, log),
		Security:   middleware.NewSecurityLogger(log),
		Config:     cfg,
		Log:        log,
	})
	h.Hub = services.NewWebSocketHub(cfg.History.Interval, h.Stats, metrics, log)
	return h
}

func runServe(cmd *cobra.Command, args []string) error {
	defer log.Sync() //nolint:errcheck

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := telemetry.New()
	h := buildHandlers(metrics)

	h.History.Start()
	h.Hub.Start()
	defer func() {
		h.Stress.Stop()
		h.History.Stop()
		h.Hub.Stop()
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.NewRouter(h, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", cfg.Server.Addr, "require_token", cfg.Auth.RequireToken)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
