package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookline/bookline/internal/app"
	"github.com/bookline/bookline/pkg/config"
	"github.com/bookline/bookline/pkg/observability"
)

// The worker drains pending automation runs in the background and
// exposes a health endpoint with run counts. It shares the container
// with the CLI, so it works against PostgreSQL and SQLite alike.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logCfg.ServiceName = "bookline-worker"
	logger := observability.NewLogger(logCfg)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if err := container.RunProcessor.Start(ctx); err != nil {
		logger.Error("failed to start run processor", "error", err)
		os.Exit(1)
	}
	logger.Info("run processor started",
		"poll_interval", cfg.RunPollInterval,
		"batch_size", cfg.RunBatchSize)

	healthSrv := &http.Server{
		Addr:              cfg.WorkerHealthAddr,
		Handler:           healthHandler(container),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("health endpoint listening", "addr", cfg.WorkerHealthAddr)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	container.RunProcessor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", "error", err)
	}

	logger.Info("worker stopped")
}

func healthHandler(container *app.Container) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		counts, err := container.RunRepo.CountByStatus(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		status := map[string]any{
			"running": container.RunProcessor.IsRunning(),
			"driver":  string(container.DBDriver),
			"runs":    counts,
		}

		w.Header().Set("Content-Type", "application/json")
		if !container.RunProcessor.IsRunning() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}
