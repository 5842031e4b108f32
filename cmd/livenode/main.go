package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/telemetry"
	"github.com/antonveldt/tradesim-kernel/internal/service/kernel"
)

func main() {
	var configPath = flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.Logging, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.FromAppConfig("tradesim-livenode", cfg))
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	if len(cfg.Live.Sessions) == 0 {
		logger.Fatal("no live sessions configured")
	}

	clk := clock.NewLiveClock(logger)
	clk.OnHandlerFailure(func(label values.Label, err error) {
		RecordHandlerFailure(label.String())
		logger.Error("timer handler failed",
			zap.String("label", label.String()), zap.Error(err))
	})

	var node *kernel.Kernel
	node, err = kernel.New(clk, cfg.Live, func(a kernel.Activation) {
		RecordActivation(a.Session, a.Scheduled, a.Actual)
		UpdateQueuedActivations(node.QueuedActivations())
		UpdateTimersActive(len(clk.GetLabels()))
		logger.Info("session activated",
			zap.String("session", a.Session),
			zap.Time("scheduled", a.Scheduled),
			zap.Duration("lag", a.Actual.Sub(a.Scheduled)))
	}, logger)
	if err != nil {
		logger.Fatal("failed to build kernel", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	server := &http.Server{
		Addr:              cfg.Live.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.Live.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	if err := node.Start(); err != nil {
		logger.Fatal("failed to start kernel", zap.Error(err))
	}
	UpdateTimersActive(len(clk.GetLabels()))
	logger.Info("live node running", zap.Int("sessions", len(cfg.Live.Sessions)))

	<-ctx.Done()
	logger.Info("shutting down")

	node.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}
}
