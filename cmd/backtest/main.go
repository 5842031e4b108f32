package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/telemetry"
	"github.com/antonveldt/tradesim-kernel/internal/metrics"
	"github.com/antonveldt/tradesim-kernel/internal/service/backtest"
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

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.FromAppConfig("tradesim-backtest", cfg))
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry, err := metrics.NewRegistry("tradesim.backtest")
	if err != nil {
		logger.Fatal("failed to initialize metrics", zap.Error(err))
	}

	if len(cfg.Backtest.Runs) == 0 {
		logger.Fatal("no backtest runs configured")
	}

	node, err := backtest.NewNode(
		newLoggingEngineFactory(logger),
		newSyntheticFeedFactory(cfg.Backtest.Runs),
		registry,
		logger,
	)
	if err != nil {
		logger.Fatal("failed to build backtest node", zap.Error(err))
	}

	results, err := node.Run(ctx, cfg.Backtest.Runs)
	for _, result := range results {
		logger.Info("run completed",
			zap.String("run_id", result.RunID),
			zap.Time("start", result.Start),
			zap.Time("stop", result.Stop),
			zap.Duration("elapsed", result.Elapsed),
			zap.Int("batches", result.Batches),
			zap.Int64("events_fired", result.EventsFired),
			zap.Int64("handler_failures", result.HandlerFailures))
	}
	if err != nil {
		logger.Error("backtest failed", zap.Error(err))
		os.Exit(1)
	}
}
