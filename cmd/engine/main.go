// Package main runs the strategy execution engine daemon: it loads the
// configuration, wires the storage backend and the risk feed, starts the
// metrics server and evaluates all strategies every tick until
// interrupted.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/config"
	"cycle-strategy-engine/internal/engine"
	"cycle-strategy-engine/internal/observability"
	"cycle-strategy-engine/internal/riskfeed"
	"cycle-strategy-engine/internal/storage"
	"cycle-strategy-engine/internal/storage/memory"
	"cycle-strategy-engine/internal/storage/migrations"
	pgstore "cycle-strategy-engine/internal/storage/postgres"
)

func main() {
	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("initialize storage")
	}
	defer cleanup()

	feed, err := buildFeed(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("initialize risk feed")
	}

	metrics := observability.NewMetrics("")
	metricsSrv := observability.NewServer(cfg.MetricsAddr)
	go func() {
		logger.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
		if err := metricsSrv.Start(); err != nil {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	eng := engine.New(engine.Options{
		Store:        store,
		Feed:         feed,
		TickInterval: cfg.TickInterval,
		Logger:       logger,
		Metrics:      metrics,
	})

	if err := eng.Run(ctx); err != nil {
		logger.WithError(err).Error("engine stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown")
	}

	logger.Info("shutdown complete")
}

// buildStore wires the configured strategy store. The returned cleanup
// closes any underlying pool.
func buildStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.StrategyStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("using postgres strategy store")
		return pgstore.NewStrategyStore(pool), pool.Close, nil

	default:
		logger.Info("using in-memory strategy store")
		return memory.NewStrategyStore(), func() {}, nil
	}
}

// buildFeed wires the configured risk feed.
func buildFeed(ctx context.Context, cfg config.Config, logger *logrus.Logger) (riskfeed.Feed, error) {
	switch cfg.Feed.Mode {
	case config.FeedWS:
		return riskfeed.NewWSFeed(ctx, cfg.Feed.Endpoint, nil, logger)

	case config.FeedStatic:
		logger.Warn("static risk feed selected, scores must be set programmatically")
		return riskfeed.NewStatic(), nil

	default:
		return riskfeed.NewPoller(riskfeed.PollerOptions{
			Endpoint:        cfg.Feed.Endpoint,
			RefreshInterval: cfg.Feed.RefreshInterval,
			Logger:          logger,
		})
	}
}
