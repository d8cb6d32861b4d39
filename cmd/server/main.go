// Package main runs the strategy compiler API server: strategy CRUD,
// validation, compilation and backtest orchestration over HTTP, with
// Prometheus metrics on a separate listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"strategy-graph-lab/internal/backtester"
	"strategy-graph-lab/internal/backtester/stub"
	"strategy-graph-lab/internal/config"
	"strategy-graph-lab/internal/lifecycle"
	"strategy-graph-lab/internal/observability"
	"strategy-graph-lab/internal/server"
	"strategy-graph-lab/internal/storage"
	chstore "strategy-graph-lab/internal/storage/clickhouse"
	"strategy-graph-lab/internal/storage/memory"
	"strategy-graph-lab/internal/storage/migrations"
	pgstore "strategy-graph-lab/internal/storage/postgres"
	"strategy-graph-lab/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the environment.
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "API listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address (empty disables)")
	flag.BoolVar(&cfg.UseMemory, "memory", cfg.UseMemory, "use in-memory stores")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN")
	flag.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse DSN (empty disables run history)")
	flag.StringVar(&cfg.BacktestEndpoint, "backtest-endpoint", cfg.BacktestEndpoint, "backtest engine URL (empty uses the built-in stub)")
	flag.Parse()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("")

	strategies, runs, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := buildBacktester(cfg, logger)

	svc := lifecycle.New(lifecycle.Options{
		Strategies: strategies,
		Runs:       runs,
		Backtester: engine,
		Validator:  validation.New(cfg.MaxRiskPerTrade),
		Logger:     logger,
		Metrics:    metrics,
	})

	router := server.NewRouter(&server.Handler{Service: svc, Logger: logger})

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 2)

	go func() {
		logger.Info("api server listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// buildStores selects memory or database-backed stores. Run history needs a
// ClickHouse DSN; without one it is disabled in database mode.
func buildStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.StrategyStore, storage.TestRunStore, func(), error) {
	if cfg.UseMemory {
		logger.Info("using in-memory stores")
		return memory.NewStrategyStore(), memory.NewTestRunStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info("postgres ready")

	var runs storage.TestRunStore
	var chConn *chstore.Conn
	if cfg.ClickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		runs = chstore.NewTestRunStore(chConn)
		logger.Info("clickhouse ready, run history enabled")
	} else {
		logger.Info("no clickhouse dsn, run history disabled")
	}

	cleanup := func() {
		pool.Close()
		if chConn != nil {
			chConn.Close()
		}
	}
	return pgstore.NewStrategyStore(pool), runs, cleanup, nil
}

func buildBacktester(cfg *config.Config, logger *zap.Logger) backtester.Backtester {
	switch {
	case cfg.BacktestEndpoint == "":
		logger.Info("using stub backtest engine")
		return stub.NewEngine()
	case strings.HasPrefix(cfg.BacktestEndpoint, "ws://"), strings.HasPrefix(cfg.BacktestEndpoint, "wss://"):
		logger.Info("using websocket backtest engine", zap.String("endpoint", cfg.BacktestEndpoint))
		return backtester.NewWSClient(cfg.BacktestEndpoint, nil, func(percent float64) {
			logger.Debug("backtest progress", zap.Float64("percent", percent))
		})
	default:
		logger.Info("using http backtest engine", zap.String("endpoint", cfg.BacktestEndpoint))
		return backtester.NewHTTPClient(cfg.BacktestEndpoint,
			backtester.WithTimeout(cfg.BacktestTimeout),
		)
	}
}
