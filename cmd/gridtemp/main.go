package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/gridtemp/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/gridtemp/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/gridtemp/internal/adapter/kafka"
	"github.com/couchcryptid/gridtemp/internal/config"
	"github.com/couchcryptid/gridtemp/internal/observability"
	"github.com/couchcryptid/gridtemp/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	stations := csvfile.NewStationReader(cfg.StationsPath, cfg.StartYear, cfg.EndYear, logger)
	rules := csvfile.NewRuleReader(cfg.RulesPath, logger)

	sinks := []pipeline.DatasetSink{csvfile.NewDatasetWriter(cfg.OutputPath, logger)}
	var producer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		producer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, producer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(stations, rules, sinks, cfg, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve metrics and status for the duration of the run.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	code := 0
	if _, err := p.Run(ctx); err != nil {
		logger.Error("gridding run failed", "error", err)
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	return code
}
