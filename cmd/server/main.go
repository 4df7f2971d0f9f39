// Package main serves risk scores and premiums over HTTP. It loads
// the frozen model and calibration artifacts at startup and reads
// driver features from ClickHouse (or memory for local runs).
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/api"
	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/model"
	"telematics-risk-lab/internal/pricing"
	"telematics-risk-lab/internal/scoring"
	"telematics-risk-lab/internal/storage"
	chstore "telematics-risk-lab/internal/storage/clickhouse"
	"telematics-risk-lab/internal/storage/memory"
	"telematics-risk-lab/internal/storage/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for driver features")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	modelPath := flag.String("model", envOr("MODEL_PATH", "artifacts/model.json"), "Path to the model artifact")
	calibrationPath := flag.String("calibration", envOr("CALIBRATION_PATH", "artifacts/calibration.json"), "Path to the calibration stats artifact")
	apiToken := flag.String("api-token", os.Getenv("API_TOKEN"), "Bearer token for /score and /price")
	alpha := flag.Float64("alpha", 1.5, "Premium sensitivity to risk score")
	minCap := flag.Float64("min-cap", 80, "Premium floor")
	maxCap := flag.Float64("max-cap", 500, "Premium ceiling")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogger(*logLevel)

	if *apiToken == "" {
		log.Fatal().Msg("--api-token (or API_TOKEN) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	snapshots, cleanup, err := newSnapshotStore(ctx, *useMemory, *clickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to feature store")
	}
	defer cleanup()

	handler, err := buildHandler(snapshots, *modelPath, *calibrationPath, *alpha, *minCap, *maxCap)
	if err != nil {
		log.Fatal().Err(err).Msg("load serving assets")
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: api.NewRouter(handler, *apiToken),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *addr).Msg("serving risk scores")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		log.Warn().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

func newSnapshotStore(ctx context.Context, useMemory bool, dsn string) (storage.SnapshotStore, func(), error) {
	if useMemory {
		return memory.NewSnapshotStore(), func() {}, nil
	}
	if dsn == "" {
		return nil, nil, errors.New("--clickhouse-dsn is required (or pass --use-memory)")
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return chstore.NewSnapshotStore(conn), func() { _ = conn.Close() }, nil
}

func buildHandler(snapshots storage.SnapshotStore, modelPath, calibrationPath string, alpha, minCap, maxCap float64) (*api.Handler, error) {
	m, err := model.Load(modelPath)
	if err != nil {
		return nil, err
	}

	// The logistic model is both the scorer and its own explainer.
	serving, err := scoring.NewServingContext(snapshots, m, m, domain.ScoringFeatures)
	if err != nil {
		return nil, err
	}

	stats, err := model.LoadCalibrationStats(calibrationPath)
	if err != nil {
		return nil, err
	}

	pricer := pricing.NewCalculator(serving, &pricing.Config{
		Alpha:  alpha,
		MinCap: minCap,
		MaxCap: maxCap,
	}, stats)

	return api.NewHandler(serving, pricer), nil
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
