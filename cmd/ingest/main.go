// Package main streams telematics frames from a WebSocket feed into
// the raw event stores.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/ingest"
	"telematics-risk-lab/internal/storage"
	"telematics-risk-lab/internal/storage/memory"
	"telematics-risk-lab/internal/storage/migrations"
	pgstore "telematics-risk-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	wsEndpoint := flag.String("ws-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "Telematics feed WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for raw trip data")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	batchSize := flag.Int("batch-size", 500, "Events per insert batch")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "Max time a partial batch can wait")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogger(*logLevel)

	if *wsEndpoint == "" {
		log.Fatal().Msg("--ws-endpoint (or FEED_WS_ENDPOINT) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("stopping ingestion")
		cancel()
	}()

	if err := run(ctx, *wsEndpoint, *postgresDSN, *useMemory, *batchSize, *flushInterval); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, wsEndpoint, postgresDSN string, useMemory bool, batchSize int, flushInterval time.Duration) error {
	var (
		eventStore   storage.EventStore   = memory.NewEventStore()
		tripStore    storage.TripStore    = memory.NewTripStore()
		vehicleStore storage.VehicleStore = memory.NewVehicleStore()
	)

	if !useMemory {
		if postgresDSN == "" {
			return errors.New("--postgres-dsn is required (or pass --use-memory)")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		eventStore = pgstore.NewEventStore(pool)
		tripStore = pgstore.NewTripStore(pool)
		vehicleStore = pgstore.NewVehicleStore(pool)
	}

	source, err := ingest.NewWSSource(ctx, ingest.DefaultWSConfig(wsEndpoint), log.Logger)
	if err != nil {
		return err
	}
	defer source.Close()

	runner := ingest.NewRunner(ingest.Options{
		Source:        source,
		EventStore:    eventStore,
		TripStore:     tripStore,
		VehicleStore:  vehicleStore,
		Logger:        log.Logger,
		BatchSize:     batchSize,
		FlushInterval: flushInterval,
	})

	log.Info().Str("endpoint", wsEndpoint).Msg("starting ingestion")
	stats, err := runner.Run(ctx)
	log.Info().
		Int("events", stats.EventsStored).
		Int("trips", stats.TripsStored).
		Int("vehicles", stats.VehiclesStored).
		Int("skipped", stats.FramesSkipped).
		Msg("ingestion stopped")
	return err
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
