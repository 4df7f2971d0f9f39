// Package main runs the offline feature pipeline end to end:
// normalization → trip aggregation → rolling driver features →
// validation → labels.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/pipeline"
	"telematics-risk-lab/internal/simulate"
	"telematics-risk-lab/internal/storage"
	chstore "telematics-risk-lab/internal/storage/clickhouse"
	"telematics-risk-lab/internal/storage/memory"
	"telematics-risk-lab/internal/storage/migrations"
	pgstore "telematics-risk-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for raw trip data")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for driver features")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	withSimulated := flag.Bool("simulate", false, "Seed a synthetic fleet before running (in-memory runs)")
	seed := flag.Int64("seed", 1, "Random seed for the synthetic fleet")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogger(*logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("cancelling pipeline")
		cancel()
	}()

	if err := run(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *withSimulated, *seed); err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}
}

func run(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, withSimulated bool, seed int64) error {
	var (
		eventStore    storage.EventStore   = memory.NewEventStore()
		tripStore     storage.TripStore    = memory.NewTripStore()
		vehicleStore  storage.VehicleStore = memory.NewVehicleStore()
		snapshotStore storage.SnapshotStore
		labelStore    storage.LabelStore
	)

	if useMemory {
		snapshotStore = memory.NewSnapshotStore()
		labelStore = memory.NewLabelStore()
	} else {
		if postgresDSN == "" || clickhouseDSN == "" {
			return errors.New("--postgres-dsn and --clickhouse-dsn are required (or pass --use-memory)")
		}

		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()

		eventStore = pgstore.NewEventStore(pool)
		tripStore = pgstore.NewTripStore(pool)
		vehicleStore = pgstore.NewVehicleStore(pool)
		labelStore = pgstore.NewLabelStore(pool)
		snapshotStore = chstore.NewSnapshotStore(conn)
	}

	if withSimulated {
		cfg := simulate.DefaultConfig()
		cfg.Seed = seed
		fleet := simulate.Generate(cfg)
		if err := fleet.Load(ctx, vehicleStore, tripStore, eventStore); err != nil {
			return err
		}
		log.Info().
			Int("vehicles", len(fleet.Vehicles)).
			Int("trips", len(fleet.Trips)).
			Int("events", len(fleet.Events)).
			Msg("seeded synthetic fleet")
	}

	runner := pipeline.New(pipeline.Options{
		EventStore:    eventStore,
		TripStore:     tripStore,
		VehicleStore:  vehicleStore,
		SnapshotStore: snapshotStore,
		LabelStore:    labelStore,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("events", result.EventsProcessed).
		Int("trips", result.TripsAggregated).
		Int("snapshots", result.SnapshotsBuilt).
		Int("drivers_labeled", result.DriversLabeled).
		Float64("label_threshold", result.LabelThreshold).
		Msg("pipeline complete")
	return nil
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
