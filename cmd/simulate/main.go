// Package main generates a synthetic fleet and loads it into the raw
// trip stores, so the pipeline has data to chew on without a live feed.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/simulate"
	"telematics-risk-lab/internal/storage/migrations"
	pgstore "telematics-risk-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for raw trip data")
	drivers := flag.Int("drivers", 50, "Number of drivers in the fleet")
	tripsPerDriver := flag.Int("trips-per-driver", 50, "Trips per driver")
	windowDays := flag.Int("window-days", 90, "Days of history to spread trips over")
	seed := flag.Int64("seed", 1, "Random seed")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	setupLogger(*logLevel)

	if *postgresDSN == "" {
		log.Fatal().Msg("--postgres-dsn (or POSTGRES_DSN) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("cancelling")
		cancel()
	}()

	cfg := simulate.Config{
		Drivers:        *drivers,
		TripsPerDriver: *tripsPerDriver,
		WindowStart:    time.Now().UTC().AddDate(0, 0, -*windowDays),
		WindowDays:     *windowDays,
		Seed:           *seed,
	}

	log.Info().
		Int("drivers", cfg.Drivers).
		Int("trips_per_driver", cfg.TripsPerDriver).
		Int64("seed", cfg.Seed).
		Msg("generating synthetic fleet")
	fleet := simulate.Generate(cfg)

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	err = fleet.Load(ctx,
		pgstore.NewVehicleStore(pool),
		pgstore.NewTripStore(pool),
		pgstore.NewEventStore(pool),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("load fleet")
	}

	log.Info().
		Int("vehicles", len(fleet.Vehicles)).
		Int("trips", len(fleet.Trips)).
		Int("events", len(fleet.Events)).
		Msg("fleet loaded")
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
