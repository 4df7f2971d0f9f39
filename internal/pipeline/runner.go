// Package pipeline orchestrates the offline feature-engineering run:
// normalization → trip aggregation → rolling aggregation → validation →
// labeling → persistence.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/features"
	"telematics-risk-lab/internal/storage"
)

// Runner executes the batch pipeline. Each stage consumes the complete
// output of the previous one; a failure at any stage aborts the run
// before anything is persisted, so a failed run never leaves a partial
// feature table behind. Re-running over identical input produces an
// identical table.
type Runner struct {
	events    storage.EventStore
	trips     storage.TripStore
	vehicles  storage.VehicleStore
	snapshots storage.SnapshotStore
	labels    storage.LabelStore
}

// Options for creating a Runner.
type Options struct {
	EventStore    storage.EventStore
	TripStore     storage.TripStore
	VehicleStore  storage.VehicleStore
	SnapshotStore storage.SnapshotStore
	LabelStore    storage.LabelStore
}

// New creates a new pipeline Runner.
func New(opts Options) *Runner {
	return &Runner{
		events:    opts.EventStore,
		trips:     opts.TripStore,
		vehicles:  opts.VehicleStore,
		snapshots: opts.SnapshotStore,
		labels:    opts.LabelStore,
	}
}

// RunResult summarizes a completed pipeline run.
type RunResult struct {
	EventsProcessed int
	TripsAggregated int
	SnapshotsBuilt  int
	DriversLabeled  int
	LabelThreshold  float64
}

// Run executes the full offline pipeline.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	log.Info().Msg("pipeline: loading raw data")
	events, err := r.events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	trips, err := r.trips.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	vehicles, err := r.vehicles.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	log.Info().
		Int("events", len(events)).
		Int("trips", len(trips)).
		Int("vehicles", len(vehicles)).
		Msg("pipeline: raw data loaded")

	normalized, err := features.NormalizeEvents(events, trips, vehicles)
	if err != nil {
		return nil, fmt.Errorf("normalize events: %w", err)
	}

	tripRecords := features.AggregateTrips(normalized)
	log.Info().Int("trip_records", len(tripRecords)).Msg("pipeline: trip features aggregated")

	snapshots := features.AggregateDrivers(tripRecords)
	log.Info().Int("snapshots", len(snapshots)).Msg("pipeline: rolling driver features aggregated")

	// Hard gate: an out-of-range value fails the run with nothing persisted.
	if err := features.ValidateSnapshots(snapshots); err != nil {
		return nil, fmt.Errorf("validate features: %w", err)
	}

	labels, threshold := features.BuildLabels(snapshots)
	logLabelIncidence(labels, threshold)

	if err := r.snapshots.Truncate(ctx); err != nil {
		return nil, fmt.Errorf("truncate feature table: %w", err)
	}
	if err := r.snapshots.InsertBulk(ctx, snapshots); err != nil {
		return nil, fmt.Errorf("persist feature table: %w", err)
	}
	if err := r.labels.Truncate(ctx); err != nil {
		return nil, fmt.Errorf("truncate labels: %w", err)
	}
	if err := r.labels.InsertBulk(ctx, labels); err != nil {
		return nil, fmt.Errorf("persist labels: %w", err)
	}

	return &RunResult{
		EventsProcessed: len(events),
		TripsAggregated: len(tripRecords),
		SnapshotsBuilt:  len(snapshots),
		DriversLabeled:  len(labels),
		LabelThreshold:  threshold,
	}, nil
}

// logLabelIncidence reports the positive-label rate against the p95
// speed threshold that produced it.
func logLabelIncidence(labels []*domain.Label, threshold float64) {
	if len(labels) == 0 {
		log.Warn().Msg("pipeline: no drivers labeled")
		return
	}
	positive := 0
	for _, l := range labels {
		positive += l.ClaimIn30d
	}
	log.Info().
		Float64("p95_speed_threshold", threshold).
		Int("drivers", len(labels)).
		Float64("positive_rate", float64(positive)/float64(len(labels))).
		Msg("pipeline: labels built")
}
