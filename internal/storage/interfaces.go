package storage

import (
	"context"

	"telematics-risk-lab/internal/domain"
)

// EventStore provides access to raw telematics events.
type EventStore interface {
	// InsertBulk adds multiple events. Fails the entire batch on a
	// duplicate (trip_id, timestamp).
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByTripID retrieves all events for a trip, ordered by timestamp ASC.
	GetByTripID(ctx context.Context, tripID string) ([]*domain.Event, error)

	// GetAll retrieves every event, ordered by (trip_id, timestamp) ASC.
	GetAll(ctx context.Context) ([]*domain.Event, error)
}

// TripStore provides access to the trip registry.
type TripStore interface {
	// Insert adds a new trip. Returns ErrDuplicateKey if trip_id exists.
	Insert(ctx context.Context, t *domain.Trip) error

	// InsertBulk adds multiple trips. Fails the entire batch on any duplicate.
	InsertBulk(ctx context.Context, trips []*domain.Trip) error

	// GetByID retrieves a trip by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tripID string) (*domain.Trip, error)

	// GetAll retrieves every trip, ordered by (start_time, trip_id) ASC.
	GetAll(ctx context.Context) ([]*domain.Trip, error)
}

// VehicleStore provides access to the vehicle -> driver registry.
type VehicleStore interface {
	// Insert adds a new vehicle. Returns ErrDuplicateKey if vehicle_id exists.
	Insert(ctx context.Context, v *domain.Vehicle) error

	// InsertBulk adds multiple vehicles. Fails the entire batch on any duplicate.
	InsertBulk(ctx context.Context, vehicles []*domain.Vehicle) error

	// GetByID retrieves a vehicle by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, vehicleID string) (*domain.Vehicle, error)

	// GetAll retrieves every vehicle, ordered by vehicle_id ASC.
	GetAll(ctx context.Context) ([]*domain.Vehicle, error)
}

// SnapshotStore provides access to the driver feature table, keyed by
// (driver_id, window_end_date). The offline pipeline rebuilds the table
// in full; the serving path reads it without mutation.
type SnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails the entire batch on a
	// duplicate (driver_id, window_end_date).
	InsertBulk(ctx context.Context, snapshots []*domain.DriverFeatureSnapshot) error

	// GetByDriverID retrieves all snapshots for a driver, ordered by
	// window_end_date ASC. Empty result is not an error.
	GetByDriverID(ctx context.Context, driverID string) ([]*domain.DriverFeatureSnapshot, error)

	// GetLatestByDriverID retrieves the driver's snapshot with the
	// greatest window_end_date. Returns ErrNotFound if none exist.
	GetLatestByDriverID(ctx context.Context, driverID string) (*domain.DriverFeatureSnapshot, error)

	// GetAll retrieves every snapshot, ordered by (driver_id, window_end_date) ASC.
	GetAll(ctx context.Context) ([]*domain.DriverFeatureSnapshot, error)

	// ColumnMeans computes the full-table mean of each named feature
	// column, the portfolio average used for peer comparison.
	ColumnMeans(ctx context.Context, columns []string) (map[string]float64, error)

	// Truncate removes every snapshot, preparing a full rebuild.
	Truncate(ctx context.Context) error
}

// LabelStore provides access to the per-driver outcome labels, persisted
// separately from the feature table.
type LabelStore interface {
	// InsertBulk adds multiple labels. Fails the entire batch on a
	// duplicate driver_id.
	InsertBulk(ctx context.Context, labels []*domain.Label) error

	// GetByDriverID retrieves a driver's label. Returns ErrNotFound if
	// not exists.
	GetByDriverID(ctx context.Context, driverID string) (*domain.Label, error)

	// GetAll retrieves every label, ordered by driver_id ASC.
	GetAll(ctx context.Context) ([]*domain.Label, error)

	// Truncate removes every label, preparing a full rebuild.
	Truncate(ctx context.Context) error
}
