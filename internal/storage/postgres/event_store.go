package postgres

import (
	"context"
	"fmt"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEventQuery = `
	INSERT INTO events (
		trip_id, timestamp_utc, speed_mph,
		accel_x, accel_y, accel_z,
		latitude, longitude
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectEventColumns = `
	trip_id, timestamp_utc, speed_mph,
	accel_x, accel_y, accel_z,
	latitude, longitude
`

// InsertBulk adds multiple events atomically. Fails the entire batch on
// a duplicate (trip_id, timestamp_utc).
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx, insertEventQuery,
			e.TripID, e.Timestamp, e.SpeedMPH,
			e.AccelX, e.AccelY, e.AccelZ,
			e.Latitude, e.Longitude,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTripID retrieves all events for a trip, ordered by timestamp ASC.
func (s *EventStore) GetByTripID(ctx context.Context, tripID string) ([]*domain.Event, error) {
	query := `SELECT ` + selectEventColumns + `
		FROM events WHERE trip_id = $1 ORDER BY timestamp_utc ASC`

	rows, err := s.pool.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("query events by trip: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetAll retrieves every event, ordered by (trip_id, timestamp) ASC.
func (s *EventStore) GetAll(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + selectEventColumns + `
		FROM events ORDER BY trip_id ASC, timestamp_utc ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows rowScanner) ([]*domain.Event, error) {
	var result []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.TripID, &e.Timestamp, &e.SpeedMPH,
			&e.AccelX, &e.AccelY, &e.AccelZ,
			&e.Latitude, &e.Longitude,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return result, nil
}
