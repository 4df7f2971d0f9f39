package postgres

import (
	"context"
	"fmt"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// TripStore implements storage.TripStore using PostgreSQL.
type TripStore struct {
	pool *Pool
}

// NewTripStore creates a new TripStore.
func NewTripStore(pool *Pool) *TripStore {
	return &TripStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TripStore = (*TripStore)(nil)

const insertTripQuery = `
	INSERT INTO trips (trip_id, vehicle_id, start_time_utc, end_time_utc)
	VALUES ($1, $2, $3, $4)
`

// Insert adds a new trip. Returns ErrDuplicateKey if trip_id exists.
func (s *TripStore) Insert(ctx context.Context, t *domain.Trip) error {
	_, err := s.pool.Exec(ctx, insertTripQuery, t.TripID, t.VehicleID, t.StartTime, t.EndTime)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trips atomically. Fails the entire batch on
// any duplicate.
func (s *TripStore) InsertBulk(ctx context.Context, trips []*domain.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trips {
		if _, err := tx.Exec(ctx, insertTripQuery, t.TripID, t.VehicleID, t.StartTime, t.EndTime); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trip: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by its ID. Returns ErrNotFound if not exists.
func (s *TripStore) GetByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	query := `SELECT trip_id, vehicle_id, start_time_utc, end_time_utc
		FROM trips WHERE trip_id = $1`

	var t domain.Trip
	err := s.pool.QueryRow(ctx, query, tripID).Scan(&t.TripID, &t.VehicleID, &t.StartTime, &t.EndTime)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query trip: %w", err)
	}
	return &t, nil
}

// GetAll retrieves every trip, ordered by (start_time, trip_id) ASC.
func (s *TripStore) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT trip_id, vehicle_id, start_time_utc, end_time_utc
		FROM trips ORDER BY start_time_utc ASC, trip_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all trips: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.TripID, &t.VehicleID, &t.StartTime, &t.EndTime); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return result, nil
}
