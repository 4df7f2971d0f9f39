package postgres

import (
	"context"
	"fmt"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// VehicleStore implements storage.VehicleStore using PostgreSQL.
type VehicleStore struct {
	pool *Pool
}

// NewVehicleStore creates a new VehicleStore.
func NewVehicleStore(pool *Pool) *VehicleStore {
	return &VehicleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VehicleStore = (*VehicleStore)(nil)

const insertVehicleQuery = `
	INSERT INTO vehicles (vehicle_id, driver_id) VALUES ($1, $2)
`

// Insert adds a new vehicle. Returns ErrDuplicateKey if vehicle_id exists.
func (s *VehicleStore) Insert(ctx context.Context, v *domain.Vehicle) error {
	_, err := s.pool.Exec(ctx, insertVehicleQuery, v.VehicleID, v.DriverID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert vehicle: %w", err)
	}
	return nil
}

// InsertBulk adds multiple vehicles atomically. Fails the entire batch
// on any duplicate.
func (s *VehicleStore) InsertBulk(ctx context.Context, vehicles []*domain.Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, v := range vehicles {
		if _, err := tx.Exec(ctx, insertVehicleQuery, v.VehicleID, v.DriverID); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert vehicle: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a vehicle by its ID. Returns ErrNotFound if not exists.
func (s *VehicleStore) GetByID(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	query := `SELECT vehicle_id, driver_id FROM vehicles WHERE vehicle_id = $1`

	var v domain.Vehicle
	err := s.pool.QueryRow(ctx, query, vehicleID).Scan(&v.VehicleID, &v.DriverID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query vehicle: %w", err)
	}
	return &v, nil
}

// GetAll retrieves every vehicle, ordered by vehicle_id ASC.
func (s *VehicleStore) GetAll(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `SELECT vehicle_id, driver_id FROM vehicles ORDER BY vehicle_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all vehicles: %w", err)
	}
	defer rows.Close()

	var result []*domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.VehicleID, &v.DriverID); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return result, nil
}
