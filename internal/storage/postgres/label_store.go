package postgres

import (
	"context"
	"fmt"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// LabelStore implements storage.LabelStore using PostgreSQL. Labels live
// in their own table so the feature table exposed to scoring never
// carries the deciding column.
type LabelStore struct {
	pool *Pool
}

// NewLabelStore creates a new LabelStore.
func NewLabelStore(pool *Pool) *LabelStore {
	return &LabelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LabelStore = (*LabelStore)(nil)

// InsertBulk adds multiple labels atomically. Fails the entire batch on
// a duplicate driver_id.
func (s *LabelStore) InsertBulk(ctx context.Context, labels []*domain.Label) error {
	if len(labels) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO labels (driver_id, claim_in_30d) VALUES ($1, $2)`
	for _, l := range labels {
		if _, err := tx.Exec(ctx, query, l.DriverID, l.ClaimIn30d); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert label: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByDriverID retrieves a driver's label. Returns ErrNotFound if not exists.
func (s *LabelStore) GetByDriverID(ctx context.Context, driverID string) (*domain.Label, error) {
	query := `SELECT driver_id, claim_in_30d FROM labels WHERE driver_id = $1`

	var l domain.Label
	err := s.pool.QueryRow(ctx, query, driverID).Scan(&l.DriverID, &l.ClaimIn30d)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query label: %w", err)
	}
	return &l, nil
}

// GetAll retrieves every label, ordered by driver_id ASC.
func (s *LabelStore) GetAll(ctx context.Context) ([]*domain.Label, error) {
	query := `SELECT driver_id, claim_in_30d FROM labels ORDER BY driver_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all labels: %w", err)
	}
	defer rows.Close()

	var result []*domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.DriverID, &l.ClaimIn30d); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return result, nil
}

// Truncate removes every label.
func (s *LabelStore) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE TABLE labels`); err != nil {
		return fmt.Errorf("truncate labels: %w", err)
	}
	return nil
}
