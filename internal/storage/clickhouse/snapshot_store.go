package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// The driver_features table is the analytical feature store the serving
// path reads for per-driver lookups and portfolio averages.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// allowedColumns guards ColumnMeans against identifier injection: only
// declared feature columns may appear in a generated query.
var allowedColumns = map[string]struct{}{
	domain.FeatureMilesDriven:      {},
	domain.FeatureNightDrivingPct:  {},
	domain.FeatureHarshBrakes100Mi: {},
	domain.FeatureRapidAccels100Mi: {},
	domain.FeatureSpeedingPct:      {},
	domain.FeatureStopGoEvents:     {},
	domain.FeatureMeanSpeed:        {},
	domain.FeatureP50Speed:         {},
	domain.FeatureP95Speed:         {},
}

const selectSnapshotColumns = `
	driver_id, window_end_date,
	miles_driven, night_driving_percentage,
	harsh_brakes_per_100mi, rapid_accels_per_100mi,
	speeding_percentage, stop_go_events,
	mean_speed, p50_speed, p95_speed
`

// InsertBulk adds multiple snapshots. Fails the entire batch on a
// duplicate (driver_id, window_end_date), checked explicitly because
// MergeTree does not enforce uniqueness at insert time.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.DriverFeatureSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	type key struct {
		driverID  string
		windowEnd int64
	}
	seen := make(map[key]struct{}, len(snapshots))
	for _, snap := range snapshots {
		k := key{snap.DriverID, snap.WindowEndDate.UnixNano()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.DriverID, snap.WindowEndDate)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO driver_features (
			driver_id, window_end_date,
			miles_driven, night_driving_percentage,
			harsh_brakes_per_100mi, rapid_accels_per_100mi,
			speeding_percentage, stop_go_events,
			mean_speed, p50_speed, p95_speed
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.DriverID, snap.WindowEndDate,
			snap.MilesDriven, snap.NightDrivingPct,
			snap.HarshBrakesPer100Mi, snap.RapidAccelsPer100Mi,
			snap.SpeedingPct, snap.StopGoEvents,
			snap.MeanSpeed, snap.P50Speed, snap.P95Speed,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *SnapshotStore) exists(ctx context.Context, driverID string, windowEnd time.Time) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM driver_features
		WHERE driver_id = ? AND window_end_date = ?
	`, driverID, windowEnd).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByDriverID retrieves all snapshots for a driver, ordered by
// window_end_date ASC.
func (s *SnapshotStore) GetByDriverID(ctx context.Context, driverID string) ([]*domain.DriverFeatureSnapshot, error) {
	query := `SELECT ` + selectSnapshotColumns + `
		FROM driver_features WHERE driver_id = ? ORDER BY window_end_date ASC`

	rows, err := s.conn.Query(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by driver: %w", err)
	}
	defer rows.Close()

	var result []*domain.DriverFeatureSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

// GetLatestByDriverID retrieves the driver's most recent snapshot.
// Returns ErrNotFound if the driver has no snapshots.
func (s *SnapshotStore) GetLatestByDriverID(ctx context.Context, driverID string) (*domain.DriverFeatureSnapshot, error) {
	snapshots, err := s.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, storage.ErrNotFound
	}
	return snapshots[len(snapshots)-1], nil
}

// GetAll retrieves every snapshot, ordered by (driver_id, window_end_date) ASC.
func (s *SnapshotStore) GetAll(ctx context.Context) ([]*domain.DriverFeatureSnapshot, error) {
	query := `SELECT ` + selectSnapshotColumns + `
		FROM driver_features ORDER BY driver_id ASC, window_end_date ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.DriverFeatureSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

// ColumnMeans computes the full-table mean per named feature column in
// a single aggregate query.
func (s *SnapshotStore) ColumnMeans(ctx context.Context, columns []string) (map[string]float64, error) {
	if len(columns) == 0 {
		return map[string]float64{}, nil
	}

	exprs := make([]string, 0, len(columns))
	for _, column := range columns {
		if _, ok := allowedColumns[column]; !ok {
			return nil, fmt.Errorf("unknown feature column %q: %w", column, storage.ErrInvalidInput)
		}
		exprs = append(exprs, fmt.Sprintf("avg(%s)", column))
	}

	query := `SELECT ` + strings.Join(exprs, ", ") + ` FROM driver_features`

	dests := make([]any, len(columns))
	values := make([]float64, len(columns))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := s.conn.QueryRow(ctx, query).Scan(dests...); err != nil {
		return nil, fmt.Errorf("query column means: %w", err)
	}

	means := make(map[string]float64, len(columns))
	for i, column := range columns {
		means[column] = values[i]
	}
	return means, nil
}

// Truncate removes every snapshot.
func (s *SnapshotStore) Truncate(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE driver_features`); err != nil {
		return fmt.Errorf("truncate driver_features: %w", err)
	}
	return nil
}

type snapshotScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row snapshotScanner) (*domain.DriverFeatureSnapshot, error) {
	var snap domain.DriverFeatureSnapshot
	if err := row.Scan(
		&snap.DriverID, &snap.WindowEndDate,
		&snap.MilesDriven, &snap.NightDrivingPct,
		&snap.HarshBrakesPer100Mi, &snap.RapidAccelsPer100Mi,
		&snap.SpeedingPct, &snap.StopGoEvents,
		&snap.MeanSpeed, &snap.P50Speed, &snap.P95Speed,
	); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return &snap, nil
}
