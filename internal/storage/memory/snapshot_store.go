package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DriverFeatureSnapshot // keyed by (driver_id, window_end_date)
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string]*domain.DriverFeatureSnapshot)}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

func snapshotKey(driverID string, windowEndUnixNano int64) string {
	return fmt.Sprintf("%s|%d", driverID, windowEndUnixNano)
}

// InsertBulk adds multiple snapshots. Fails the entire batch on a duplicate.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.DriverFeatureSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.DriverID == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(snap.DriverID, snap.WindowEndDate.UnixNano())
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data[snapshotKey(snap.DriverID, snap.WindowEndDate.UnixNano())] = &snapCopy
	}
	return nil
}

// GetByDriverID retrieves all snapshots for a driver, ordered by
// window_end_date ASC.
func (s *SnapshotStore) GetByDriverID(_ context.Context, driverID string) ([]*domain.DriverFeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DriverFeatureSnapshot
	for _, snap := range s.data {
		if snap.DriverID == driverID {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WindowEndDate.Before(result[j].WindowEndDate)
	})
	return result, nil
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
func (s *SnapshotStore) GetAll(_ context.Context) ([]*domain.DriverFeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DriverFeatureSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DriverID != result[j].DriverID {
			return result[i].DriverID < result[j].DriverID
		}
		return result[i].WindowEndDate.Before(result[j].WindowEndDate)
	})
	return result, nil
}

// ColumnMeans computes the full-table mean per named feature column.
// Unknown column names are invalid input: the schema is fixed and drift
// should surface loudly.
func (s *SnapshotStore) ColumnMeans(_ context.Context, columns []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	means := make(map[string]float64, len(columns))
	for _, column := range columns {
		values := make([]float64, 0, len(s.data))
		for _, snap := range s.data {
			v, ok := snap.Feature(column)
			if !ok {
				return nil, fmt.Errorf("unknown feature column %q: %w", column, storage.ErrInvalidInput)
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			means[column] = 0
			continue
		}
		means[column] = stat.Mean(values, nil)
	}
	return means, nil
}

// Truncate removes every snapshot.
func (s *SnapshotStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.DriverFeatureSnapshot)
	return nil
}
