package memory

import (
	"context"
	"sort"
	"sync"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// VehicleStore is an in-memory implementation of storage.VehicleStore.
type VehicleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Vehicle // keyed by vehicle_id
}

// NewVehicleStore creates a new in-memory vehicle store.
func NewVehicleStore() *VehicleStore {
	return &VehicleStore{data: make(map[string]*domain.Vehicle)}
}

// Compile-time interface check.
var _ storage.VehicleStore = (*VehicleStore)(nil)

// Insert adds a new vehicle. Returns ErrDuplicateKey if vehicle_id exists.
func (s *VehicleStore) Insert(_ context.Context, v *domain.Vehicle) error {
	if v == nil || v.VehicleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.VehicleID]; exists {
		return storage.ErrDuplicateKey
	}
	vehicleCopy := *v
	s.data[v.VehicleID] = &vehicleCopy
	return nil
}

// InsertBulk adds multiple vehicles. Fails the entire batch on any duplicate.
func (s *VehicleStore) InsertBulk(_ context.Context, vehicles []*domain.Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(vehicles))
	for _, v := range vehicles {
		if v == nil || v.VehicleID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[v.VehicleID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[v.VehicleID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[v.VehicleID] = struct{}{}
	}

	for _, v := range vehicles {
		vehicleCopy := *v
		s.data[v.VehicleID] = &vehicleCopy
	}
	return nil
}

// GetByID retrieves a vehicle by its ID. Returns ErrNotFound if not exists.
func (s *VehicleStore) GetByID(_ context.Context, vehicleID string) (*domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[vehicleID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	vehicleCopy := *v
	return &vehicleCopy, nil
}

// GetAll retrieves every vehicle, ordered by vehicle_id ASC.
func (s *VehicleStore) GetAll(_ context.Context) ([]*domain.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Vehicle, 0, len(s.data))
	for _, v := range s.data {
		vehicleCopy := *v
		result = append(result, &vehicleCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VehicleID < result[j].VehicleID
	})
	return result, nil
}
