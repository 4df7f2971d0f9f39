package memory

import (
	"context"
	"sort"
	"sync"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// TripStore is an in-memory implementation of storage.TripStore.
type TripStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trip // keyed by trip_id
}

// NewTripStore creates a new in-memory trip store.
func NewTripStore() *TripStore {
	return &TripStore{data: make(map[string]*domain.Trip)}
}

// Compile-time interface check.
var _ storage.TripStore = (*TripStore)(nil)

// Insert adds a new trip. Returns ErrDuplicateKey if trip_id exists.
func (s *TripStore) Insert(_ context.Context, t *domain.Trip) error {
	if t == nil || t.TripID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TripID]; exists {
		return storage.ErrDuplicateKey
	}
	tripCopy := *t
	s.data[t.TripID] = &tripCopy
	return nil
}

// InsertBulk adds multiple trips. Fails the entire batch on any duplicate.
func (s *TripStore) InsertBulk(_ context.Context, trips []*domain.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trips))
	for _, t := range trips {
		if t == nil || t.TripID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TripID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TripID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TripID] = struct{}{}
	}

	for _, t := range trips {
		tripCopy := *t
		s.data[t.TripID] = &tripCopy
	}
	return nil
}

// GetByID retrieves a trip by its ID. Returns ErrNotFound if not exists.
func (s *TripStore) GetByID(_ context.Context, tripID string) (*domain.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[tripID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	tripCopy := *t
	return &tripCopy, nil
}

// GetAll retrieves every trip, ordered by (start_time, trip_id) ASC.
func (s *TripStore) GetAll(_ context.Context) ([]*domain.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trip, 0, len(s.data))
	for _, t := range s.data {
		tripCopy := *t
		result = append(result, &tripCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].TripID < result[j].TripID
	})
	return result, nil
}
