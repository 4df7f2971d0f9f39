package memory

import (
	"context"
	"sort"
	"sync"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// LabelStore is an in-memory implementation of storage.LabelStore.
type LabelStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Label // keyed by driver_id
}

// NewLabelStore creates a new in-memory label store.
func NewLabelStore() *LabelStore {
	return &LabelStore{data: make(map[string]*domain.Label)}
}

// Compile-time interface check.
var _ storage.LabelStore = (*LabelStore)(nil)

// InsertBulk adds multiple labels. Fails the entire batch on a duplicate.
func (s *LabelStore) InsertBulk(_ context.Context, labels []*domain.Label) error {
	if len(labels) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == nil || l.DriverID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[l.DriverID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[l.DriverID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[l.DriverID] = struct{}{}
	}

	for _, l := range labels {
		labelCopy := *l
		s.data[l.DriverID] = &labelCopy
	}
	return nil
}

// GetByDriverID retrieves a driver's label. Returns ErrNotFound if not exists.
func (s *LabelStore) GetByDriverID(_ context.Context, driverID string) (*domain.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[driverID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	labelCopy := *l
	return &labelCopy, nil
}

// GetAll retrieves every label, ordered by driver_id ASC.
func (s *LabelStore) GetAll(_ context.Context) ([]*domain.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Label, 0, len(s.data))
	for _, l := range s.data {
		labelCopy := *l
		result = append(result, &labelCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DriverID < result[j].DriverID
	})
	return result, nil
}

// Truncate removes every label.
func (s *LabelStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.Label)
	return nil
}
