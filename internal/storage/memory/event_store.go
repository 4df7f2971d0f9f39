package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by (trip_id, timestamp)
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{data: make(map[string]*domain.Event)}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

func eventKey(tripID string, tsUnixNano int64) string {
	return fmt.Sprintf("%s|%d", tripID, tsUnixNano)
}

// InsertBulk adds multiple events. Fails the entire batch on a duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.TripID == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(e.TripID, e.Timestamp.UnixNano())
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[eventKey(e.TripID, e.Timestamp.UnixNano())] = &eventCopy
	}
	return nil
}

// GetByTripID retrieves all events for a trip, ordered by timestamp ASC.
func (s *EventStore) GetByTripID(_ context.Context, tripID string) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if e.TripID == tripID {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// GetAll retrieves every event, ordered by (trip_id, timestamp) ASC.
func (s *EventStore) GetAll(_ context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Event, 0, len(s.data))
	for _, e := range s.data {
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TripID != result[j].TripID {
			return result[i].TripID < result[j].TripID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}
