package features

import (
	"fmt"
	"sort"

	"telematics-risk-lab/internal/domain"
)

// NormalizeEvents joins raw events to trips (equality on trip ID) and
// trips to driver identity via the vehicle registry. The result carries
// one row per event with a resolved driver, sorted by (trip, timestamp)
// ascending.
//
// Returns ErrMissingJoinKey if an event references an unknown trip or a
// trip references an unknown vehicle.
func NormalizeEvents(
	events []*domain.Event,
	trips []*domain.Trip,
	vehicles []*domain.Vehicle,
) ([]*domain.NormalizedEvent, error) {
	tripByID := make(map[string]*domain.Trip, len(trips))
	for _, t := range trips {
		tripByID[t.TripID] = t
	}
	driverByVehicle := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		driverByVehicle[v.VehicleID] = v.DriverID
	}

	result := make([]*domain.NormalizedEvent, 0, len(events))
	for _, e := range events {
		trip, ok := tripByID[e.TripID]
		if !ok {
			return nil, fmt.Errorf("event references unknown trip %q: %w", e.TripID, ErrMissingJoinKey)
		}
		driverID, ok := driverByVehicle[trip.VehicleID]
		if !ok {
			return nil, fmt.Errorf("trip %q references unknown vehicle %q: %w", trip.TripID, trip.VehicleID, ErrMissingJoinKey)
		}
		result = append(result, &domain.NormalizedEvent{
			Event:     *e,
			DriverID:  driverID,
			VehicleID: trip.VehicleID,
			TripStart: trip.StartTime,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TripID != result[j].TripID {
			return result[i].TripID < result[j].TripID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}
