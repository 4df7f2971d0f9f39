package features

import (
	"math"
	"testing"
	"time"

	"telematics-risk-lab/internal/domain"
)

const floatTol = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTol
}

// tripEvent builds a normalized event n seconds into a trip.
func tripEvent(tripID string, start time.Time, offsetSec int, speed, accelY float64) *domain.NormalizedEvent {
	return &domain.NormalizedEvent{
		Event: domain.Event{
			TripID:    tripID,
			Timestamp: start.Add(time.Duration(offsetSec) * time.Second),
			SpeedMPH:  speed,
			AccelY:    accelY,
		},
		DriverID:  "d1",
		VehicleID: "v1",
		TripStart: start,
	}
}

func TestAggregateTrips_Distance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// 36 mph for 1 second covers 0.01 miles; first event contributes 0.
	events := []*domain.NormalizedEvent{
		tripEvent("t1", start, 0, 36, 0),
		tripEvent("t1", start, 1, 36, 0),
		tripEvent("t1", start, 2, 36, 0),
	}

	records := AggregateTrips(events)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if !approxEqual(records[0].MilesDriven, 0.02) {
		t.Errorf("Expected 0.02 miles, got %v", records[0].MilesDriven)
	}
}

func TestAggregateTrips_SingleEventZeroDistance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := AggregateTrips([]*domain.NormalizedEvent{tripEvent("t1", start, 0, 50, 0)})

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].MilesDriven != 0 {
		t.Errorf("Expected zero distance for single-event trip, got %v", records[0].MilesDriven)
	}
	if records[0].MeanSpeed != 50 || records[0].P50Speed != 50 || records[0].P95Speed != 50 {
		t.Errorf("Expected all speed stats 50, got mean=%v p50=%v p95=%v",
			records[0].MeanSpeed, records[0].P50Speed, records[0].P95Speed)
	}
}

func TestAggregateTrips_HarshBrakeAndRapidAccelThresholds(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []*domain.NormalizedEvent{
		tripEvent("t1", start, 0, 30, -5.1), // harsh brake
		tripEvent("t1", start, 1, 30, -5.0), // boundary: not harsh
		tripEvent("t1", start, 2, 30, 5.1),  // rapid accel
		tripEvent("t1", start, 3, 30, 5.0),  // boundary: not rapid
		tripEvent("t1", start, 4, 30, 0),
	}

	records := AggregateTrips(events)
	if records[0].HarshBrakes != 1 {
		t.Errorf("Expected 1 harsh brake, got %v", records[0].HarshBrakes)
	}
	if records[0].RapidAccels != 1 {
		t.Errorf("Expected 1 rapid accel, got %v", records[0].RapidAccels)
	}
}

func TestAggregateTrips_StopGoTransitions(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// stopped -> moving -> stopped -> moving: two transitions out of stop.
	events := []*domain.NormalizedEvent{
		tripEvent("t1", start, 0, 3, 0),
		tripEvent("t1", start, 1, 10, 0),
		tripEvent("t1", start, 2, 2, 0),
		tripEvent("t1", start, 3, 8, 0),
	}

	records := AggregateTrips(events)
	if records[0].StopGoEvents != 2 {
		t.Errorf("Expected 2 stop-go events, got %v", records[0].StopGoEvents)
	}
}

func TestAggregateTrips_StartingStoppedDoesNotCount(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// First event is already stopped; the transition at index 1 counts,
	// but there is no phantom transition before the trip begins.
	events := []*domain.NormalizedEvent{
		tripEvent("t1", start, 0, 0, 0),
		tripEvent("t1", start, 1, 20, 0),
	}

	records := AggregateTrips(events)
	if records[0].StopGoEvents != 1 {
		t.Errorf("Expected 1 stop-go event, got %v", records[0].StopGoEvents)
	}
}

func TestAggregateTrips_NightAndSpeedingFractions(t *testing.T) {
	night := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []*domain.NormalizedEvent{
		tripEvent("t1", night, 0, 80, 0), // night + speeding
		tripEvent("t1", night, 1, 60, 0), // night
	}
	// Shift last two events into daytime while keeping the same trip.
	e3 := tripEvent("t1", night, 2, 75, 0)
	e3.Timestamp = day
	e4 := tripEvent("t1", night, 3, 50, 0)
	e4.Timestamp = day.Add(time.Second)
	events = append(events, e3, e4)

	records := AggregateTrips(events)
	if !approxEqual(records[0].NightDrivingPct, 0.5) {
		t.Errorf("Expected night fraction 0.5, got %v", records[0].NightDrivingPct)
	}
	if !approxEqual(records[0].SpeedingPct, 0.5) {
		t.Errorf("Expected speeding fraction 0.5, got %v", records[0].SpeedingPct)
	}
}

func TestAggregateTrips_NightBoundaryHours(t *testing.T) {
	cases := []struct {
		hour  int
		night bool
	}{
		{21, false},
		{22, true},
		{23, true},
		{0, true},
		{4, true},
		{5, false},
	}

	for _, tc := range cases {
		start := time.Date(2025, 6, 1, tc.hour, 30, 0, 0, time.UTC)
		records := AggregateTrips([]*domain.NormalizedEvent{tripEvent("t1", start, 0, 30, 0)})

		want := 0.0
		if tc.night {
			want = 1.0
		}
		if records[0].NightDrivingPct != want {
			t.Errorf("Hour %d: expected night fraction %v, got %v", tc.hour, want, records[0].NightDrivingPct)
		}
	}
}

func TestAggregateTrips_SpeedStats(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []*domain.NormalizedEvent{
		tripEvent("t1", start, 0, 10, 0),
		tripEvent("t1", start, 1, 20, 0),
		tripEvent("t1", start, 2, 30, 0),
		tripEvent("t1", start, 3, 40, 0),
	}

	records := AggregateTrips(events)
	if !approxEqual(records[0].MeanSpeed, 25) {
		t.Errorf("Expected mean speed 25, got %v", records[0].MeanSpeed)
	}
	if !approxEqual(records[0].P50Speed, 25) {
		t.Errorf("Expected median speed 25, got %v", records[0].P50Speed)
	}
	// Interpolated 95th percentile of [10,20,30,40]: position 2.85.
	if !approxEqual(records[0].P95Speed, 38.5) {
		t.Errorf("Expected p95 speed 38.5, got %v", records[0].P95Speed)
	}
}

func TestAggregateTrips_MultipleTripsOrdered(t *testing.T) {
	early := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	late := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	// Events arrive grouped by trip ID ("a" before "z") even though the
	// "z" trip started first.
	events := []*domain.NormalizedEvent{
		tripEvent("a", late, 0, 30, 0),
		tripEvent("a", late, 1, 30, 0),
		tripEvent("z", early, 0, 40, 0),
		tripEvent("z", early, 1, 40, 0),
	}

	records := AggregateTrips(events)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].TripID != "z" || records[1].TripID != "a" {
		t.Errorf("Expected records ordered by start time (z, a), got (%s, %s)",
			records[0].TripID, records[1].TripID)
	}
}

func TestAggregateTrips_Empty(t *testing.T) {
	if records := AggregateTrips(nil); records != nil {
		t.Errorf("Expected nil for empty input, got %v", records)
	}
}
