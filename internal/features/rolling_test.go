package features

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"telematics-risk-lab/internal/domain"
)

func tripRecord(driverID, tripID string, start time.Time, miles, harsh, rapid float64) *domain.TripFeatureRecord {
	return &domain.TripFeatureRecord{
		TripID:      tripID,
		DriverID:    driverID,
		StartTime:   start,
		MilesDriven: miles,
		HarshBrakes: harsh,
		RapidAccels: rapid,
	}
}

func TestAggregateDrivers_OneSnapshotPerTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.TripFeatureRecord{
		tripRecord("d1", "t1", base, 10, 0, 0),
		tripRecord("d1", "t2", base.AddDate(0, 0, 5), 20, 0, 0),
		tripRecord("d1", "t3", base.AddDate(0, 0, 10), 30, 0, 0),
	}

	snapshots := AggregateDrivers(records)
	if len(snapshots) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snapshots))
	}

	// Anchored at each trip's start time, ascending.
	for i, rec := range records {
		if !snapshots[i].WindowEndDate.Equal(rec.StartTime) {
			t.Errorf("Snapshot %d: expected window end %v, got %v", i, rec.StartTime, snapshots[i].WindowEndDate)
		}
	}

	// Cumulative miles: all three trips fall inside each other's window.
	wantMiles := []float64{10, 30, 60}
	for i, want := range wantMiles {
		if !approxEqual(snapshots[i].MilesDriven, want) {
			t.Errorf("Snapshot %d: expected %v miles, got %v", i, want, snapshots[i].MilesDriven)
		}
	}
}

func TestAggregateDrivers_WindowExcludesOldTrips(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.TripFeatureRecord{
		tripRecord("d1", "old", base, 100, 0, 0),
		tripRecord("d1", "mid", base.AddDate(0, 0, 15), 20, 0, 0),
		tripRecord("d1", "new", base.AddDate(0, 0, 31), 5, 0, 0),
	}

	snapshots := AggregateDrivers(records)
	last := snapshots[2]

	// Window (day1, day31]: the day-0 trip is out, day-15 and day-31 in.
	if !approxEqual(last.MilesDriven, 25) {
		t.Errorf("Expected last window miles 25, got %v", last.MilesDriven)
	}
}

func TestAggregateDrivers_ExactThirtyDayBoundaryExcluded(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.TripFeatureRecord{
		tripRecord("d1", "boundary", base, 100, 0, 0),
		tripRecord("d1", "anchor", base.AddDate(0, 0, 30), 7, 0, 0),
	}

	snapshots := AggregateDrivers(records)

	// The window is half-open: a trip exactly 30 days before the anchor
	// sits on the open edge and stays out.
	if !approxEqual(snapshots[1].MilesDriven, 7) {
		t.Errorf("Expected boundary trip excluded (7 miles), got %v", snapshots[1].MilesDriven)
	}
}

func TestAggregateDrivers_Per100MiRates(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 4 harsh brakes over 50 miles = 8 per 100mi.
	snapshots := AggregateDrivers([]*domain.TripFeatureRecord{
		tripRecord("d1", "t1", base, 50, 4, 2),
	})
	if !approxEqual(snapshots[0].HarshBrakesPer100Mi, 8) {
		t.Errorf("Expected 8 harsh brakes per 100mi, got %v", snapshots[0].HarshBrakesPer100Mi)
	}
	if !approxEqual(snapshots[0].RapidAccelsPer100Mi, 4) {
		t.Errorf("Expected 4 rapid accels per 100mi, got %v", snapshots[0].RapidAccelsPer100Mi)
	}
}

func TestAggregateDrivers_ZeroMileTripYieldsZeroRate(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	snapshots := AggregateDrivers([]*domain.TripFeatureRecord{
		tripRecord("d1", "t1", base, 0, 10, 10),
	})

	if snapshots[0].HarshBrakesPer100Mi != 0 {
		t.Errorf("Expected zero rate for zero-mile trip, got %v", snapshots[0].HarshBrakesPer100Mi)
	}
	if snapshots[0].RapidAccelsPer100Mi != 0 {
		t.Errorf("Expected zero rate for zero-mile trip, got %v", snapshots[0].RapidAccelsPer100Mi)
	}
}

func TestAggregateDrivers_RateCapped(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// 100 harsh brakes over 1 mile would be 10000 per 100mi; capped.
	snapshots := AggregateDrivers([]*domain.TripFeatureRecord{
		tripRecord("d1", "t1", base, 1, 100, 0),
	})

	if snapshots[0].HarshBrakesPer100Mi != 500 {
		t.Errorf("Expected capped rate 500, got %v", snapshots[0].HarshBrakesPer100Mi)
	}
}

func TestAggregateDrivers_SumsAndMeans(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.TripFeatureRecord{
		{
			TripID: "t1", DriverID: "d1", StartTime: base,
			MilesDriven: 10, StopGoEvents: 4,
			NightDrivingPct: 0.2, SpeedingPct: 0.1,
			MeanSpeed: 30, P50Speed: 28, P95Speed: 50,
		},
		{
			TripID: "t2", DriverID: "d1", StartTime: base.AddDate(0, 0, 1),
			MilesDriven: 30, StopGoEvents: 6,
			NightDrivingPct: 0.4, SpeedingPct: 0.3,
			MeanSpeed: 40, P50Speed: 38, P95Speed: 70,
		},
	}

	snapshots := AggregateDrivers(records)
	last := snapshots[1]

	if !approxEqual(last.MilesDriven, 40) {
		t.Errorf("Expected summed miles 40, got %v", last.MilesDriven)
	}
	if !approxEqual(last.StopGoEvents, 10) {
		t.Errorf("Expected summed stop-go 10, got %v", last.StopGoEvents)
	}
	if !approxEqual(last.NightDrivingPct, 0.3) {
		t.Errorf("Expected mean night fraction 0.3, got %v", last.NightDrivingPct)
	}
	if !approxEqual(last.SpeedingPct, 0.2) {
		t.Errorf("Expected mean speeding fraction 0.2, got %v", last.SpeedingPct)
	}
	if !approxEqual(last.MeanSpeed, 35) {
		t.Errorf("Expected mean speed 35, got %v", last.MeanSpeed)
	}
	if !approxEqual(last.P95Speed, 60) {
		t.Errorf("Expected mean p95 speed 60, got %v", last.P95Speed)
	}
}

func TestAggregateDrivers_DriversIndependent(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.TripFeatureRecord{
		tripRecord("d2", "t2", base.AddDate(0, 0, 1), 20, 0, 0),
		tripRecord("d1", "t1", base, 10, 0, 0),
	}

	snapshots := AggregateDrivers(records)
	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snapshots))
	}

	// Sorted by driver; each window holds only that driver's trips.
	if snapshots[0].DriverID != "d1" || !approxEqual(snapshots[0].MilesDriven, 10) {
		t.Errorf("Expected (d1, 10 miles), got (%s, %v)", snapshots[0].DriverID, snapshots[0].MilesDriven)
	}
	if snapshots[1].DriverID != "d2" || !approxEqual(snapshots[1].MilesDriven, 20) {
		t.Errorf("Expected (d2, 20 miles), got (%s, %v)", snapshots[1].DriverID, snapshots[1].MilesDriven)
	}
}

func TestAggregateDrivers_RandomizedWindowRecompute(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var records []*domain.TripFeatureRecord
	for d := 0; d < 5; d++ {
		driverID := fmt.Sprintf("d%d", d)
		start := base
		trips := 20 + rng.Intn(30)
		for i := 0; i < trips; i++ {
			// Random gaps from an hour to four days keep some trips
			// clustered inside a window and push others past its edge.
			start = start.Add(time.Duration(1+rng.Intn(96)) * time.Hour)
			records = append(records, &domain.TripFeatureRecord{
				TripID:          fmt.Sprintf("%s-t%d", driverID, i),
				DriverID:        driverID,
				StartTime:       start,
				MilesDriven:     rng.Float64() * 40,
				HarshBrakes:     float64(rng.Intn(6)),
				RapidAccels:     float64(rng.Intn(6)),
				NightDrivingPct: rng.Float64(),
				SpeedingPct:     rng.Float64(),
				StopGoEvents:    float64(rng.Intn(20)),
				MeanSpeed:       10 + rng.Float64()*50,
				P50Speed:        10 + rng.Float64()*40,
				P95Speed:        30 + rng.Float64()*60,
			})
		}
	}
	rng.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})

	snapshots := AggregateDrivers(records)
	if len(snapshots) != len(records) {
		t.Fatalf("Expected one snapshot per record (%d), got %d", len(records), len(snapshots))
	}

	rate := func(count, miles float64) float64 {
		if miles <= 0 {
			return 0
		}
		r := count / miles * 100
		if r > 500 {
			return 500
		}
		return r
	}
	avg := func(values []float64) float64 {
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total / float64(len(values))
	}

	// Recompute each snapshot from scratch over the unsorted records and
	// compare, so window membership never depends on the aggregator's
	// internal ordering.
	for _, snap := range snapshots {
		windowStart := snap.WindowEndDate.Add(-30 * 24 * time.Hour)

		var miles, stopGo float64
		var night, harsh, rapid, speeding, meanSpeed, p50, p95 []float64
		for _, rec := range records {
			if rec.DriverID != snap.DriverID ||
				!rec.StartTime.After(windowStart) ||
				rec.StartTime.After(snap.WindowEndDate) {
				continue
			}
			miles += rec.MilesDriven
			stopGo += rec.StopGoEvents
			night = append(night, rec.NightDrivingPct)
			harsh = append(harsh, rate(rec.HarshBrakes, rec.MilesDriven))
			rapid = append(rapid, rate(rec.RapidAccels, rec.MilesDriven))
			speeding = append(speeding, rec.SpeedingPct)
			meanSpeed = append(meanSpeed, rec.MeanSpeed)
			p50 = append(p50, rec.P50Speed)
			p95 = append(p95, rec.P95Speed)
		}
		if len(night) == 0 {
			t.Fatalf("Snapshot %s@%v: recompute found an empty window", snap.DriverID, snap.WindowEndDate)
		}

		checks := []struct {
			name      string
			got, want float64
		}{
			{"miles_driven", snap.MilesDriven, miles},
			{"stop_go_events", snap.StopGoEvents, stopGo},
			{"night_driving_percentage", snap.NightDrivingPct, avg(night)},
			{"harsh_brakes_per_100mi", snap.HarshBrakesPer100Mi, avg(harsh)},
			{"rapid_accels_per_100mi", snap.RapidAccelsPer100Mi, avg(rapid)},
			{"speeding_percentage", snap.SpeedingPct, avg(speeding)},
			{"mean_speed", snap.MeanSpeed, avg(meanSpeed)},
			{"p50_speed", snap.P50Speed, avg(p50)},
			{"p95_speed", snap.P95Speed, avg(p95)},
		}
		for _, c := range checks {
			if !approxEqual(c.got, c.want) {
				t.Errorf("Snapshot %s@%v: %s = %v, recompute says %v",
					snap.DriverID, snap.WindowEndDate, c.name, c.got, c.want)
			}
		}
	}
}

func TestAggregateDrivers_Deterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.TripFeatureRecord{
		tripRecord("d1", "t2", base, 20, 1, 0), // same start time as t1
		tripRecord("d1", "t1", base, 10, 0, 1),
		tripRecord("d2", "t3", base.AddDate(0, 0, 2), 5, 0, 0),
	}

	first := AggregateDrivers(records)
	second := AggregateDrivers(records)

	if len(first) != len(second) {
		t.Fatalf("Run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Errorf("Snapshot %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
