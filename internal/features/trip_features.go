package features

import (
	"sort"

	"telematics-risk-lab/internal/domain"
)

// Feature engineering thresholds.
const (
	harshBrakeThreshold   = -5.0 // m/s^2, longitudinal deceleration
	rapidAccelThreshold   = 5.0  // m/s^2, longitudinal acceleration
	speedingThresholdMPH  = 70.0
	nightStartHour        = 22
	nightEndHour          = 5
	stopSpeedThresholdMPH = 5.0 // below this the vehicle counts as stopped
)

// AggregateTrips reduces an ordered, normalized event stream into one
// TripFeatureRecord per trip.
//
// Per-event derived fields:
//   - night flag: hour >= 22 or hour < 5 (UTC)
//   - incremental miles: speed * elapsed-seconds-since-previous / 3600,
//     0 for the first event of a trip
//   - harsh brake: AccelY < -5.0; rapid accel: AccelY > +5.0
//   - speeding: speed > 70 mph; stopped: speed < 5 mph
//   - stop-go: fires exactly at the event where stopped turns false
//     after being true
//
// Reduction per trip: miles and event counts are summed, boolean flags
// are averaged into fractions, and speed gets mean/median/p95. A trip
// with a single event yields zero distance rather than failing.
func AggregateTrips(events []*domain.NormalizedEvent) []*domain.TripFeatureRecord {
	if len(events) == 0 {
		return nil
	}

	// Input is sorted by (trip, timestamp); group by scanning trip runs.
	var records []*domain.TripFeatureRecord
	start := 0
	for i := 1; i <= len(events); i++ {
		if i == len(events) || events[i].TripID != events[start].TripID {
			records = append(records, reduceTrip(events[start:i]))
			start = i
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].StartTime.Equal(records[j].StartTime) {
			return records[i].StartTime.Before(records[j].StartTime)
		}
		return records[i].TripID < records[j].TripID
	})

	return records
}

// reduceTrip folds one trip's ordered events into a feature record.
func reduceTrip(events []*domain.NormalizedEvent) *domain.TripFeatureRecord {
	rec := &domain.TripFeatureRecord{
		TripID:    events[0].TripID,
		DriverID:  events[0].DriverID,
		StartTime: events[0].TripStart,
	}

	var (
		nightCount    int
		speedingCount int
		speeds        = make([]float64, 0, len(events))
		prevStopped   bool
		hasPrev       bool
	)

	for i, e := range events {
		hour := e.Timestamp.UTC().Hour()
		if hour >= nightStartHour || hour < nightEndHour {
			nightCount++
		}

		if i > 0 {
			elapsed := e.Timestamp.Sub(events[i-1].Timestamp).Seconds()
			rec.MilesDriven += e.SpeedMPH * elapsed / 3600.0
		}

		if e.AccelY < harshBrakeThreshold {
			rec.HarshBrakes++
		}
		if e.AccelY > rapidAccelThreshold {
			rec.RapidAccels++
		}
		if e.SpeedMPH > speedingThresholdMPH {
			speedingCount++
		}

		stopped := e.SpeedMPH < stopSpeedThresholdMPH
		if hasPrev && prevStopped && !stopped {
			rec.StopGoEvents++
		}
		prevStopped = stopped
		hasPrev = true

		speeds = append(speeds, e.SpeedMPH)
	}

	n := float64(len(events))
	rec.NightDrivingPct = float64(nightCount) / n
	rec.SpeedingPct = float64(speedingCount) / n
	rec.MeanSpeed = mean(speeds)
	rec.P50Speed = percentile(speeds, 0.50)
	rec.P95Speed = percentile(speeds, 0.95)

	return rec
}
