package features

import (
	"sort"
	"time"

	"telematics-risk-lab/internal/domain"
)

const (
	// rollingWindow is the trailing trip-start-time interval each
	// snapshot aggregates over: (T - 30d, T].
	rollingWindow = 30 * 24 * time.Hour

	// rateCap is the upper bound applied to per-100-mile event rates to
	// suppress outlier trips.
	rateCap = 500.0
)

// tripWindowRow is a trip feature record with its event counts
// re-expressed as per-100-mile rates, ready for windowing.
type tripWindowRow struct {
	rec                 *domain.TripFeatureRecord
	harshBrakesPer100Mi float64
	rapidAccelsPer100Mi float64
}

// AggregateDrivers produces one DriverFeatureSnapshot per trip record,
// anchored at that trip's start time (the snapshot's WindowEndDate).
//
// Per driver, trip records are sorted by start time; for a trip at time
// T the snapshot aggregates every trip of the same driver with start
// time in (T - 30d, T]: miles and stop-go counts are summed, all other
// features are averaged. Harsh-brake and rapid-accel counts are first
// normalized to count/miles*100 per trip (a zero-mile trip yields rate
// 0, never Inf or NaN) and capped at 500. Any residual NaN is filled
// with 0.
//
// The returned slice is sorted by (driver, WindowEndDate) so repeated
// runs over identical input produce identical output.
func AggregateDrivers(records []*domain.TripFeatureRecord) []*domain.DriverFeatureSnapshot {
	if len(records) == 0 {
		return nil
	}

	byDriver := make(map[string][]*tripWindowRow)
	var driverIDs []string
	for _, rec := range records {
		if _, seen := byDriver[rec.DriverID]; !seen {
			driverIDs = append(driverIDs, rec.DriverID)
		}
		byDriver[rec.DriverID] = append(byDriver[rec.DriverID], &tripWindowRow{
			rec:                 rec,
			harshBrakesPer100Mi: per100MiRate(rec.HarshBrakes, rec.MilesDriven),
			rapidAccelsPer100Mi: per100MiRate(rec.RapidAccels, rec.MilesDriven),
		})
	}
	sort.Strings(driverIDs)

	var snapshots []*domain.DriverFeatureSnapshot
	for _, driverID := range driverIDs {
		rows := byDriver[driverID]
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].rec.StartTime.Equal(rows[j].rec.StartTime) {
				return rows[i].rec.StartTime.Before(rows[j].rec.StartTime)
			}
			return rows[i].rec.TripID < rows[j].rec.TripID
		})

		for i, row := range rows {
			anchor := row.rec.StartTime
			windowStart := anchor.Add(-rollingWindow)

			// Window is (anchor-30d, anchor]; rows are sorted, so only
			// indices <= i can qualify.
			var window []*tripWindowRow
			for j := 0; j <= i; j++ {
				if rows[j].rec.StartTime.After(windowStart) {
					window = append(window, rows[j])
				}
			}

			snapshots = append(snapshots, windowSnapshot(driverID, anchor, window))
		}
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].DriverID != snapshots[j].DriverID {
			return snapshots[i].DriverID < snapshots[j].DriverID
		}
		return snapshots[i].WindowEndDate.Before(snapshots[j].WindowEndDate)
	})

	return snapshots
}

// windowSnapshot reduces the trips inside one window into a snapshot.
func windowSnapshot(driverID string, anchor time.Time, window []*tripWindowRow) *domain.DriverFeatureSnapshot {
	snap := &domain.DriverFeatureSnapshot{
		DriverID:      driverID,
		WindowEndDate: anchor,
	}

	n := len(window)
	night := make([]float64, 0, n)
	harsh := make([]float64, 0, n)
	rapid := make([]float64, 0, n)
	speeding := make([]float64, 0, n)
	meanSpeed := make([]float64, 0, n)
	p50 := make([]float64, 0, n)
	p95 := make([]float64, 0, n)

	for _, row := range window {
		snap.MilesDriven += row.rec.MilesDriven
		snap.StopGoEvents += row.rec.StopGoEvents
		night = append(night, row.rec.NightDrivingPct)
		harsh = append(harsh, row.harshBrakesPer100Mi)
		rapid = append(rapid, row.rapidAccelsPer100Mi)
		speeding = append(speeding, row.rec.SpeedingPct)
		meanSpeed = append(meanSpeed, row.rec.MeanSpeed)
		p50 = append(p50, row.rec.P50Speed)
		p95 = append(p95, row.rec.P95Speed)
	}

	snap.NightDrivingPct = sanitize(mean(night))
	snap.HarshBrakesPer100Mi = sanitize(mean(harsh))
	snap.RapidAccelsPer100Mi = sanitize(mean(rapid))
	snap.SpeedingPct = sanitize(mean(speeding))
	snap.MeanSpeed = sanitize(mean(meanSpeed))
	snap.P50Speed = sanitize(mean(p50))
	snap.P95Speed = sanitize(mean(p95))
	snap.MilesDriven = sanitize(snap.MilesDriven)
	snap.StopGoEvents = sanitize(snap.StopGoEvents)

	return snap
}

// per100MiRate converts an event count to a per-100-mile rate, capped at
// rateCap. Zero miles yields 0 by policy.
func per100MiRate(count, miles float64) float64 {
	if miles <= 0 {
		return 0
	}
	rate := count / miles * 100
	if rate > rateCap {
		return rateCap
	}
	return sanitize(rate)
}
