package domain

import "time"

// TripFeatureRecord is the fixed per-trip reduction of an ordered event
// stream. Derived data: recomputed wholesale if raw events change.
type TripFeatureRecord struct {
	TripID          string    // source trip
	DriverID        string    // resolved driver
	StartTime       time.Time // trip start, anchors the rolling window
	MilesDriven     float64   // sum of per-event incremental distance
	NightDrivingPct float64   // fraction of events between 22:00 and 05:00
	HarshBrakes     float64   // count of events with AccelY < -5.0 m/s^2
	RapidAccels     float64   // count of events with AccelY > +5.0 m/s^2
	SpeedingPct     float64   // fraction of events above 70 mph
	StopGoEvents    float64   // count of stopped->moving transitions
	MeanSpeed       float64   // mean of event speeds
	P50Speed        float64   // median of event speeds
	P95Speed        float64   // 95th percentile of event speeds
}

// DriverFeatureSnapshot is a driver's trailing 30-day aggregate anchored
// at one trip's start time. For a fixed driver, snapshots are strictly
// ordered by WindowEndDate and each window covers only trips whose start
// time falls within the preceding 30 days (causal, no future leakage).
//
// Harsh-brake and rapid-accel counts are re-expressed as per-100-mile
// rates before windowing, with zero-distance trips yielding rate 0 and
// rates capped at 500.
type DriverFeatureSnapshot struct {
	DriverID            string    // driver identifier
	WindowEndDate       time.Time // anchoring trip's start time
	MilesDriven         float64   // 30d sum
	NightDrivingPct     float64   // 30d mean
	HarshBrakesPer100Mi float64   // 30d mean of capped per-trip rates
	RapidAccelsPer100Mi float64   // 30d mean of capped per-trip rates
	SpeedingPct         float64   // 30d mean
	StopGoEvents        float64   // 30d sum
	MeanSpeed           float64   // 30d mean
	P50Speed            float64   // 30d mean
	P95Speed            float64   // 30d mean; label source, not a scoring feature
}

// Scoring feature column names. ScoringFeatures fixes the order shared by
// the feature table, the model input vector and the explainer output;
// FeatureP95Speed is deliberately absent because the label derives from it.
const (
	FeatureMilesDriven      = "miles_driven"
	FeatureNightDrivingPct  = "night_driving_percentage"
	FeatureHarshBrakes100Mi = "harsh_brakes_per_100mi"
	FeatureRapidAccels100Mi = "rapid_accels_per_100mi"
	FeatureSpeedingPct      = "speeding_percentage"
	FeatureStopGoEvents     = "stop_go_events"
	FeatureMeanSpeed        = "mean_speed"
	FeatureP50Speed         = "p50_speed"
	FeatureP95Speed         = "p95_speed"
)

// ScoringFeatures is the declared model feature order.
var ScoringFeatures = []string{
	FeatureMilesDriven,
	FeatureNightDrivingPct,
	FeatureHarshBrakes100Mi,
	FeatureRapidAccels100Mi,
	FeatureSpeedingPct,
	FeatureStopGoEvents,
	FeatureMeanSpeed,
	FeatureP50Speed,
}

// Feature returns the named column value from the snapshot. The second
// return is false for unknown column names.
func (s *DriverFeatureSnapshot) Feature(name string) (float64, bool) {
	switch name {
	case FeatureMilesDriven:
		return s.MilesDriven, true
	case FeatureNightDrivingPct:
		return s.NightDrivingPct, true
	case FeatureHarshBrakes100Mi:
		return s.HarshBrakesPer100Mi, true
	case FeatureRapidAccels100Mi:
		return s.RapidAccelsPer100Mi, true
	case FeatureSpeedingPct:
		return s.SpeedingPct, true
	case FeatureStopGoEvents:
		return s.StopGoEvents, true
	case FeatureMeanSpeed:
		return s.MeanSpeed, true
	case FeatureP50Speed:
		return s.P50Speed, true
	case FeatureP95Speed:
		return s.P95Speed, true
	}
	return 0, false
}

// Label is the binary outcome flag for one driver, derived from the
// 95th-percentile-speed feature and persisted separately from the
// feature table so the deciding column never reaches the model.
type Label struct {
	DriverID   string // driver identifier
	ClaimIn30d int    // 1 = high risk, 0 = not
}
