package features

import (
	"sort"

	"telematics-risk-lab/internal/domain"
)

// labelQuantile is the cut point on the p95-speed distribution: drivers
// above the 80th percentile are labeled high risk.
const labelQuantile = 0.80

// BuildLabels derives one binary label per driver from the
// 95th-percentile-speed feature of each driver's latest snapshot,
// compared against the 80th percentile of that feature across all
// drivers' latest snapshots. Labels are persisted separately and the
// deciding column is excluded from the scoring feature set, so the
// model cannot trivially recover the label.
//
// The returned slice is sorted by driver ID. The threshold is returned
// alongside so the pipeline can log label incidence against it.
func BuildLabels(snapshots []*domain.DriverFeatureSnapshot) ([]*domain.Label, float64) {
	latest := latestPerDriver(snapshots)
	if len(latest) == 0 {
		return nil, 0
	}

	values := make([]float64, 0, len(latest))
	for _, snap := range latest {
		values = append(values, snap.P95Speed)
	}
	threshold := percentile(values, labelQuantile)

	labels := make([]*domain.Label, 0, len(latest))
	for _, snap := range latest {
		flag := 0
		if snap.P95Speed > threshold {
			flag = 1
		}
		labels = append(labels, &domain.Label{DriverID: snap.DriverID, ClaimIn30d: flag})
	}

	sort.Slice(labels, func(i, j int) bool { return labels[i].DriverID < labels[j].DriverID })

	return labels, threshold
}

// latestPerDriver picks each driver's snapshot with the greatest
// WindowEndDate, in deterministic driver order.
func latestPerDriver(snapshots []*domain.DriverFeatureSnapshot) []*domain.DriverFeatureSnapshot {
	byDriver := make(map[string]*domain.DriverFeatureSnapshot)
	for _, snap := range snapshots {
		cur, ok := byDriver[snap.DriverID]
		if !ok || snap.WindowEndDate.After(cur.WindowEndDate) {
			byDriver[snap.DriverID] = snap
		}
	}

	drivers := make([]string, 0, len(byDriver))
	for id := range byDriver {
		drivers = append(drivers, id)
	}
	sort.Strings(drivers)

	latest := make([]*domain.DriverFeatureSnapshot, 0, len(drivers))
	for _, id := range drivers {
		latest = append(latest, byDriver[id])
	}
	return latest
}
