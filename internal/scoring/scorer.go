package scoring

import (
	"context"
	"fmt"
	"sort"

	"telematics-risk-lab/internal/domain"
)

// maxTopFeatures bounds the explanation list.
const maxTopFeatures = 3

// Score scores one driver's latest feature snapshot and explains it.
//
// Steps: look up the driver's snapshots (ErrDriverNotFound if none),
// take the latest by window_end_date, project it onto the declared
// feature order, obtain the high-risk probability and the per-feature
// contributions, then keep the features with strictly positive
// contribution sorted descending, ties broken by declaration order,
// and annotate the top 3 with the driver's value and the portfolio
// average. An empty top list is a valid good-driver result.
func (sc *ServingContext) Score(ctx context.Context, driverID string) (*domain.ScoreResult, error) {
	snap, vector, err := sc.latestVector(ctx, driverID)
	if err != nil {
		return nil, err
	}

	prob, err := sc.model.PredictProbability(vector)
	if err != nil {
		return nil, fmt.Errorf("predict probability for driver %q: %w", driverID, err)
	}

	contributions, err := sc.explainer.Contributions(vector)
	if err != nil {
		return nil, fmt.Errorf("explain driver %q: %w", driverID, err)
	}
	if len(contributions) != len(sc.schema) {
		return nil, fmt.Errorf("explainer returned %d contributions for %d features: %w",
			len(contributions), len(sc.schema), ErrFeatureSetMismatch)
	}

	averages, err := sc.snapshots.ColumnMeans(ctx, sc.schema)
	if err != nil {
		return nil, fmt.Errorf("portfolio averages: %w", err)
	}

	type ranked struct {
		index        int
		contribution float64
	}
	var positive []ranked
	for i, c := range contributions {
		if c > 0 {
			positive = append(positive, ranked{index: i, contribution: c})
		}
	}
	// Stable: equal contributions keep feature declaration order.
	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].contribution > positive[j].contribution
	})
	if len(positive) > maxTopFeatures {
		positive = positive[:maxTopFeatures]
	}

	top := make([]domain.TopFeature, 0, len(positive))
	for _, r := range positive {
		name := sc.schema[r.index]
		value, _ := snap.Feature(name)
		top = append(top, domain.TopFeature{
			Feature:      name,
			Value:        value,
			Average:      averages[name],
			Contribution: r.contribution,
		})
	}

	return &domain.ScoreResult{
		DriverID:    driverID,
		RiskScore:   prob,
		TopFeatures: top,
	}, nil
}

// RiskScore runs the lookup/projection/prediction steps of Score without
// the explanation, for callers that only need the probability.
func (sc *ServingContext) RiskScore(ctx context.Context, driverID string) (float64, error) {
	_, vector, err := sc.latestVector(ctx, driverID)
	if err != nil {
		return 0, err
	}

	prob, err := sc.model.PredictProbability(vector)
	if err != nil {
		return 0, fmt.Errorf("predict probability for driver %q: %w", driverID, err)
	}
	return prob, nil
}

// latestVector fetches the driver's latest snapshot and projects it onto
// the declared feature order.
func (sc *ServingContext) latestVector(ctx context.Context, driverID string) (*domain.DriverFeatureSnapshot, []float64, error) {
	snapshots, err := sc.snapshots.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshots for driver %q: %w", driverID, err)
	}
	if len(snapshots) == 0 {
		return nil, nil, fmt.Errorf("driver %q: %w", driverID, ErrDriverNotFound)
	}

	latest := snapshots[0]
	for _, snap := range snapshots[1:] {
		if snap.WindowEndDate.After(latest.WindowEndDate) {
			latest = snap
		}
	}

	vector := make([]float64, len(sc.schema))
	for i, name := range sc.schema {
		v, ok := latest.Feature(name)
		if !ok {
			return nil, nil, fmt.Errorf("snapshot missing required feature %q: %w", name, ErrFeatureSetMismatch)
		}
		vector[i] = v
	}

	return latest, vector, nil
}
