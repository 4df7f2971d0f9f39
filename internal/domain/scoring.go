package domain

// TopFeature is one entry of a score explanation: a feature whose
// contribution increased the driver's risk, with the driver's raw value
// and the portfolio average for peer-relative display.
type TopFeature struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Average      float64 `json:"average"`
	Contribution float64 `json:"contribution"`
}

// ScoreResult is the outcome of scoring one driver's latest snapshot.
// TopFeatures holds at most 3 entries, all with strictly positive
// contribution, ordered by descending contribution with ties broken by
// feature declaration order. An empty list is a valid result.
type ScoreResult struct {
	DriverID    string       `json:"driver_id"`
	RiskScore   float64      `json:"risk_score"`
	TopFeatures []TopFeature `json:"top_features"`
}

// PriceResult is a bounded premium adjustment for one driver.
// Delta = Premium - base premium and may be negative.
type PriceResult struct {
	DriverID string  `json:"driver_id"`
	Premium  float64 `json:"premium"`
	Delta    float64 `json:"delta"`
}

// CalibrationStats holds population statistics of model risk scores over
// the training-time holdout set. Produced once at training time and
// consumed read-only by pricing.
type CalibrationStats struct {
	HoldoutScoreMean float64 `json:"holdout_score_mean"`
	HoldoutScoreStd  float64 `json:"holdout_score_std"`
}
