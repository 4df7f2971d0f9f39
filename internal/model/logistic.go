// Package model loads the trained risk classifier and its explainer
// from a JSON artifact produced at training time. The serving path
// consumes both through the scoring collaborator interfaces; training
// itself lives outside this repository.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// LogisticModel is a calibrated logistic-regression risk classifier
// with a linear contribution decomposition as its explainer: the
// contribution of feature i is coefficient_i * (x_i - baseline_i),
// where the baseline is the training-set feature mean.
type LogisticModel struct {
	Features     []string  `json:"features"`      // declared feature order
	Coefficients []float64 `json:"coefficients"`  // one per feature
	Intercept    float64   `json:"intercept"`     // bias term
	Baselines    []float64 `json:"feature_means"` // training-set means
}

// Load reads a model artifact from path and validates its shape.
func Load(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the artifact's internal consistency.
func (m *LogisticModel) Validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("model artifact declares no features")
	}
	if len(m.Coefficients) != len(m.Features) {
		return fmt.Errorf("model artifact has %d coefficients for %d features",
			len(m.Coefficients), len(m.Features))
	}
	if len(m.Baselines) != len(m.Features) {
		return fmt.Errorf("model artifact has %d baselines for %d features",
			len(m.Baselines), len(m.Features))
	}
	return nil
}

// FeatureNames returns the declared feature order.
func (m *LogisticModel) FeatureNames() []string {
	return m.Features
}

// PredictProbability returns the probability of the high-risk class for
// an ordered feature vector.
func (m *LogisticModel) PredictProbability(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(features))
	}

	z := m.Intercept
	for i, x := range features {
		z += m.Coefficients[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Contributions returns one signed contribution per feature, aligned
// with FeatureNames.
func (m *LogisticModel) Contributions(features []float64) ([]float64, error) {
	if len(features) != len(m.Coefficients) {
		return nil, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(features))
	}

	contributions := make([]float64, len(features))
	for i, x := range features {
		contributions[i] = m.Coefficients[i] * (x - m.Baselines[i])
	}
	return contributions, nil
}
