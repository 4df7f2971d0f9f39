package scoring

import (
	"fmt"

	"telematics-risk-lab/internal/storage"
)

// Model is the trained risk classifier, consumed as a black box: an
// ordered feature vector in, the probability of the high-risk class out.
type Model interface {
	PredictProbability(features []float64) (float64, error)
}

// Explainer attributes a model output to its inputs: one signed
// contribution per feature, aligned 1:1 with FeatureNames.
type Explainer interface {
	FeatureNames() []string
	Contributions(features []float64) ([]float64, error)
}

// ServingContext bundles the immutable serving-time assets: the feature
// table, the model and the explainer. It is constructed once at process
// start, never mutated afterwards, and is safe for concurrent read-only
// use. If construction fails the process must refuse to serve.
type ServingContext struct {
	snapshots storage.SnapshotStore
	model     Model
	explainer Explainer
	schema    []string
}

// NewServingContext validates that the explainer's declared feature
// order matches the expected schema and returns the assembled context.
// A drifted feature set fails here, at load time, with
// ErrFeatureSetMismatch rather than on the first request.
func NewServingContext(snapshots storage.SnapshotStore, model Model, explainer Explainer, schema []string) (*ServingContext, error) {
	if snapshots == nil || model == nil || explainer == nil {
		return nil, fmt.Errorf("serving context requires snapshots, model and explainer")
	}

	declared := explainer.FeatureNames()
	if len(declared) != len(schema) {
		return nil, fmt.Errorf("explainer declares %d features, schema has %d: %w",
			len(declared), len(schema), ErrFeatureSetMismatch)
	}
	for i, name := range schema {
		if declared[i] != name {
			return nil, fmt.Errorf("feature %d: explainer declares %q, schema expects %q: %w",
				i, declared[i], name, ErrFeatureSetMismatch)
		}
	}

	return &ServingContext{
		snapshots: snapshots,
		model:     model,
		explainer: explainer,
		schema:    schema,
	}, nil
}

// Schema returns the declared feature order.
func (sc *ServingContext) Schema() []string {
	return sc.schema
}
