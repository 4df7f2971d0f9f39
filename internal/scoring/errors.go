package scoring

import "errors"

// Serving-path errors. Both are per-request: they never mutate shared
// state.
var (
	// ErrDriverNotFound is returned when no feature snapshot exists for
	// the requested driver.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrFeatureSetMismatch is returned when the model's declared
	// feature order and the feature table have drifted apart.
	ErrFeatureSetMismatch = errors.New("feature set mismatch")
)
