package features

import "errors"

// Pipeline errors. Both are fatal to an offline run: no partial feature
// table is ever persisted.
var (
	// ErrMissingJoinKey is returned when an event references an unknown
	// trip or a trip references an unknown vehicle.
	ErrMissingJoinKey = errors.New("missing join key")

	// ErrFeatureOutOfRange is returned by the validation gate when any
	// row violates its column's declared numeric range.
	ErrFeatureOutOfRange = errors.New("feature out of range")
)
