package features

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"telematics-risk-lab/internal/domain"
)

// featureRange is an inclusive numeric bound for one feature column.
type featureRange struct {
	min float64
	max float64
}

// validationRanges declares the accepted bounds per column. Columns are
// checked in this order so failures are reported deterministically.
var validationColumns = []string{
	domain.FeatureMilesDriven,
	domain.FeatureNightDrivingPct,
	domain.FeatureHarshBrakes100Mi,
	domain.FeatureRapidAccels100Mi,
	domain.FeatureSpeedingPct,
	domain.FeatureStopGoEvents,
	domain.FeatureMeanSpeed,
	domain.FeatureP50Speed,
}

var validationRanges = map[string]featureRange{
	domain.FeatureMilesDriven:      {0, 10000},
	domain.FeatureNightDrivingPct:  {0, 1},
	domain.FeatureHarshBrakes100Mi: {0, 500},
	domain.FeatureRapidAccels100Mi: {0, 500},
	domain.FeatureSpeedingPct:      {0, 1},
	domain.FeatureStopGoEvents:     {0, 1000},
	domain.FeatureMeanSpeed:        {0, 100},
	domain.FeatureP50Speed:         {0, 100},
}

// ValidateSnapshots enforces the declared ranges over the aggregated
// feature table. It is a hard gate: the first violating row fails the
// whole run with ErrFeatureOutOfRange naming the column, its bounds and
// the offending driver. A column missing from the schema is logged as a
// warning, not an error. On success the table passes through unchanged.
func ValidateSnapshots(snapshots []*domain.DriverFeatureSnapshot) error {
	for _, column := range validationColumns {
		r := validationRanges[column]

		known := true
		for _, snap := range snapshots {
			v, ok := snap.Feature(column)
			if !ok {
				known = false
				break
			}
			if v < r.min || v > r.max {
				return fmt.Errorf(
					"column %q value %g for driver %q outside expected range [%g, %g]: %w",
					column, v, snap.DriverID, r.min, r.max, ErrFeatureOutOfRange,
				)
			}
		}
		if !known {
			log.Warn().Str("column", column).Msg("expected feature column not present, skipping validation")
			continue
		}
		log.Debug().Str("column", column).Msg("feature column validated")
	}
	return nil
}
