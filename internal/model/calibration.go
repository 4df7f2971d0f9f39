package model

import (
	"encoding/json"
	"fmt"
	"os"

	"telematics-risk-lab/internal/domain"
)

// LoadCalibrationStats reads the training-time holdout score statistics
// from a JSON artifact. The stats are frozen at training time: pricing
// never recomputes them from the live feature table.
func LoadCalibrationStats(path string) (*domain.CalibrationStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration artifact: %w", err)
	}

	var stats domain.CalibrationStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode calibration artifact: %w", err)
	}
	if stats.HoldoutScoreStd <= 0 {
		return nil, fmt.Errorf("calibration artifact has non-positive holdout_score_std %g", stats.HoldoutScoreStd)
	}
	return &stats, nil
}
