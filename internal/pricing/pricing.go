// Package pricing maps a driver's risk score and a baseline premium to
// a bounded adjusted premium using population calibration statistics.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"telematics-risk-lab/internal/domain"
)

// Pricing errors. Both are fatal to the request, not the process.
var (
	// ErrConfiguration is returned when alpha, min_cap or max_cap is
	// missing.
	ErrConfiguration = errors.New("pricing configuration missing")

	// ErrCalibrationUnavailable is returned when the holdout calibration
	// statistics are unset.
	ErrCalibrationUnavailable = errors.New("calibration statistics unavailable")
)

// Config holds the externally supplied pricing parameters.
type Config struct {
	Alpha  float64 // sensitivity of the premium to standardized score
	MinCap float64 // lower premium bound
	MaxCap float64 // upper premium bound
}

// RiskScorer provides the risk probability for a driver's latest
// snapshot. Satisfied by scoring.ServingContext.
type RiskScorer interface {
	RiskScore(ctx context.Context, driverID string) (float64, error)
}

// Calculator computes bounded premium adjustments. Immutable after
// construction; safe for concurrent use.
type Calculator struct {
	scorer RiskScorer
	cfg    *Config
	stats  *domain.CalibrationStats
}

// NewCalculator assembles a premium calculator. A nil cfg or stats is
// permitted here and reported per-request, so a server missing pricing
// assets can still serve scoring.
func NewCalculator(scorer RiskScorer, cfg *Config, stats *domain.CalibrationStats) *Calculator {
	return &Calculator{scorer: scorer, cfg: cfg, stats: stats}
}

// Price computes the driver's adjusted premium:
//
//	premium = base * (1 + alpha * (score - holdout_mean) / holdout_std)
//
// clamped to [min_cap, max_cap], with delta = clamped - base. A score
// equal to the holdout mean prices at exactly the base premium.
func (c *Calculator) Price(ctx context.Context, driverID string, basePremium float64) (*domain.PriceResult, error) {
	if c.cfg == nil {
		return nil, fmt.Errorf("alpha/min_cap/max_cap not configured: %w", ErrConfiguration)
	}
	if c.stats == nil {
		return nil, ErrCalibrationUnavailable
	}
	if c.stats.HoldoutScoreStd <= 0 {
		return nil, fmt.Errorf("holdout score std %g is not positive: %w",
			c.stats.HoldoutScoreStd, ErrCalibrationUnavailable)
	}

	score, err := c.scorer.RiskScore(ctx, driverID)
	if err != nil {
		return nil, err
	}

	premium := basePremium * (1 + c.cfg.Alpha*(score-c.stats.HoldoutScoreMean)/c.stats.HoldoutScoreStd)
	clamped := premium
	if clamped < c.cfg.MinCap {
		clamped = c.cfg.MinCap
	}
	if clamped > c.cfg.MaxCap {
		clamped = c.cfg.MaxCap
	}

	return &domain.PriceResult{
		DriverID: driverID,
		Premium:  clamped,
		Delta:    clamped - basePremium,
	}, nil
}
