package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"telematics-risk-lab/internal/domain"
	"telematics-risk-lab/internal/storage/memory"
)

// stubModel returns a fixed probability and fixed contributions.
type stubModel struct {
	features      []string
	probability   float64
	contributions []float64
}

func (m *stubModel) PredictProbability([]float64) (float64, error) { return m.probability, nil }
func (m *stubModel) FeatureNames() []string                        { return m.features }
func (m *stubModel) Contributions([]float64) ([]float64, error)    { return m.contributions, nil }

func testSnapshot(driverID string, windowEnd time.Time) *domain.DriverFeatureSnapshot {
	return &domain.DriverFeatureSnapshot{
		DriverID:            driverID,
		WindowEndDate:       windowEnd,
		MilesDriven:         500,
		NightDrivingPct:     0.3,
		HarshBrakesPer100Mi: 6,
		RapidAccelsPer100Mi: 5,
		SpeedingPct:         0.12,
		StopGoEvents:        55,
		MeanSpeed:           42,
		P50Speed:            40,
		P95Speed:            75,
	}
}

func newTestContext(t *testing.T, model *stubModel, snapshots ...*domain.DriverFeatureSnapshot) *ServingContext {
	t.Helper()

	store := memory.NewSnapshotStore()
	if len(snapshots) > 0 {
		if err := store.InsertBulk(context.Background(), snapshots); err != nil {
			t.Fatalf("InsertBulk failed: %v", err)
		}
	}

	sc, err := NewServingContext(store, model, model, domain.ScoringFeatures)
	if err != nil {
		t.Fatalf("NewServingContext failed: %v", err)
	}
	return sc
}

func TestNewServingContext_FeatureSetMismatch(t *testing.T) {
	store := memory.NewSnapshotStore()

	// Wrong order.
	reordered := &stubModel{features: []string{
		domain.FeatureP50Speed, domain.FeatureMilesDriven, domain.FeatureNightDrivingPct,
		domain.FeatureHarshBrakes100Mi, domain.FeatureRapidAccels100Mi, domain.FeatureSpeedingPct,
		domain.FeatureStopGoEvents, domain.FeatureMeanSpeed,
	}}
	if _, err := NewServingContext(store, reordered, reordered, domain.ScoringFeatures); !errors.Is(err, ErrFeatureSetMismatch) {
		t.Errorf("Expected ErrFeatureSetMismatch for reordered features, got %v", err)
	}

	// Wrong count.
	short := &stubModel{features: domain.ScoringFeatures[:5]}
	if _, err := NewServingContext(store, short, short, domain.ScoringFeatures); !errors.Is(err, ErrFeatureSetMismatch) {
		t.Errorf("Expected ErrFeatureSetMismatch for short feature set, got %v", err)
	}
}

func TestScore_DriverNotFound(t *testing.T) {
	model := &stubModel{features: domain.ScoringFeatures, contributions: make([]float64, 8)}
	sc := newTestContext(t, model)

	_, err := sc.Score(context.Background(), "nobody")
	if !errors.Is(err, ErrDriverNotFound) {
		t.Fatalf("Expected ErrDriverNotFound, got %v", err)
	}
}

func TestScore_TopFeaturesPositiveSortedCapped(t *testing.T) {
	model := &stubModel{
		features:    domain.ScoringFeatures,
		probability: 0.7,
		// Positive: miles 0.5, harsh 0.2, rapid 0.9, stop_go 0.1, mean 0.3.
		contributions: []float64{0.5, -1.0, 0.2, 0.9, 0, 0.1, 0.3, -0.05},
	}
	windowEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sc := newTestContext(t, model, testSnapshot("d1", windowEnd))

	result, err := sc.Score(context.Background(), "d1")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.RiskScore != 0.7 {
		t.Errorf("Expected risk score 0.7, got %v", result.RiskScore)
	}
	if len(result.TopFeatures) != 3 {
		t.Fatalf("Expected 3 top features, got %d", len(result.TopFeatures))
	}

	wantOrder := []string{
		domain.FeatureRapidAccels100Mi,
		domain.FeatureMilesDriven,
		domain.FeatureMeanSpeed,
	}
	for i, want := range wantOrder {
		if result.TopFeatures[i].Feature != want {
			t.Errorf("Top feature %d: expected %s, got %s", i, want, result.TopFeatures[i].Feature)
		}
	}

	// Driver value and portfolio average ride along with each entry.
	top := result.TopFeatures[0]
	if top.Value != 5 {
		t.Errorf("Expected driver value 5 for rapid accels, got %v", top.Value)
	}
	if top.Average != 5 {
		t.Errorf("Expected portfolio average 5 (single driver), got %v", top.Average)
	}
	if top.Contribution != 0.9 {
		t.Errorf("Expected contribution 0.9, got %v", top.Contribution)
	}
}

func TestScore_TieBreakByDeclarationOrder(t *testing.T) {
	contributions := make([]float64, 8)
	contributions[2] = 0.5 // harsh_brakes_per_100mi
	contributions[6] = 0.5 // mean_speed, same contribution

	model := &stubModel{features: domain.ScoringFeatures, contributions: contributions}
	windowEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sc := newTestContext(t, model, testSnapshot("d1", windowEnd))

	result, err := sc.Score(context.Background(), "d1")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(result.TopFeatures) != 2 {
		t.Fatalf("Expected 2 top features, got %d", len(result.TopFeatures))
	}
	if result.TopFeatures[0].Feature != domain.FeatureHarshBrakes100Mi {
		t.Errorf("Expected tie broken by declaration order, got %s first", result.TopFeatures[0].Feature)
	}
}

func TestScore_NoPositiveContributions(t *testing.T) {
	model := &stubModel{
		features:      domain.ScoringFeatures,
		probability:   0.05,
		contributions: []float64{-0.1, -0.2, 0, -0.3, 0, -0.1, -0.4, 0},
	}
	windowEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sc := newTestContext(t, model, testSnapshot("d1", windowEnd))

	result, err := sc.Score(context.Background(), "d1")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(result.TopFeatures) != 0 {
		t.Errorf("Expected empty top features for a good driver, got %d", len(result.TopFeatures))
	}
}

func TestScore_UsesLatestSnapshot(t *testing.T) {
	model := &stubModel{features: domain.ScoringFeatures, contributions: make([]float64, 8)}
	contributions := make([]float64, 8)
	contributions[0] = 1
	model.contributions = contributions

	old := testSnapshot("d1", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	old.MilesDriven = 100
	latest := testSnapshot("d1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	latest.MilesDriven = 900

	sc := newTestContext(t, model, old, latest)

	result, err := sc.Score(context.Background(), "d1")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.TopFeatures[0].Value != 900 {
		t.Errorf("Expected latest snapshot's miles 900, got %v", result.TopFeatures[0].Value)
	}
}

func TestRiskScore(t *testing.T) {
	model := &stubModel{features: domain.ScoringFeatures, probability: 0.42, contributions: make([]float64, 8)}
	windowEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sc := newTestContext(t, model, testSnapshot("d1", windowEnd))

	score, err := sc.RiskScore(context.Background(), "d1")
	if err != nil {
		t.Fatalf("RiskScore failed: %v", err)
	}
	if score != 0.42 {
		t.Errorf("Expected 0.42, got %v", score)
	}

	if _, err := sc.RiskScore(context.Background(), "nobody"); !errors.Is(err, ErrDriverNotFound) {
		t.Errorf("Expected ErrDriverNotFound, got %v", err)
	}
}
