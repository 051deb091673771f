package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-prodplan/internal/planning"
)

const (
	// defaultUnitSeconds is the per-unit floor used when an operation has
	// no recorded history. Estimates built on it carry zero confidence.
	defaultUnitSeconds = 300.0

	// minEstimateSeconds keeps tiny quantities from producing estimates too
	// small to schedule meaningfully.
	minEstimateSeconds = 60

	// sampleWindow bounds how far back samples are considered.
	sampleWindow = 90 * 24 * time.Hour

	// fullConfidenceSamples is the sample count at which confidence caps out.
	fullConfidenceSamples = 20
	maxConfidence         = 0.95
)

// difficultyFactor scales the per-unit time by the work's difficulty tier.
func difficultyFactor(d planning.Difficulty) float64 {
	switch d {
	case planning.DifficultyEasy:
		return 0.8
	case planning.DifficultyHard:
		return 1.5
	default:
		return 1.0
	}
}

// HistoricalEstimator implements planning.TimeEstimator by averaging
// recorded per-unit actual times for an operation. With no history it
// falls back to a default floor instead of erroring.
type HistoricalEstimator struct {
	pool *pgxpool.Pool
}

// NewHistoricalEstimator builds an estimator over the estimation_samples table.
func NewHistoricalEstimator(pool *pgxpool.Pool) *HistoricalEstimator {
	return &HistoricalEstimator{pool: pool}
}

// Estimate returns the estimated duration for quantity units of the given
// operation. Never negative.
func (e *HistoricalEstimator) Estimate(ctx context.Context, operation string, quantity int, difficulty planning.Difficulty) (planning.Estimate, error) {
	if quantity < 1 {
		quantity = 1
	}

	var (
		avgUnit *float64
		samples int
	)
	err := e.pool.QueryRow(ctx, `
		SELECT AVG(unit_seconds), COUNT(*)
		FROM estimation_samples
		WHERE operation = $1 AND recorded_at >= $2
	`, operation, time.Now().UTC().Add(-sampleWindow)).Scan(&avgUnit, &samples)
	if err != nil {
		return planning.Estimate{}, fmt.Errorf("query estimation samples for %q: %w", operation, err)
	}

	unit := defaultUnitSeconds
	confidence := 0.0
	if samples > 0 && avgUnit != nil {
		unit = *avgUnit
		confidence = float64(samples) / fullConfidenceSamples
		if confidence > maxConfidence {
			confidence = maxConfidence
		}
	}

	seconds := int64(unit * difficultyFactor(difficulty) * float64(quantity))
	if seconds < minEstimateSeconds {
		seconds = minEstimateSeconds
	}
	return planning.Estimate{Seconds: seconds, Confidence: confidence}, nil
}

// RecordSample stores one observed per-unit duration for an operation.
// Called after task completion so future estimates learn from actuals.
func (e *HistoricalEstimator) RecordSample(ctx context.Context, operation string, unitSeconds float64, recordedAt time.Time) error {
	if unitSeconds < 0 {
		unitSeconds = 0
	}
	_, err := e.pool.Exec(ctx, `
		INSERT INTO estimation_samples (id, operation, unit_seconds, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), operation, unitSeconds, recordedAt)
	if err != nil {
		return fmt.Errorf("record estimation sample for %q: %w", operation, err)
	}
	return nil
}
