package planning

import "context"

// Difficulty tiers a unit of work for estimation purposes.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Estimate is the time estimator's answer for one unit of work.
type Estimate struct {
	// Seconds is the estimated duration for the whole quantity. Never negative.
	Seconds int64
	// Confidence is in [0, 1]; 0 means no historical data backed the estimate.
	Confidence float64
}

// TimeEstimator estimates how long an operation on a given quantity will
// take, based on historical samples. Implementations must never return a
// negative duration and must fall back to a default floor instead of
// erroring when no history exists.
type TimeEstimator interface {
	Estimate(ctx context.Context, operation string, quantity int, difficulty Difficulty) (Estimate, error)
}
