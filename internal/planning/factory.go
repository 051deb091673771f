package planning

import (
	"context"
	"fmt"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

// Draft pairs a task draft with the candidate it was built from, so the
// prioritizer can score against the original order metadata.
type Draft struct {
	Task       domain.Task
	Candidate  Candidate
	Confidence float64
}

// TaskFactory converts candidate order items into schedulable task drafts,
// calling the time estimator once per item. Drafts come back with plan and
// priority unset, sequence 0 and status PENDING.
type TaskFactory struct {
	estimator  TimeEstimator
	difficulty Difficulty
}

// NewTaskFactory builds a factory estimating at the given difficulty tier.
func NewTaskFactory(estimator TimeEstimator, difficulty Difficulty) *TaskFactory {
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	return &TaskFactory{estimator: estimator, difficulty: difficulty}
}

// Build produces one draft per candidate. A single estimator failure aborts
// the whole batch; callers surface it rather than planning with partial data.
func (f *TaskFactory) Build(ctx context.Context, candidates []Candidate) ([]Draft, error) {
	drafts := make([]Draft, 0, len(candidates))
	for _, c := range candidates {
		est, err := f.estimator.Estimate(ctx, c.Operation, c.Quantity, f.difficulty)
		if err != nil {
			return nil, &domain.CollaboratorError{Collaborator: "time estimator", Err: err}
		}
		if est.Seconds < 0 {
			return nil, &domain.CollaboratorError{
				Collaborator: "time estimator",
				Err:          fmt.Errorf("negative estimate %d for operation %q", est.Seconds, c.Operation),
			}
		}
		drafts = append(drafts, Draft{
			Task: domain.Task{
				OrderID:          c.OrderID,
				OrderItemID:      c.OrderItemID,
				Operation:        c.Operation,
				Quantity:         c.Quantity,
				Sequence:         0,
				EstimatedSeconds: est.Seconds,
				Status:           domain.TaskPending,
			},
			Candidate:  c,
			Confidence: est.Confidence,
		})
	}
	return drafts, nil
}
