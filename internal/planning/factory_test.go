package planning_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/planning"
)

type stubEstimator struct {
	perUnit int64
	err     error
	calls   []string
}

func (s *stubEstimator) Estimate(_ context.Context, operation string, quantity int, _ planning.Difficulty) (planning.Estimate, error) {
	s.calls = append(s.calls, operation)
	if s.err != nil {
		return planning.Estimate{}, s.err
	}
	return planning.Estimate{Seconds: s.perUnit * int64(quantity), Confidence: 0.8}, nil
}

func TestFactoryBuild(t *testing.T) {
	est := &stubEstimator{perUnit: 120}
	f := planning.NewTaskFactory(est, planning.DifficultyMedium)

	drafts, err := f.Build(context.Background(), []planning.Candidate{
		{OrderID: "o1", OrderItemID: "i1", Operation: "print", Quantity: 3},
		{OrderID: "o1", OrderItemID: "i2", Operation: "cut", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	first := drafts[0].Task
	assert.Equal(t, "o1", first.OrderID)
	assert.Equal(t, "i1", first.OrderItemID)
	assert.Equal(t, int64(360), first.EstimatedSeconds)
	assert.Equal(t, domain.TaskPending, first.Status)
	assert.Empty(t, first.PlanID, "plan is assigned later, at persistence")
	assert.Empty(t, first.Priority, "priority is assigned by the prioritizer")
	assert.Zero(t, first.Sequence)
	assert.Equal(t, 0.8, drafts[0].Confidence)

	assert.Equal(t, []string{"print", "cut"}, est.calls, "one estimator call per candidate")
}

func TestFactoryBuildEstimatorFailure(t *testing.T) {
	est := &stubEstimator{err: errors.New("history service down")}
	f := planning.NewTaskFactory(est, planning.DifficultyMedium)

	_, err := f.Build(context.Background(), []planning.Candidate{{Operation: "print", Quantity: 1}})
	require.Error(t, err)

	var collab *domain.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "time estimator", collab.Collaborator)
}

func TestFactoryBuildRejectsNegativeEstimate(t *testing.T) {
	est := &stubEstimator{perUnit: -10}
	f := planning.NewTaskFactory(est, "")

	_, err := f.Build(context.Background(), []planning.Candidate{{Operation: "print", Quantity: 1}})
	var collab *domain.CollaboratorError
	require.ErrorAs(t, err, &collab)
}

func TestFactoryBuildEmpty(t *testing.T) {
	f := planning.NewTaskFactory(&stubEstimator{perUnit: 60}, planning.DifficultyMedium)
	drafts, err := f.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}
