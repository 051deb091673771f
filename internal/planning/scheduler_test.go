package planning_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/planning"
)

func draftsOf(priority domain.Priority, seconds ...int64) []planning.Draft {
	out := make([]planning.Draft, 0, len(seconds))
	for i, s := range seconds {
		out = append(out, planning.Draft{Task: domain.Task{
			OrderItemID:      string(rune('a' + i)),
			Priority:         priority,
			EstimatedSeconds: s,
		}})
	}
	return out
}

func shiftStart() time.Time {
	return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
}

func TestPackEightHourBudget(t *testing.T) {
	// Ten 1h tasks against an 8h budget: exactly 8 scheduled in input order,
	// 2 unscheduled, utilization 100% which is over the >95% threshold.
	in := draftsOf(domain.PriorityMedium, 3600, 3600, 3600, 3600, 3600, 3600, 3600, 3600, 3600, 3600)
	s := planning.Pack(in, planning.Constraints{
		AvailableSeconds: 8 * 3600,
		ShiftStart:       shiftStart(),
	})

	require.Len(t, s.Scheduled, 8)
	require.Len(t, s.Unscheduled, 2)
	assert.Equal(t, 100.0, s.UtilizationPct)
	assert.Equal(t, shiftStart().Add(8*time.Hour), s.EstimatedCompletion)

	joined := strings.Join(s.Recommendations, "\n")
	assert.Contains(t, joined, "over-committed")
	assert.NotContains(t, joined, "under-utilized")
	assert.Contains(t, joined, "2 task(s) left unscheduled")
}

func TestPackEmptyInput(t *testing.T) {
	s := planning.Pack(nil, planning.Constraints{
		AvailableSeconds: 8 * 3600,
		ShiftStart:       shiftStart(),
	})
	assert.Empty(t, s.Scheduled)
	assert.Empty(t, s.Unscheduled)
	assert.Empty(t, s.Recommendations, "an empty plan emits no recommendations")
	assert.Equal(t, 0.0, s.UtilizationPct)
	assert.Equal(t, shiftStart(), s.EstimatedCompletion)
}

func TestPackUrgentTooLarge(t *testing.T) {
	// One urgent 10h task against an 8h budget: unscheduled with an explicit
	// urgent warning.
	in := draftsOf(domain.PriorityUrgent, 10*3600)
	s := planning.Pack(in, planning.Constraints{
		AvailableSeconds: 8 * 3600,
		ShiftStart:       shiftStart(),
	})

	assert.Empty(t, s.Scheduled)
	require.Len(t, s.Unscheduled, 1)
	joined := strings.Join(s.Recommendations, "\n")
	assert.Contains(t, joined, "urgent task")
	assert.Contains(t, joined, "under-utilized")
}

func TestPackSkipsMisfitAndKeepsScanning(t *testing.T) {
	// The oversized task is skipped but the pass continues, so later tasks
	// that fit are still scheduled. No backtracking.
	in := []planning.Draft{
		{Task: domain.Task{OrderItemID: "big", Priority: domain.PriorityHigh, EstimatedSeconds: 7200}},
		{Task: domain.Task{OrderItemID: "small-1", Priority: domain.PriorityMedium, EstimatedSeconds: 1800}},
		{Task: domain.Task{OrderItemID: "small-2", Priority: domain.PriorityMedium, EstimatedSeconds: 1800}},
	}
	s := planning.Pack(in, planning.Constraints{
		AvailableSeconds: 3600,
		ShiftStart:       shiftStart(),
	})

	require.Len(t, s.Scheduled, 2)
	assert.Equal(t, "small-1", s.Scheduled[0].OrderItemID)
	assert.Equal(t, "small-2", s.Scheduled[1].OrderItemID)
	require.Len(t, s.Unscheduled, 1)
	assert.Equal(t, "big", s.Unscheduled[0].OrderItemID)
}

func TestPackMaxItemsCap(t *testing.T) {
	max := 2
	in := draftsOf(domain.PriorityMedium, 600, 600, 600, 600)
	s := planning.Pack(in, planning.Constraints{
		AvailableSeconds: 8 * 3600,
		MaxItems:         &max,
		ShiftStart:       shiftStart(),
	})
	assert.Len(t, s.Scheduled, 2)
	assert.Len(t, s.Unscheduled, 2)
}

func TestPackInvariants(t *testing.T) {
	max := 5
	in := draftsOf(domain.PriorityMedium, 3000, 1200, 5000, 700, 900, 2400, 8000, 60)
	c := planning.Constraints{
		AvailableSeconds: 4 * 3600,
		MaxItems:         &max,
		ShiftStart:       shiftStart(),
	}
	s := planning.Pack(in, c)

	// Capacity invariant.
	var total int64
	for _, task := range s.Scheduled {
		total += task.EstimatedSeconds
	}
	assert.LessOrEqual(t, total, c.AvailableSeconds)
	assert.LessOrEqual(t, len(s.Scheduled), max)

	// Sequence invariant: exactly 1..N, no gaps or duplicates.
	for i, task := range s.Scheduled {
		assert.Equal(t, i+1, task.Sequence)
	}
	// Unscheduled tasks keep sequence 0.
	for _, task := range s.Unscheduled {
		assert.Zero(t, task.Sequence)
	}
	// Every input task lands on exactly one side.
	assert.Equal(t, len(in), len(s.Scheduled)+len(s.Unscheduled))

	// Input is untouched.
	for _, d := range in {
		assert.Zero(t, d.Task.Sequence)
	}
}

func TestPackPriorityMonotonicity(t *testing.T) {
	// Equal-size tasks ordered by tier: a lower tier never takes a slot
	// while a higher tier from the same set goes unscheduled.
	in := append(draftsOf(domain.PriorityUrgent, 3600, 3600),
		append(draftsOf(domain.PriorityHigh, 3600), draftsOf(domain.PriorityLow, 3600, 3600)...)...)
	s := planning.Pack(in, planning.Constraints{
		AvailableSeconds: 3 * 3600,
		ShiftStart:       shiftStart(),
	})

	require.Len(t, s.Scheduled, 3)
	unscheduledRanks := map[int]bool{}
	for _, task := range s.Unscheduled {
		unscheduledRanks[task.Priority.Rank()] = true
	}
	for _, task := range s.Scheduled {
		for rank := range unscheduledRanks {
			assert.GreaterOrEqual(t, task.Priority.Rank(), rank,
				"scheduled %s task while a higher tier went unscheduled", task.Priority)
		}
	}
}

func TestPackZeroBudget(t *testing.T) {
	in := draftsOf(domain.PriorityMedium, 600)
	s := planning.Pack(in, planning.Constraints{ShiftStart: shiftStart()})
	assert.Empty(t, s.Scheduled)
	assert.Len(t, s.Unscheduled, 1)
	assert.Equal(t, 0.0, s.UtilizationPct, "zero budget must not divide by zero")
}
