package planning

import (
	"fmt"
	"time"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

// Utilization thresholds for scheduler recommendations, in percent.
const (
	underUtilizedPct = 70.0
	overCommittedPct = 95.0
)

// Constraints bound a single scheduling pass.
type Constraints struct {
	// AvailableSeconds is the shift's time budget.
	AvailableSeconds int64
	// MaxItems caps the number of scheduled tasks; nil means unbounded.
	MaxItems *int
	// ShiftStart anchors the estimated completion timestamp.
	ShiftStart time.Time
}

// Schedule is the outcome of one packing pass.
type Schedule struct {
	Scheduled           []domain.Task
	Unscheduled         []domain.Task
	Recommendations     []string
	UtilizationPct      float64
	EstimatedCompletion time.Time
}

// Pack greedily fits prioritized drafts into the constraints in a single
// forward pass with no backtracking. A task that does not fit is set aside
// and the scan continues, so priority order wins over space utilization.
// This is deliberately not optimal bin-packing; upgrading it would change
// externally observable scheduling outcomes.
//
// Pack is a pure function: the input slice is not mutated and sequences
// 1..N are assigned to the scheduled output in final order.
func Pack(ordered []Draft, c Constraints) Schedule {
	var (
		used      int64
		scheduled []domain.Task
		skipped   []domain.Task
	)
	for _, d := range ordered {
		t := d.Task
		overTime := used+t.EstimatedSeconds > c.AvailableSeconds
		overCount := c.MaxItems != nil && len(scheduled)+1 > *c.MaxItems
		if overTime || overCount {
			skipped = append(skipped, t)
			continue
		}
		t.Sequence = len(scheduled) + 1
		scheduled = append(scheduled, t)
		used += t.EstimatedSeconds
	}

	s := Schedule{
		Scheduled:           scheduled,
		Unscheduled:         skipped,
		EstimatedCompletion: c.ShiftStart.Add(time.Duration(used) * time.Second),
	}
	if c.AvailableSeconds > 0 {
		s.UtilizationPct = float64(used) / float64(c.AvailableSeconds) * 100
	}
	if len(ordered) > 0 {
		s.Recommendations = recommendations(skipped, s.UtilizationPct)
	}
	return s
}

// recommendations emits diagnostic strings; they are never errors and never
// abort plan creation.
func recommendations(unscheduled []domain.Task, utilizationPct float64) []string {
	var recs []string
	for _, t := range unscheduled {
		if t.Priority == domain.PriorityUrgent {
			recs = append(recs, fmt.Sprintf(
				"urgent task for order item %s did not fit the shift budget (%ds needed)",
				t.OrderItemID, t.EstimatedSeconds))
		}
	}
	if n := len(unscheduled); n > 0 {
		recs = append(recs, fmt.Sprintf("%d task(s) left unscheduled; consider a follow-up plan", n))
	}
	switch {
	case utilizationPct < underUtilizedPct:
		recs = append(recs, fmt.Sprintf("shift under-utilized at %.1f%%; capacity available for more work", utilizationPct))
	case utilizationPct > overCommittedPct:
		recs = append(recs, fmt.Sprintf("shift over-committed at %.1f%%; no slack for overruns", utilizationPct))
	}
	return recs
}
