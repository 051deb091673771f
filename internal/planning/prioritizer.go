package planning

import (
	"sort"
	"time"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

// Scoring weights and thresholds. Tunable policy: the exact numbers may be
// adjusted but the resulting ordering semantics must stay reproducible.
const (
	scoreBase        = 50
	scoreAgeOver7d   = 30
	scoreAgeOver3d   = 15
	scorePrepaid     = 10
	scoreHighValue   = 10
	scoreRush        = 15
	highValueAmount  = 500.0
	tierUrgentScore  = 80
	tierHighScore    = 65
	tierMediumScore  = 35
)

// Score computes the raw priority score for a candidate relative to the
// plan's target date.
func Score(c Candidate, targetDate time.Time) int {
	score := scoreBase
	switch age := c.AgeDays(targetDate); {
	case age > 7:
		score += scoreAgeOver7d
	case age > 3:
		score += scoreAgeOver3d
	}
	if c.Prepaid {
		score += scorePrepaid
	}
	if c.OrderValue >= highValueAmount {
		score += scoreHighValue
	}
	if c.Rush {
		score += scoreRush
	}
	return score
}

// Tier maps a raw score to a priority tier.
func Tier(score int) domain.Priority {
	switch {
	case score >= tierUrgentScore:
		return domain.PriorityUrgent
	case score >= tierHighScore:
		return domain.PriorityHigh
	case score >= tierMediumScore:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Prioritize annotates each draft with its priority tier and returns the
// drafts in scheduling order: tier descending, then estimated time
// ascending (shorter jobs first). The sort is stable so identical inputs
// always produce identical schedules.
func Prioritize(drafts []Draft, targetDate time.Time) []Draft {
	out := make([]Draft, len(drafts))
	copy(out, drafts)
	for i := range out {
		out[i].Task.Priority = Tier(Score(out[i].Candidate, targetDate))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Task.Priority.Rank(), out[j].Task.Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].Task.EstimatedSeconds < out[j].Task.EstimatedSeconds
	})
	return out
}
