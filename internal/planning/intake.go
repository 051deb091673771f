package planning

import (
	"context"
	"time"
)

// Candidate is one pending order item eligible for inclusion in a plan.
// It carries every input the prioritizer scores on, so scoring never runs
// against missing data.
type Candidate struct {
	OrderID     string
	OrderItemID string
	Operation   string
	Quantity    int
	OrderedAt   time.Time
	Prepaid     bool
	OrderValue  float64
	Rush        bool
}

// AgeDays returns the order's age in whole days relative to the plan's
// target date.
func (c Candidate) AgeDays(targetDate time.Time) int {
	if c.OrderedAt.After(targetDate) {
		return 0
	}
	return int(targetDate.Sub(c.OrderedAt).Hours() / 24)
}

// WorkIntake retrieves candidate work items eligible for a plan on the
// given target date. An empty result is not an error.
type WorkIntake interface {
	PendingItems(ctx context.Context, targetDate time.Time) ([]Candidate, error)
}
