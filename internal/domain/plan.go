package domain

import "time"

// Shift names a work window with its own hour budget.
type Shift string

const (
	ShiftDay     Shift = "DAY"
	ShiftNight   Shift = "NIGHT"
	ShiftFullDay Shift = "FULL_DAY"
)

// Valid reports whether s is one of the known shifts.
func (s Shift) Valid() bool {
	return s == ShiftDay || s == ShiftNight || s == ShiftFullDay
}

// StartHour returns the local hour-of-day at which the shift begins.
// Used to anchor estimated completion timestamps.
func (s Shift) StartHour() int {
	if s == ShiftNight {
		return 20
	}
	return 8
}

// PlanStatus represents the states a plan can be in.
type PlanStatus string

const (
	PlanDraft      PlanStatus = "DRAFT"
	PlanConfirmed  PlanStatus = "CONFIRMED"
	PlanInProgress PlanStatus = "IN_PROGRESS"
	PlanCompleted  PlanStatus = "COMPLETED"
	PlanCancelled  PlanStatus = "CANCELLED"
)

// IsTerminal returns true if no further plan transitions are possible.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanCompleted || s == PlanCancelled
}

// Plan is one date+shift worth of scheduled production capacity.
// (PlanDate, Shift) is unique across all plans.
type Plan struct {
	ID             string     `json:"id"`
	PlanDate       time.Time  `json:"plan_date"`
	Shift          Shift      `json:"shift"`
	AvailableHours float64    `json:"available_hours"`
	WorkersCount   int        `json:"workers_count"`
	Capacity       *int       `json:"capacity,omitempty"`
	Status         PlanStatus `json:"status"`
	PlannedItems   int        `json:"planned_items"`
	CompletedItems int        `json:"completed_items"`
	Efficiency     float64    `json:"efficiency"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AvailableSeconds is the plan's time budget in seconds.
func (p *Plan) AvailableSeconds() int64 {
	return int64(p.AvailableHours * 3600)
}

// StartTime is the wall-clock moment the shift begins on the plan date.
func (p *Plan) StartTime() time.Time {
	d := p.PlanDate
	return time.Date(d.Year(), d.Month(), d.Day(), p.Shift.StartHour(), 0, 0, 0, d.Location())
}

// PlanWithTasks bundles a plan with its owned tasks for aggregation reads.
type PlanWithTasks struct {
	Plan  Plan   `json:"plan"`
	Tasks []Task `json:"tasks"`
}
