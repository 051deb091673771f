package domain

import "time"

// Priority is the scheduling tier assigned by the prioritizer.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank maps a priority to a sortable weight. Higher schedules first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid reports whether p is one of the known priority tiers.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// TaskStatus represents the states a task can be in.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
	TaskOnHold     TaskStatus = "ON_HOLD"
)

// IsTerminal returns true if no further task transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// OnTimeTolerance is the multiplier over the estimate within which a
// completed task still counts as on time.
const OnTimeTolerance = 1.2

// Task is one order-item's worth of production work scheduled within a plan.
// A task never outlives its plan.
type Task struct {
	ID          string   `json:"id"`
	PlanID      string   `json:"plan_id"`
	OrderID     string   `json:"order_id"`
	OrderItemID string   `json:"order_item_id"`
	Operation   string   `json:"operation"`
	Quantity    int      `json:"quantity"`
	Priority    Priority `json:"priority"`
	Sequence    int      `json:"sequence"`
	// EstimatedSeconds is supplied by the time estimator at creation.
	EstimatedSeconds int64      `json:"estimated_seconds"`
	ActualSeconds    *int64     `json:"actual_seconds,omitempty"`
	Status           TaskStatus `json:"status"`
	AssignedTo       string     `json:"assigned_to,omitempty"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Issues           string     `json:"issues,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OnTime reports whether a completed task finished within the tolerance
// band of its estimate. Tasks without a recorded actual time never count.
func (t *Task) OnTime() bool {
	if t.Status != TaskCompleted || t.ActualSeconds == nil {
		return false
	}
	return float64(*t.ActualSeconds) <= float64(t.EstimatedSeconds)*OnTimeTolerance
}
