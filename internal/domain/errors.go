package domain

import (
	"fmt"
	"time"
)

// PlanExistsError is returned when a plan for (date, shift) already exists.
type PlanExistsError struct {
	PlanDate time.Time
	Shift    Shift
}

func (e *PlanExistsError) Error() string {
	return fmt.Sprintf("plan already exists for %s %s", e.PlanDate.Format("2006-01-02"), e.Shift)
}

// PlanNotFoundError is returned when a plan ID does not exist.
type PlanNotFoundError struct {
	PlanID string
}

func (e *PlanNotFoundError) Error() string {
	return fmt.Sprintf("plan not found: %s", e.PlanID)
}

// TaskNotFoundError is returned when a task ID does not exist.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// InvalidTransitionError is returned when a lifecycle operation is attempted
// from an incompatible state, e.g. completing a CANCELLED task.
type InvalidTransitionError struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}

// PlanStateError is returned when a plan-level operation conflicts with the
// plan's current state, e.g. deleting a plan with tasks in progress.
type PlanStateError struct {
	PlanID string
	Reason string
}

func (e *PlanStateError) Error() string {
	return fmt.Sprintf("plan %s: %s", e.PlanID, e.Reason)
}

// ValidationError is returned for malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CollaboratorError wraps a failure of an external collaborator (time
// estimator, work intake). Never swallowed: plan creation aborts with
// nothing persisted.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
