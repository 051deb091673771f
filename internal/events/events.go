// Package events publishes plan and task lifecycle events to Kafka so
// downstream consumers (dashboards, notifiers) can react without polling
// the planning store.
package events

import (
	"time"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

// Topic is the single stream all planning events are published to,
// keyed by plan ID so per-plan ordering is preserved.
const Topic = "plans.events"

// Kind names a lifecycle event.
type Kind string

const (
	PlanCreated   Kind = "plan.created"
	PlanConfirmed Kind = "plan.confirmed"
	PlanCancelled Kind = "plan.cancelled"
	PlanDeleted   Kind = "plan.deleted"
	TaskStarted   Kind = "task.started"
	TaskCompleted Kind = "task.completed"
	TaskHeld      Kind = "task.held"
	TaskCancelled Kind = "task.cancelled"
)

// Envelope is the JSON wire format on the events topic.
type Envelope struct {
	Event  Kind         `json:"event"`
	PlanID string       `json:"plan_id"`
	TaskID string       `json:"task_id,omitempty"`
	Status string       `json:"status,omitempty"`
	At     time.Time    `json:"at"`
	Plan   *domain.Plan `json:"plan,omitempty"`
	Task   *domain.Task `json:"task,omitempty"`
}
