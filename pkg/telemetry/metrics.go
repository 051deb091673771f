package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Planner ─────────────────────────────────────────────────────────────────

	PlansCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "planner",
		Name:      "plans_created_total",
		Help:      "Total plans created, labelled by shift.",
	}, []string{"shift"})

	TasksScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "planner",
		Name:      "tasks_scheduled_total",
		Help:      "Tasks packed into a plan at creation, labelled by priority.",
	}, []string{"priority"})

	TasksUnscheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "planner",
		Name:      "tasks_unscheduled_total",
		Help:      "Tasks that did not fit the shift budget, labelled by priority.",
	}, []string{"priority"})

	PlanUtilization = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prodplan",
		Subsystem: "planner",
		Name:      "plan_utilization_percent",
		Help:      "Capacity utilization of freshly created plans.",
		Buckets:   []float64{10, 25, 50, 70, 80, 90, 95, 100},
	})

	// ─── Task lifecycle ──────────────────────────────────────────────────────────

	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "lifecycle",
		Name:      "task_transitions_total",
		Help:      "Task state transitions, labelled by target state.",
	}, []string{"to"})

	TaskActualSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prodplan",
		Subsystem: "lifecycle",
		Name:      "task_actual_seconds",
		Help:      "Recorded actual task durations.",
		Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
	})

	// ─── Auto-planner ────────────────────────────────────────────────────────────

	AutoPlansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "autoplan",
		Name:      "plans_created_total",
		Help:      "Plans created by the cron-driven auto-planner.",
	})

	AutoPlanErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "autoplan",
		Name:      "errors_total",
		Help:      "Auto-planner schedule runs that failed.",
	})

	// ─── API ─────────────────────────────────────────────────────────────────────

	APIRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prodplan",
		Subsystem: "api",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the API rate limiter.",
	})
)
