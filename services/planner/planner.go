// Package planner orchestrates plan creation, the task lifecycle and
// rolling statistics on top of the planning core and the plan store.
package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/events"
	"github.com/ramiqadoumi/go-prodplan/internal/planning"
	"github.com/ramiqadoumi/go-prodplan/internal/postgres"
	redisstore "github.com/ramiqadoumi/go-prodplan/internal/redis"
	"github.com/ramiqadoumi/go-prodplan/pkg/retry"
	"github.com/ramiqadoumi/go-prodplan/pkg/telemetry"
)

// IDGenerator supplies identifiers for new plans and tasks. Injected so
// tests can produce deterministic IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the production IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.New().String() }

// Sampler records observed per-unit durations so future estimates learn
// from actuals. Implemented by postgres.HistoricalEstimator.
type Sampler interface {
	RecordSample(ctx context.Context, operation string, unitSeconds float64, recordedAt time.Time) error
}

// Planner is the production planning engine's public surface. All
// operations are synchronous: each call completes before returning and
// concurrent callers are serialized at the store.
type Planner struct {
	store    postgres.PlanStore
	intake   planning.WorkIntake
	factory  *planning.TaskFactory
	cache    redisstore.PlanCache // nil disables caching
	producer events.Producer      // nil disables eventing
	sampler  Sampler              // nil disables estimation feedback
	ids      IDGenerator
	now      func() time.Time
	retryCfg retry.Config
	logger   *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

func WithCache(c redisstore.PlanCache) Option { return func(p *Planner) { p.cache = c } }
func WithProducer(pr events.Producer) Option  { return func(p *Planner) { p.producer = pr } }
func WithSampler(s Sampler) Option            { return func(p *Planner) { p.sampler = s } }
func WithIDGenerator(g IDGenerator) Option    { return func(p *Planner) { p.ids = g } }
func WithClock(now func() time.Time) Option   { return func(p *Planner) { p.now = now } }
func WithLogger(l *slog.Logger) Option        { return func(p *Planner) { p.logger = l } }
func WithRetry(cfg retry.Config) Option       { return func(p *Planner) { p.retryCfg = cfg } }

// NewPlanner constructs the engine. Estimator calls made during plan
// creation are retried with the configured retry policy before being
// surfaced as collaborator failures.
func NewPlanner(store postgres.PlanStore, intake planning.WorkIntake, estimator planning.TimeEstimator, opts ...Option) *Planner {
	p := &Planner{
		store:    store,
		intake:   intake,
		ids:      UUIDGenerator{},
		now:      time.Now,
		retryCfg: retry.Config{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.factory = planning.NewTaskFactory(
		&retryingEstimator{inner: estimator, cfg: p.retryCfg},
		planning.DifficultyMedium,
	)
	return p
}

// retryingEstimator retries transient estimator failures before the
// factory gives up on the batch.
type retryingEstimator struct {
	inner planning.TimeEstimator
	cfg   retry.Config
}

func (r *retryingEstimator) Estimate(ctx context.Context, operation string, quantity int, difficulty planning.Difficulty) (planning.Estimate, error) {
	var est planning.Estimate
	err := retry.Do(ctx, r.cfg, func() error {
		var callErr error
		est, callErr = r.inner.Estimate(ctx, operation, quantity, difficulty)
		return callErr
	})
	return est, err
}

// CreatePlanRequest carries the constraints for one new plan.
type CreatePlanRequest struct {
	PlanDate       time.Time    `json:"plan_date"`
	Shift          domain.Shift `json:"shift"`
	AvailableHours float64      `json:"available_hours"`
	WorkersCount   int          `json:"workers_count"`
	Capacity       *int         `json:"capacity,omitempty"`
}

// CreatePlanResult is the outcome of plan creation. Unscheduled tasks are
// returned to the caller but never persisted.
type CreatePlanResult struct {
	Plan                *domain.Plan  `json:"plan"`
	Tasks               []domain.Task `json:"tasks"`
	Unscheduled         []domain.Task `json:"unscheduled"`
	Recommendations     []string      `json:"recommendations"`
	UtilizationPct      float64       `json:"utilization_pct"`
	EstimatedCompletion time.Time     `json:"estimated_completion"`
}

func (r CreatePlanRequest) validate() error {
	if r.PlanDate.IsZero() {
		return &domain.ValidationError{Field: "plan_date", Reason: "required"}
	}
	if !r.Shift.Valid() {
		return &domain.ValidationError{Field: "shift", Reason: "must be DAY, NIGHT or FULL_DAY"}
	}
	if r.AvailableHours <= 0 {
		return &domain.ValidationError{Field: "available_hours", Reason: "must be positive"}
	}
	if r.WorkersCount < 1 {
		return &domain.ValidationError{Field: "workers_count", Reason: "must be at least 1"}
	}
	if r.Capacity != nil && *r.Capacity < 1 {
		return &domain.ValidationError{Field: "capacity", Reason: "must be at least 1 when set"}
	}
	return nil
}

// CreatePlan runs the full pipeline: intake -> factory -> prioritizer ->
// scheduler -> store. The plan and its scheduled tasks are persisted as one
// unit; on any failure nothing is persisted. An empty backlog is not an
// error and yields an empty plan.
func (p *Planner) CreatePlan(ctx context.Context, req CreatePlanRequest) (*CreatePlanResult, error) {
	ctx, span := otel.Tracer("planner").Start(ctx, "planner.create_plan")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("plan.date", req.PlanDate.Format("2006-01-02")),
		attribute.String("plan.shift", string(req.Shift)),
	)

	var candidates []planning.Candidate
	err := retry.Do(ctx, p.retryCfg, func() error {
		var callErr error
		candidates, callErr = p.intake.PendingItems(ctx, req.PlanDate)
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "work intake failed")
		return nil, &domain.CollaboratorError{Collaborator: "work intake", Err: err}
	}

	drafts, err := p.factory.Build(ctx, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task factory failed")
		return nil, err
	}

	ordered := planning.Prioritize(drafts, req.PlanDate)

	now := p.now().UTC()
	plan := &domain.Plan{
		ID:             p.ids.NewID(),
		PlanDate:       req.PlanDate,
		Shift:          req.Shift,
		AvailableHours: req.AvailableHours,
		WorkersCount:   req.WorkersCount,
		Capacity:       req.Capacity,
		Status:         domain.PlanDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	schedule := planning.Pack(ordered, planning.Constraints{
		AvailableSeconds: plan.AvailableSeconds(),
		MaxItems:         req.Capacity,
		ShiftStart:       plan.StartTime(),
	})

	tasks := make([]domain.Task, len(schedule.Scheduled))
	for i, t := range schedule.Scheduled {
		t.ID = p.ids.NewID()
		t.PlanID = plan.ID
		t.CreatedAt = now
		t.UpdatedAt = now
		tasks[i] = t
	}
	plan.PlannedItems = len(tasks)

	if err := p.store.CreatePlanWithTasks(ctx, plan, tasks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist plan failed")
		return nil, err
	}

	telemetry.PlansCreated.WithLabelValues(string(plan.Shift)).Inc()
	telemetry.PlanUtilization.Observe(schedule.UtilizationPct)
	for _, t := range tasks {
		telemetry.TasksScheduled.WithLabelValues(string(t.Priority)).Inc()
	}
	for _, t := range schedule.Unscheduled {
		telemetry.TasksUnscheduled.WithLabelValues(string(t.Priority)).Inc()
	}

	p.cachePlan(ctx, plan, tasks)
	p.publish(ctx, events.Envelope{Event: events.PlanCreated, PlanID: plan.ID, Plan: plan, At: now})

	p.logger.Info("plan created",
		slog.String("plan_id", plan.ID),
		slog.String("shift", string(plan.Shift)),
		slog.Int("scheduled", len(tasks)),
		slog.Int("unscheduled", len(schedule.Unscheduled)),
		slog.Float64("utilization_pct", schedule.UtilizationPct),
	)

	return &CreatePlanResult{
		Plan:                plan,
		Tasks:               tasks,
		Unscheduled:         schedule.Unscheduled,
		Recommendations:     schedule.Recommendations,
		UtilizationPct:      schedule.UtilizationPct,
		EstimatedCompletion: schedule.EstimatedCompletion,
	}, nil
}

// GetPlan returns a plan and its tasks, serving from the Redis snapshot
// when present.
func (p *Planner) GetPlan(ctx context.Context, planID string) (*domain.PlanWithTasks, error) {
	if p.cache != nil {
		if snapshot, err := p.cache.GetPlan(ctx, planID); err == nil {
			return snapshot, nil
		}
	}
	plan, err := p.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	tasks, err := p.store.GetTasksForPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	p.cachePlan(ctx, plan, tasks)
	return &domain.PlanWithTasks{Plan: *plan, Tasks: tasks}, nil
}

// ListPlans returns plans in the date range, optionally filtered by shift.
func (p *Planner) ListPlans(ctx context.Context, from, to time.Time, shift *domain.Shift) ([]domain.Plan, error) {
	if to.Before(from) {
		return nil, &domain.ValidationError{Field: "to", Reason: "must not precede from"}
	}
	return p.store.ListPlans(ctx, from, to, shift)
}

// ConfirmPlan moves a DRAFT plan to CONFIRMED.
func (p *Planner) ConfirmPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	plan, err := p.store.UpdatePlanStatus(ctx, planID, domain.PlanConfirmed, domain.PlanDraft)
	if err != nil {
		return nil, err
	}
	p.invalidatePlan(ctx, planID)
	p.publish(ctx, events.Envelope{Event: events.PlanConfirmed, PlanID: planID, Plan: plan, At: p.now().UTC()})
	return plan, nil
}

// CancelPlan cancels a plan that has not finished.
func (p *Planner) CancelPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	plan, err := p.store.UpdatePlanStatus(ctx, planID, domain.PlanCancelled,
		domain.PlanDraft, domain.PlanConfirmed, domain.PlanInProgress)
	if err != nil {
		return nil, err
	}
	p.invalidatePlan(ctx, planID)
	p.publish(ctx, events.Envelope{Event: events.PlanCancelled, PlanID: planID, Plan: plan, At: p.now().UTC()})
	return plan, nil
}

// DeletePlan removes a plan and its tasks. Rejected while any task is
// IN_PROGRESS.
func (p *Planner) DeletePlan(ctx context.Context, planID string) error {
	if err := p.store.DeletePlan(ctx, planID); err != nil {
		return err
	}
	p.invalidatePlan(ctx, planID)
	p.publish(ctx, events.Envelope{Event: events.PlanDeleted, PlanID: planID, At: p.now().UTC()})
	return nil
}

// StartTask moves a PENDING or ON_HOLD task to IN_PROGRESS, optionally
// assigning an operator.
func (p *Planner) StartTask(ctx context.Context, taskID, operator string) (*domain.Task, error) {
	task, err := p.store.StartTask(ctx, taskID, operator, p.now().UTC())
	if err != nil {
		return nil, err
	}
	p.afterTransition(ctx, task, events.TaskStarted)
	return task, nil
}

// CompleteTask moves an IN_PROGRESS task to COMPLETED, records the actual
// time (derived from started_at when the caller omits it) and recomputes
// the owning plan's completed count and efficiency.
func (p *Planner) CompleteTask(ctx context.Context, taskID string, actualSeconds *int64, notes, issues string) (*domain.Task, error) {
	if actualSeconds != nil && *actualSeconds < 0 {
		return nil, &domain.ValidationError{Field: "actual_seconds", Reason: "must not be negative"}
	}
	now := p.now().UTC()
	task, plan, err := p.store.CompleteTask(ctx, taskID, actualSeconds, notes, issues, now)
	if err != nil {
		return nil, err
	}

	if task.ActualSeconds != nil {
		telemetry.TaskActualSeconds.Observe(float64(*task.ActualSeconds))
		p.recordSample(ctx, task, now)
	}
	p.afterTransition(ctx, task, events.TaskCompleted)

	p.logger.Info("task completed",
		slog.String("task_id", task.ID),
		slog.String("plan_id", task.PlanID),
		slog.Float64("plan_efficiency", plan.Efficiency),
	)
	return task, nil
}

// HoldTask parks a PENDING or IN_PROGRESS task.
func (p *Planner) HoldTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := p.store.HoldTask(ctx, taskID, p.now().UTC())
	if err != nil {
		return nil, err
	}
	p.afterTransition(ctx, task, events.TaskHeld)
	return task, nil
}

// CancelTask cancels any non-terminal task.
func (p *Planner) CancelTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := p.store.CancelTask(ctx, taskID, p.now().UTC())
	if err != nil {
		return nil, err
	}
	p.afterTransition(ctx, task, events.TaskCancelled)
	return task, nil
}

// UpdateTaskPriority rewrites a task's priority tier. Allowed any time
// before a terminal state.
func (p *Planner) UpdateTaskPriority(ctx context.Context, taskID string, priority domain.Priority) (*domain.Task, error) {
	if !priority.Valid() {
		return nil, &domain.ValidationError{Field: "priority", Reason: "must be LOW, MEDIUM, HIGH or URGENT"}
	}
	task, err := p.store.UpdateTaskPriority(ctx, taskID, priority, p.now().UTC())
	if err != nil {
		return nil, err
	}
	p.invalidatePlan(ctx, task.PlanID)
	return task, nil
}

// ReorderTasks rewrites schedule positions in bulk. The caller keeps
// sequences unique and contiguous; the engine does not auto-renumber.
func (p *Planner) ReorderTasks(ctx context.Context, planID string, updates []postgres.SequenceUpdate) error {
	if len(updates) == 0 {
		return &domain.ValidationError{Field: "updates", Reason: "must not be empty"}
	}
	for _, u := range updates {
		if u.Sequence < 1 {
			return &domain.ValidationError{Field: "sequence", Reason: "must be 1-based"}
		}
	}
	if err := p.store.ReorderTasks(ctx, planID, updates, p.now().UTC()); err != nil {
		return err
	}
	p.invalidatePlan(ctx, planID)
	return nil
}

// GetStatistics aggregates plans over the lookback window. Served from a
// short-lived Redis cache when possible; a stale read is acceptable.
func (p *Planner) GetStatistics(ctx context.Context, windowDays int) (*planning.Statistics, error) {
	if windowDays < 1 {
		return nil, &domain.ValidationError{Field: "window", Reason: "must be at least 1 day"}
	}
	if p.cache != nil {
		if cached, err := p.cache.GetStatistics(ctx, windowDays); err == nil && cached != nil {
			return cached, nil
		}
	}

	now := p.now().UTC()
	plans, err := p.store.ListPlansWithTasks(ctx, now.AddDate(0, 0, -windowDays), now)
	if err != nil {
		return nil, err
	}
	stats := planning.ComputeStatistics(plans, windowDays)

	if p.cache != nil {
		if err := p.cache.SetStatistics(ctx, stats); err != nil {
			p.logger.Warn("statistics cache write failed", slog.String("error", err.Error()))
		}
	}
	return &stats, nil
}

// afterTransition handles the best-effort side effects every task
// transition shares: metrics, cache invalidation and eventing.
func (p *Planner) afterTransition(ctx context.Context, task *domain.Task, kind events.Kind) {
	telemetry.TaskTransitions.WithLabelValues(string(task.Status)).Inc()
	p.invalidatePlan(ctx, task.PlanID)
	p.publish(ctx, events.Envelope{
		Event:  kind,
		PlanID: task.PlanID,
		TaskID: task.ID,
		Status: string(task.Status),
		Task:   task,
		At:     p.now().UTC(),
	})
}

func (p *Planner) recordSample(ctx context.Context, task *domain.Task, now time.Time) {
	if p.sampler == nil || task.Quantity < 1 {
		return
	}
	unit := float64(*task.ActualSeconds) / float64(task.Quantity)
	if err := p.sampler.RecordSample(ctx, task.Operation, unit, now); err != nil {
		p.logger.Warn("estimation sample write failed",
			slog.String("task_id", task.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Planner) cachePlan(ctx context.Context, plan *domain.Plan, tasks []domain.Task) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetPlan(ctx, plan, tasks); err != nil {
		p.logger.Warn("plan cache write failed",
			slog.String("plan_id", plan.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Planner) invalidatePlan(ctx context.Context, planID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.InvalidatePlan(ctx, planID); err != nil {
		p.logger.Warn("plan cache invalidation failed",
			slog.String("plan_id", planID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Planner) publish(ctx context.Context, env events.Envelope) {
	if p.producer == nil {
		return
	}
	if err := p.producer.Publish(ctx, env); err != nil {
		p.logger.Warn("event publish failed",
			slog.String("event", string(env.Event)),
			slog.String("plan_id", env.PlanID),
			slog.String("error", err.Error()),
		)
	}
}
