package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

const uniqueViolation = "23505"

// SequenceUpdate assigns a new schedule position to one task.
type SequenceUpdate struct {
	TaskID   string `json:"task_id"`
	Sequence int    `json:"sequence"`
}

// PlanStore abstracts all database access for plans and tasks.
//
// Task transition methods execute a single conditional UPDATE guarded by the
// allowed precursor states, so two racing callers serialize at the database:
// exactly one sees the row, the other gets InvalidTransitionError.
type PlanStore interface {
	CreatePlanWithTasks(ctx context.Context, plan *domain.Plan, tasks []domain.Task) error
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)
	ListPlans(ctx context.Context, from, to time.Time, shift *domain.Shift) ([]domain.Plan, error)
	ListPlansWithTasks(ctx context.Context, from, to time.Time) ([]domain.PlanWithTasks, error)
	UpdatePlanStatus(ctx context.Context, id string, to domain.PlanStatus, allowedFrom ...domain.PlanStatus) (*domain.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	GetTask(ctx context.Context, id string) (*domain.Task, error)
	GetTasksForPlan(ctx context.Context, planID string) ([]domain.Task, error)
	StartTask(ctx context.Context, id, operator string, now time.Time) (*domain.Task, error)
	CompleteTask(ctx context.Context, id string, actualSeconds *int64, notes, issues string, now time.Time) (*domain.Task, *domain.Plan, error)
	HoldTask(ctx context.Context, id string, now time.Time) (*domain.Task, error)
	CancelTask(ctx context.Context, id string, now time.Time) (*domain.Task, error)
	UpdateTaskPriority(ctx context.Context, id string, priority domain.Priority, now time.Time) (*domain.Task, error)
	ReorderTasks(ctx context.Context, planID string, updates []SequenceUpdate, now time.Time) error
}

type store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a pgxpool with the PlanStore interface.
func NewStore(pool *pgxpool.Pool) PlanStore {
	return &store{pool: pool}
}

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// CreatePlanWithTasks persists a plan and its scheduled tasks in one
// transaction. The (plan_date, shift) unique constraint resolves creation
// races: the losing insert maps to PlanExistsError and nothing is persisted.
func (s *store) CreatePlanWithTasks(ctx context.Context, plan *domain.Plan, tasks []domain.Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create plan: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO plans
			(id, plan_date, shift, available_hours, workers_count, capacity,
			 status, planned_items, completed_items, efficiency, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		plan.ID, plan.PlanDate, string(plan.Shift), plan.AvailableHours,
		plan.WorkersCount, plan.Capacity, string(plan.Status),
		plan.PlannedItems, plan.CompletedItems, plan.Efficiency,
		plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.PlanExistsError{PlanDate: plan.PlanDate, Shift: plan.Shift}
		}
		return fmt.Errorf("insert plan %s: %w", plan.ID, err)
	}

	for i := range tasks {
		t := &tasks[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO tasks
				(id, plan_id, order_id, order_item_id, operation, quantity,
				 priority, sequence, estimated_seconds, status, created_at, updated_at)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			t.ID, t.PlanID, t.OrderID, t.OrderItemID, t.Operation, t.Quantity,
			string(t.Priority), t.Sequence, t.EstimatedSeconds, string(t.Status),
			t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create plan: %w", err)
	}
	return nil
}

const planColumns = `id, plan_date, shift, available_hours, workers_count, capacity,
	status, planned_items, completed_items, efficiency, created_at, updated_at`

func (s *store) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	return scanPlan(row, id)
}

func (s *store) ListPlans(ctx context.Context, from, to time.Time, shift *domain.Shift) ([]domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE plan_date >= $1 AND plan_date <= $2`
	args := []any{from, to}
	if shift != nil {
		query += ` AND shift = $3`
		args = append(args, string(*shift))
	}
	query += ` ORDER BY plan_date, shift`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows, "")
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (s *store) ListPlansWithTasks(ctx context.Context, from, to time.Time) ([]domain.PlanWithTasks, error) {
	plans, err := s.ListPlans(ctx, from, to, nil)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlanWithTasks, 0, len(plans))
	for _, p := range plans {
		tasks, err := s.GetTasksForPlan(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PlanWithTasks{Plan: p, Tasks: tasks})
	}
	return out, nil
}

func (s *store) UpdatePlanStatus(ctx context.Context, id string, to domain.PlanStatus, allowedFrom ...domain.PlanStatus) (*domain.Plan, error) {
	from := make([]string, len(allowedFrom))
	for i, st := range allowedFrom {
		from[i] = string(st)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE plans
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
		RETURNING `+planColumns,
		string(to), id, from,
	)
	plan, err := scanPlan(row, id)
	if err == nil {
		return plan, nil
	}
	var notFound *domain.PlanNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}
	// Row either missing or in a disallowed state; look again to tell them apart.
	current, getErr := s.GetPlan(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &domain.PlanStateError{
		PlanID: id,
		Reason: fmt.Sprintf("cannot move from %s to %s", current.Status, to),
	}
}

// DeletePlan removes a plan and its tasks. Rejected while any task is
// IN_PROGRESS; the plan row is locked first so a concurrent start cannot
// slip between the check and the delete.
func (s *store) DeletePlan(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete plan: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var planID string
	err = tx.QueryRow(ctx, `SELECT id FROM plans WHERE id = $1 FOR UPDATE`, id).Scan(&planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.PlanNotFoundError{PlanID: id}
		}
		return fmt.Errorf("lock plan %s: %w", id, err)
	}

	var inProgress int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE plan_id = $1 AND status = $2`,
		id, string(domain.TaskInProgress),
	).Scan(&inProgress)
	if err != nil {
		return fmt.Errorf("count in-progress tasks for plan %s: %w", id, err)
	}
	if inProgress > 0 {
		return &domain.PlanStateError{
			PlanID: id,
			Reason: fmt.Sprintf("%d task(s) in progress; cannot delete", inProgress),
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete plan: %w", err)
	}
	return nil
}

const taskColumns = `id, plan_id, order_id, order_item_id, operation, quantity,
	priority, sequence, estimated_seconds, actual_seconds, status,
	assigned_to, assigned_at, started_at, completed_at, notes, issues,
	created_at, updated_at`

func (s *store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row, id)
}

func (s *store) GetTasksForPlan(ctx context.Context, planID string) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE plan_id = $1 ORDER BY sequence`, planID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows, "")
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *store) StartTask(ctx context.Context, id, operator string, now time.Time) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = $1,
		    started_at = $2,
		    assigned_to = CASE WHEN $3 <> '' THEN $3 ELSE assigned_to END,
		    assigned_at = CASE WHEN $3 <> '' THEN $2 ELSE assigned_at END,
		    updated_at = $2
		WHERE id = $4 AND status = ANY($5)
		RETURNING `+taskColumns,
		string(domain.TaskInProgress), now, operator, id,
		[]string{string(domain.TaskPending), string(domain.TaskOnHold)},
	)
	return s.scanTransition(ctx, row, id, domain.TaskInProgress)
}

// CompleteTask moves IN_PROGRESS -> COMPLETED and recomputes the owning
// plan's completed_items and efficiency in the same transaction. When the
// caller supplies no actual time it is derived from started_at.
func (s *store) CompleteTask(ctx context.Context, id string, actualSeconds *int64, notes, issues string, now time.Time) (*domain.Task, *domain.Plan, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin complete task: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE tasks
		SET status = $1,
		    completed_at = $2,
		    actual_seconds = COALESCE($3,
		        GREATEST(0, EXTRACT(EPOCH FROM ($2::timestamptz - started_at))::bigint)),
		    notes = CASE WHEN $4 <> '' THEN $4 ELSE notes END,
		    issues = CASE WHEN $5 <> '' THEN $5 ELSE issues END,
		    updated_at = $2
		WHERE id = $6 AND status = $7
		RETURNING `+taskColumns,
		string(domain.TaskCompleted), now, actualSeconds, notes, issues,
		id, string(domain.TaskInProgress),
	)
	task, err := scanTask(row, id)
	if err != nil {
		var notFound *domain.TaskNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, err
		}
		current, getErr := s.GetTask(ctx, id)
		if getErr != nil {
			return nil, nil, getErr
		}
		return nil, nil, &domain.InvalidTransitionError{TaskID: id, From: current.Status, To: domain.TaskCompleted}
	}

	planRow := tx.QueryRow(ctx, `
		UPDATE plans p
		SET completed_items = done.n,
		    efficiency = CASE WHEN p.planned_items > 0
		        THEN done.n::double precision / p.planned_items * 100 ELSE 0 END,
		    status = CASE WHEN p.planned_items > 0 AND done.n = p.planned_items
		        AND p.status NOT IN ($3, $4) THEN $5 ELSE p.status END,
		    updated_at = $2
		FROM (
		    SELECT COUNT(*) AS n FROM tasks
		    WHERE plan_id = $1 AND status = $6
		) done
		WHERE p.id = $1
		RETURNING `+planColumns,
		task.PlanID, now,
		string(domain.PlanCancelled), string(domain.PlanCompleted), string(domain.PlanCompleted),
		string(domain.TaskCompleted),
	)
	plan, err := scanPlan(planRow, task.PlanID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit complete task: %w", err)
	}
	return task, plan, nil
}

func (s *store) HoldTask(ctx context.Context, id string, now time.Time) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
		RETURNING `+taskColumns,
		string(domain.TaskOnHold), now, id,
		[]string{string(domain.TaskPending), string(domain.TaskInProgress)},
	)
	return s.scanTransition(ctx, row, id, domain.TaskOnHold)
}

func (s *store) CancelTask(ctx context.Context, id string, now time.Time) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
		RETURNING `+taskColumns,
		string(domain.TaskCancelled), now, id,
		[]string{string(domain.TaskPending), string(domain.TaskInProgress), string(domain.TaskOnHold)},
	)
	return s.scanTransition(ctx, row, id, domain.TaskCancelled)
}

func (s *store) UpdateTaskPriority(ctx context.Context, id string, priority domain.Priority, now time.Time) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET priority = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
		RETURNING `+taskColumns,
		string(priority), now, id,
		[]string{string(domain.TaskPending), string(domain.TaskInProgress), string(domain.TaskOnHold)},
	)
	task, err := scanTask(row, id)
	if err == nil {
		return task, nil
	}
	var notFound *domain.TaskNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}
	current, getErr := s.GetTask(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &domain.InvalidTransitionError{TaskID: id, From: current.Status, To: current.Status}
}

// ReorderTasks rewrites sequences in bulk inside one transaction. The
// caller keeps sequences unique and contiguous; the deferred unique
// constraint only checks at commit so swaps need no scratch values.
// COMPLETED tasks are immovable.
func (s *store) ReorderTasks(ctx context.Context, planID string, updates []SequenceUpdate, now time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, u := range updates {
		tag, err := tx.Exec(ctx, `
			UPDATE tasks
			SET sequence = $1, updated_at = $2
			WHERE id = $3 AND plan_id = $4 AND status <> $5
		`, u.Sequence, now, u.TaskID, planID, string(domain.TaskCompleted))
		if err != nil {
			return fmt.Errorf("reorder task %s: %w", u.TaskID, err)
		}
		if tag.RowsAffected() == 0 {
			current, getErr := s.GetTask(ctx, u.TaskID)
			if getErr != nil {
				return getErr
			}
			if current.PlanID != planID {
				return &domain.ValidationError{Field: "task_id", Reason: fmt.Sprintf("task %s belongs to another plan", u.TaskID)}
			}
			return &domain.InvalidTransitionError{TaskID: u.TaskID, From: current.Status, To: current.Status}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		// The deferred unique constraint fires here when the caller supplied
		// colliding sequences.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.ValidationError{Field: "sequence", Reason: "duplicate sequence within plan"}
		}
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// scanTransition interprets a conditional-update result: a missing row means
// either the task does not exist or its current state forbids the move.
func (s *store) scanTransition(ctx context.Context, row pgx.Row, id string, to domain.TaskStatus) (*domain.Task, error) {
	task, err := scanTask(row, id)
	if err == nil {
		return task, nil
	}
	var notFound *domain.TaskNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}
	current, getErr := s.GetTask(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &domain.InvalidTransitionError{TaskID: id, From: current.Status, To: to}
}

func scanPlan(row pgx.Row, id string) (*domain.Plan, error) {
	var p domain.Plan
	var shift, status string
	err := row.Scan(
		&p.ID, &p.PlanDate, &shift, &p.AvailableHours, &p.WorkersCount,
		&p.Capacity, &status, &p.PlannedItems, &p.CompletedItems,
		&p.Efficiency, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.PlanNotFoundError{PlanID: id}
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	p.Shift = domain.Shift(shift)
	p.Status = domain.PlanStatus(status)
	return &p, nil
}

func scanTask(row pgx.Row, id string) (*domain.Task, error) {
	var t domain.Task
	var priority, status string
	err := row.Scan(
		&t.ID, &t.PlanID, &t.OrderID, &t.OrderItemID, &t.Operation, &t.Quantity,
		&priority, &t.Sequence, &t.EstimatedSeconds, &t.ActualSeconds, &status,
		&t.AssignedTo, &t.AssignedAt, &t.StartedAt, &t.CompletedAt,
		&t.Notes, &t.Issues, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.TaskNotFoundError{TaskID: id}
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.TaskStatus(status)
	return &t, nil
}
