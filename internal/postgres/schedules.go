package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
)

// PlanSchedule mirrors one row of the plan_schedules table: a recurring
// instruction to create a plan for a shift.
type PlanSchedule struct {
	ID             string
	Name           string
	CronExpr       string
	Shift          domain.Shift
	AvailableHours float64
	WorkersCount   int
	Capacity       *int
	Enabled        bool
	LastRunAt      *time.Time
	NextRunAt      *time.Time
}

// ScheduleStore reads and advances the auto-planner's recurring schedules.
type ScheduleStore interface {
	ListDueSchedules(ctx context.Context, now time.Time) ([]PlanSchedule, error)
	MarkScheduleRun(ctx context.Context, id string, lastRun, nextRun time.Time) error
}

type scheduleStore struct {
	pool *pgxpool.Pool
}

// NewScheduleStore wraps a pgxpool with the ScheduleStore interface.
func NewScheduleStore(pool *pgxpool.Pool) ScheduleStore {
	return &scheduleStore{pool: pool}
}

func (s *scheduleStore) ListDueSchedules(ctx context.Context, now time.Time) ([]PlanSchedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, cron_expr, shift, available_hours, workers_count,
		       capacity, enabled, last_run_at, next_run_at
		FROM plan_schedules
		WHERE enabled = TRUE AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY next_run_at ASC NULLS FIRST
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query plan_schedules: %w", err)
	}
	defer rows.Close()

	var schedules []PlanSchedule
	for rows.Next() {
		var sc PlanSchedule
		var shift string
		if err := rows.Scan(
			&sc.ID, &sc.Name, &sc.CronExpr, &shift, &sc.AvailableHours,
			&sc.WorkersCount, &sc.Capacity, &sc.Enabled, &sc.LastRunAt, &sc.NextRunAt,
		); err != nil {
			return nil, fmt.Errorf("scan plan_schedule: %w", err)
		}
		sc.Shift = domain.Shift(shift)
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

func (s *scheduleStore) MarkScheduleRun(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE plan_schedules
		SET last_run_at = $1, next_run_at = $2
		WHERE id = $3
	`, lastRun, nextRun, id); err != nil {
		return fmt.Errorf("update plan_schedule %s: %w", id, err)
	}
	return nil
}
