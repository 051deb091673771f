package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/postgres"
	redisstore "github.com/ramiqadoumi/go-prodplan/internal/redis"
	"github.com/ramiqadoumi/go-prodplan/pkg/telemetry"
)

const autoPlanCheckInterval = time.Minute

// AutoPlanner fires recurring plan-creation schedules with Redis leader
// election, so a fleet of planner instances creates each scheduled plan
// exactly once.
type AutoPlanner struct {
	planner   *Planner
	schedules postgres.ScheduleStore
	lock      *redisstore.LeaderLock
	logger    *slog.Logger
}

func NewAutoPlanner(planner *Planner, schedules postgres.ScheduleStore, lock *redisstore.LeaderLock, logger *slog.Logger) *AutoPlanner {
	return &AutoPlanner{
		planner:   planner,
		schedules: schedules,
		lock:      lock,
		logger:    logger,
	}
}

// Run is the main polling loop: tries to become leader, then fires due
// schedules. Blocks until ctx is cancelled.
func (a *AutoPlanner) Run(ctx context.Context) {
	ticker := time.NewTicker(autoPlanCheckInterval)
	defer ticker.Stop()

	// Run once immediately before waiting for the first tick.
	a.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			if err := a.lock.Release(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("leader release", slog.String("error", err.Error()))
			}
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *AutoPlanner) tick(ctx context.Context) {
	leader, err := a.lock.AcquireOrRenew(ctx)
	if err != nil {
		a.logger.Error("leader election", slog.String("error", err.Error()))
		return
	}
	if !leader {
		return
	}
	if err := a.processDueSchedules(ctx); err != nil {
		a.logger.Error("processDueSchedules", slog.String("error", err.Error()))
	}
}

func (a *AutoPlanner) processDueSchedules(ctx context.Context) error {
	now := a.planner.now().UTC()
	due, err := a.schedules.ListDueSchedules(ctx, now)
	if err != nil {
		return err
	}
	for _, sc := range due {
		if err := a.runSchedule(ctx, sc, now); err != nil {
			telemetry.AutoPlanErrors.Inc()
			a.logger.Error("runSchedule failed",
				slog.String("schedule", sc.Name),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// runSchedule creates the next day's plan for one schedule and advances
// its next_run_at. A plan that already exists for that date and shift is
// not an error: another path created it first and the schedule just moves
// on.
func (a *AutoPlanner) runSchedule(ctx context.Context, sc postgres.PlanSchedule, now time.Time) error {
	planDate := now.AddDate(0, 0, 1).Truncate(24 * time.Hour)

	result, err := a.planner.CreatePlan(ctx, CreatePlanRequest{
		PlanDate:       planDate,
		Shift:          sc.Shift,
		AvailableHours: sc.AvailableHours,
		WorkersCount:   sc.WorkersCount,
		Capacity:       sc.Capacity,
	})
	var exists *domain.PlanExistsError
	switch {
	case errors.As(err, &exists):
		a.logger.Info("plan already exists, skipping",
			slog.String("schedule", sc.Name),
			slog.Time("plan_date", planDate),
			slog.String("shift", string(sc.Shift)),
		)
	case err != nil:
		return fmt.Errorf("create plan for schedule %q: %w", sc.Name, err)
	default:
		telemetry.AutoPlansCreated.Inc()
		a.logger.Info("auto plan created",
			slog.String("schedule", sc.Name),
			slog.String("plan_id", result.Plan.ID),
			slog.Int("scheduled", len(result.Tasks)),
			slog.Int("unscheduled", len(result.Unscheduled)),
		)
	}

	schedule, err := cron.ParseStandard(sc.CronExpr)
	if err != nil {
		return fmt.Errorf("parse cron %q for schedule %q: %w", sc.CronExpr, sc.Name, err)
	}
	nextRun := schedule.Next(now)

	if err := a.schedules.MarkScheduleRun(ctx, sc.ID, now, nextRun); err != nil {
		return fmt.Errorf("advance schedule %q: %w", sc.Name, err)
	}
	return nil
}
