//go:build integration

package integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/events"
	"github.com/ramiqadoumi/go-prodplan/internal/postgres"
	redisstore "github.com/ramiqadoumi/go-prodplan/internal/redis"
	"github.com/ramiqadoumi/go-prodplan/services/planner"
)

// TestE2E_PlanLifecycle drives the full pipeline against real backends:
// backlog -> plan creation -> confirmation -> task completion -> statistics,
// with the Redis snapshot and Kafka events along for the ride.
func TestE2E_PlanLifecycle(t *testing.T) {
	createTopic(t, events.Topic)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testPostgresDSN)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "TRUNCATE tasks, plans, estimation_samples, plan_schedules, order_backlog CASCADE") //nolint:errcheck
		pool.Close()
	})

	redisClient := redisstore.NewClient(testRedisAddr)
	t.Cleanup(func() {
		redisClient.FlushAll(ctx) //nolint:errcheck
		redisClient.Close()
	})

	producer := events.NewProducer(testKafkaBrokers)
	t.Cleanup(func() { producer.Close() }) //nolint:errcheck

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store := postgres.NewStore(pool)
	estimator := postgres.NewHistoricalEstimator(pool)

	engine := planner.NewPlanner(store, postgres.NewOrderIntake(pool), estimator,
		planner.WithCache(redisstore.NewPlanCache(redisClient)),
		planner.WithProducer(producer),
		planner.WithSampler(estimator),
		planner.WithLogger(logger),
	)

	// Seed the backlog: a rush order and a plain one. The plan is dated
	// yesterday so it falls inside the statistics lookback window.
	target := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	seed := func(itemID string, rush bool) {
		_, err := pool.Exec(ctx, `
			INSERT INTO order_backlog (order_item_id, order_id, operation, quantity, ordered_at, prepaid, order_value, rush)
			VALUES ($1, 'order-e2e', 'ASSEMBLY', 4, $2, FALSE, 300, $3)
		`, itemID, target.AddDate(0, 0, -2), rush)
		require.NoError(t, err)
	}
	seed("item-rush", true)
	seed("item-plain", false)

	// Create the plan.
	result, err := engine.CreatePlan(ctx, planner.CreatePlanRequest{
		PlanDate:       target,
		Shift:          domain.ShiftDay,
		AvailableHours: 8,
		WorkersCount:   2,
	})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 2)
	assert.Empty(t, result.Unscheduled)
	// The rush order outranks the plain one.
	assert.Equal(t, "item-rush", result.Tasks[0].OrderItemID)

	// A second create for the same slot conflicts.
	_, err = engine.CreatePlan(ctx, planner.CreatePlanRequest{
		PlanDate:       target,
		Shift:          domain.ShiftDay,
		AvailableHours: 8,
		WorkersCount:   2,
	})
	var existsErr *domain.PlanExistsError
	require.ErrorAs(t, err, &existsErr)

	// Reads come back from the snapshot cache.
	snapshot, err := engine.GetPlan(ctx, result.Plan.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Tasks, 2)

	// Confirm and work through both tasks.
	plan, err := engine.ConfirmPlan(ctx, result.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanConfirmed, plan.Status)

	for _, task := range result.Tasks {
		_, err = engine.StartTask(ctx, task.ID, "operator-1")
		require.NoError(t, err)
		actual := int64(1200)
		_, err = engine.CompleteTask(ctx, task.ID, &actual, "", "")
		require.NoError(t, err)
	}

	final, err := engine.GetPlan(ctx, result.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanCompleted, final.Plan.Status)
	assert.Equal(t, 2, final.Plan.CompletedItems)
	assert.InDelta(t, 100.0, final.Plan.Efficiency, 0.001)

	// Completions fed the estimator: 1200s / 4 units = 300s per unit.
	var samples int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM estimation_samples WHERE operation = 'ASSEMBLY'`).Scan(&samples))
	assert.Equal(t, 2, samples)

	// Statistics cover the completed plan.
	stats, err := engine.GetStatistics(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPlans)
	assert.Equal(t, 1, stats.CompletedPlans)
	assert.Equal(t, 2, stats.CompletedTasks)
	assert.InDelta(t, 100.0, stats.AverageEfficiency, 0.001)
}
