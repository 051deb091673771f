package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/planning"
)

const (
	planTTL  = 24 * time.Hour
	statsTTL = time.Minute
)

func planKey(planID string) string { return "plan:snapshot:" + planID }

func statsKey(windowDays int) string {
	return fmt.Sprintf("stats:window:%d", windowDays)
}

// PlanCache keeps recent plan snapshots and statistics results in Redis for
// fast reads. Everything here is best-effort: Postgres stays the source of
// truth and a cache miss just falls through to it.
type PlanCache interface {
	SetPlan(ctx context.Context, plan *domain.Plan, tasks []domain.Task) error
	GetPlan(ctx context.Context, planID string) (*domain.PlanWithTasks, error)
	InvalidatePlan(ctx context.Context, planID string) error
	SetStatistics(ctx context.Context, stats planning.Statistics) error
	GetStatistics(ctx context.Context, windowDays int) (*planning.Statistics, error)
}

type planCache struct {
	client *redis.Client
}

// NewPlanCache creates a Redis-backed PlanCache.
func NewPlanCache(client *redis.Client) PlanCache {
	return &planCache{client: client}
}

// NewClient creates and returns a new Redis client.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}

func (c *planCache) SetPlan(ctx context.Context, plan *domain.Plan, tasks []domain.Task) error {
	data, err := json.Marshal(domain.PlanWithTasks{Plan: *plan, Tasks: tasks})
	if err != nil {
		return fmt.Errorf("marshal plan snapshot: %w", err)
	}
	if err := c.client.Set(ctx, planKey(plan.ID), data, planTTL).Err(); err != nil {
		return fmt.Errorf("redis set plan %s: %w", plan.ID, err)
	}
	return nil
}

func (c *planCache) GetPlan(ctx context.Context, planID string) (*domain.PlanWithTasks, error) {
	data, err := c.client.Get(ctx, planKey(planID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &domain.PlanNotFoundError{PlanID: planID}
		}
		return nil, fmt.Errorf("redis get plan %s: %w", planID, err)
	}
	var snapshot domain.PlanWithTasks
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal plan snapshot: %w", err)
	}
	return &snapshot, nil
}

func (c *planCache) InvalidatePlan(ctx context.Context, planID string) error {
	if err := c.client.Del(ctx, planKey(planID)).Err(); err != nil {
		return fmt.Errorf("redis del plan %s: %w", planID, err)
	}
	return nil
}

func (c *planCache) SetStatistics(ctx context.Context, stats planning.Statistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(stats.WindowDays), data, statsTTL).Err(); err != nil {
		return fmt.Errorf("redis set statistics: %w", err)
	}
	return nil
}

func (c *planCache) GetStatistics(ctx context.Context, windowDays int) (*planning.Statistics, error) {
	data, err := c.client.Get(ctx, statsKey(windowDays)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get statistics: %w", err)
	}
	var stats planning.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshal statistics: %w", err)
	}
	return &stats, nil
}
