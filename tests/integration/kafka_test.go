//go:build integration

package integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-prodplan/internal/domain"
	"github.com/ramiqadoumi/go-prodplan/internal/events"
)

func TestKafka_PublishConsume_RoundTrip(t *testing.T) {
	createTopic(t, events.Topic)

	producer := events.NewProducer(testKafkaBrokers)
	t.Cleanup(func() { producer.Close() }) //nolint:errcheck

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	consumer := events.NewConsumer(testKafkaBrokers, "test-group", logger)
	t.Cleanup(func() { consumer.Close() }) //nolint:errcheck

	plan := makePlan(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), domain.ShiftDay)
	env := events.Envelope{
		Event:  events.PlanCreated,
		PlanID: plan.ID,
		Plan:   plan,
		At:     time.Now().UTC(),
	}
	require.NoError(t, producer.Publish(context.Background(), env))

	received := make(chan events.Envelope, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	go func() {
		_ = consumer.Subscribe(ctx, func(_ context.Context, got events.Envelope) error {
			received <- got
			cancel()
			return nil
		})
	}()

	select {
	case got := <-received:
		assert.Equal(t, events.PlanCreated, got.Event)
		assert.Equal(t, plan.ID, got.PlanID)
		require.NotNil(t, got.Plan)
		assert.Equal(t, domain.ShiftDay, got.Plan.Shift)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestKafka_PerPlanOrdering(t *testing.T) {
	createTopic(t, events.Topic)

	producer := events.NewProducer(testKafkaBrokers)
	t.Cleanup(func() { producer.Close() }) //nolint:errcheck

	planID := "plan-order-test"
	kinds := []events.Kind{events.PlanCreated, events.PlanConfirmed, events.PlanCancelled}
	for _, k := range kinds {
		require.NoError(t, producer.Publish(context.Background(), events.Envelope{
			Event:  k,
			PlanID: planID,
			At:     time.Now().UTC(),
		}))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	consumer := events.NewConsumer(testKafkaBrokers, "test-order-group", logger)
	t.Cleanup(func() { consumer.Close() }) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var got []events.Kind
	done := make(chan struct{})
	go func() {
		_ = consumer.Subscribe(ctx, func(_ context.Context, env events.Envelope) error {
			if env.PlanID != planID {
				return nil
			}
			got = append(got, env.Event)
			if len(got) == len(kinds) {
				close(done)
				cancel()
			}
			return nil
		})
	}()

	select {
	case <-done:
		assert.Equal(t, kinds, got)
	case <-ctx.Done():
		t.Fatalf("timed out, received %d of %d events", len(got), len(kinds))
	}
}
