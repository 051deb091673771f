package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Producer publishes planning events to Kafka.
type Producer interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

type producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer connected to the given brokers.
// Messages are keyed by plan ID so all events for one plan land on the
// same partition, in order.
func NewProducer(brokers []string) Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &producer{writer: w}
}

func (p *producer) Publish(ctx context.Context, env Envelope) error {
	if env.At.IsZero() {
		env.At = time.Now().UTC()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", env.Event, err)
	}

	// Carry the active trace context in message headers so consumers can
	// continue the trace.
	carrier := make(headerCarrier, 0, 2)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(env.PlanID),
		Value:   value,
		Headers: carrier,
		Time:    env.At,
	})
	if err != nil {
		return fmt.Errorf("publish %s for plan %s: %w", env.Event, env.PlanID, err)
	}
	return nil
}

func (p *producer) Close() error {
	return p.writer.Close()
}
