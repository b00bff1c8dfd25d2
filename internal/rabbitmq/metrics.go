package rabbitmq

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Publish outcomes used as the "outcome" metric attribute.
const (
	OutcomeSuccess      = "success"
	OutcomeBackpressure = "backpressure"
	OutcomeError        = "error"
)

type Metrics struct {
	publishLatency metric.Float64Histogram
	publishTotal   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.publishLatency, err = meter.Float64Histogram(
		"rabbitmq_publish_latency_seconds",
		metric.WithDescription("Time spent handing an event to the broker"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rabbitmq_publish_latency histogram: %w", err)
	}

	m.publishTotal, err = meter.Int64Counter(
		"rabbitmq_published_events_total",
		metric.WithDescription("Events handed to the broker by routing key and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rabbitmq_published_events counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordPublish(ctx context.Context, routingKey, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("routing_key", routingKey),
		attribute.String("outcome", outcome),
	)
	m.publishLatency.Record(ctx, durationSeconds, attrs)
	m.publishTotal.Add(ctx, 1, attrs)
}
