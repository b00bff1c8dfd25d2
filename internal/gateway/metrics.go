package gateway

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	upstreamRequests metric.Int64Counter
	upstreamLatency  metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.upstreamRequests, err = meter.Int64Counter(
		"gateway_upstream_requests_total",
		metric.WithDescription("Requests forwarded to backends by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gateway_upstream_requests counter: %w", err)
	}

	m.upstreamLatency, err = meter.Float64Histogram(
		"gateway_upstream_duration_seconds",
		metric.WithDescription("Round trip time of forwarded requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gateway_upstream_duration histogram: %w", err)
	}

	return m, nil
}

// RecordForward is a no-op on a nil *Metrics.
func (m *Metrics) RecordForward(ctx context.Context, service, route, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("route", route),
		attribute.String("outcome", outcome),
	)
	m.upstreamRequests.Add(ctx, 1, attrs)
	m.upstreamLatency.Record(ctx, durationSeconds, attrs)
}
