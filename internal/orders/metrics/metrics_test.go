package metrics

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, record func(m *Metrics)) map[string]metricdata.Aggregation {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	record(metrics)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestRecordOrderCreated(t *testing.T) {
	ctx := context.Background()
	data := collect(t, func(m *Metrics) {
		m.RecordOrderCreated(ctx, true, 1.5)
		m.RecordOrderCreated(ctx, false, 2.3)
	})

	sum, ok := data["orders_created_total"].(metricdata.Sum[int64])
	if !ok {
		t.Fatal("orders_created_total missing or not Sum[int64]")
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("Expected 2 data points, got %d", len(sum.DataPoints))
	}

	histogram, ok := data["order_creation_duration_seconds"].(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("order_creation_duration_seconds missing or not Histogram[float64]")
	}
	if len(histogram.DataPoints) != 1 || histogram.DataPoints[0].Count != 2 {
		t.Errorf("Expected a single data point with count 2, got %+v", histogram.DataPoints)
	}
}

func TestRecordStatusUpdated(t *testing.T) {
	ctx := context.Background()
	data := collect(t, func(m *Metrics) {
		m.RecordStatusUpdated(ctx, "ready", true)
		m.RecordStatusUpdated(ctx, "ready", true)
		m.RecordStatusUpdated(ctx, "cancelled", false)
	})

	sum, ok := data["order_status_updates_total"].(metricdata.Sum[int64])
	if !ok {
		t.Fatal("order_status_updates_total missing or not Sum[int64]")
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if len(sum.DataPoints) != 2 || total != 3 {
		t.Errorf("Expected 2 series totalling 3, got %d series totalling %d", len(sum.DataPoints), total)
	}
}
