package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	require.NoError(t, Init(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	t.Cleanup(func() { _ = Init(metricnoop.NewMeterProvider()) })
	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data map[string]metricdata.Aggregation, name string) int64 {
	t.Helper()
	agg, ok := data[name]
	require.True(t, ok, "metric %s not collected", name)
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordAdmissionOutcomes(t *testing.T) {
	reader := setupReader(t)
	ctx := context.Background()

	RecordAdmission(ctx, "trilha-do-pico", "pending", 3)
	RecordAdmission(ctx, "trilha-do-pico", "confirmed", 2)
	RecordRejection(ctx, "trilha-do-pico", "capacity_exceeded")
	RecordProtocolFallback(ctx, "ECO")
	RecordAdmissionDuration(ctx, "accepted", 0.02)
	RecordError(ctx, "database", "admit")

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data, "booking_admissions_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "booking_admission_rejections_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "booking_protocol_fallback_total"))
	assert.Equal(t, int64(1), sumOf(t, data, "booking_errors_total"))

	hist, ok := data["booking_admission_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestRecordAuditRelay(t *testing.T) {
	reader := setupReader(t)
	ctx := context.Background()

	RecordAuditRelay(ctx, 4, 0)
	RecordAuditRelay(ctx, 0, 1)
	RecordAuditRelay(ctx, 2, 1)

	data := collect(t, reader)
	assert.Equal(t, int64(6), sumOf(t, data, "booking_audit_relayed_total"))
	assert.Equal(t, int64(2), sumOf(t, data, "booking_audit_relay_failures_total"))
}

func TestRecord_BeforeInitIsSafe(t *testing.T) {
	saved := AdmissionsAccepted
	AdmissionsAccepted = nil
	t.Cleanup(func() { AdmissionsAccepted = saved })

	assert.NotPanics(t, func() {
		RecordAdmission(context.Background(), "trilha-do-pico", "pending", 1)
	})
}
