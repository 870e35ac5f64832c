package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func collectInt64Sum(t *testing.T, reader sdkmetric.Reader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), &Config{Enabled: false, ServiceName: "trail-booking"})
	require.NoError(t, err)
	assert.NotNil(t, tel.Tracer())

	ctx, span := StartSpan(context.Background(), "test.span")
	defer span.End()
	assert.NotNil(t, ctx)

	// no-op provider never produces a trace id
	assert.Equal(t, "", GetTraceID(ctx))
	AddSpanEvent(ctx, "event")
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInit_NilConfig(t *testing.T) {
	tel, err := Init(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, tel)
}

func TestInit_EnabledInstallsMeterProvider(t *testing.T) {
	t.Cleanup(func() {
		globalTelemetry = nil
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})

	reader := sdkmetric.NewManualReader()
	tel, err := Init(context.Background(), &Config{
		Enabled:       true,
		ServiceName:   "trail-booking",
		CollectorAddr: "localhost:4317",
		MetricReader:  reader,
	})
	require.NoError(t, err)

	_, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, ok, "global meter provider should be the SDK provider")
	assert.Same(t, tel.meterProvider, tel.MeterProvider())

	counter, err := NewCounter(MetricOpts{Name: "bookings_seen_total", Unit: "1"})
	require.NoError(t, err)
	counter.Inc(context.Background())
	counter.Add(context.Background(), 2)

	assert.Equal(t, int64(3), collectInt64Sum(t, reader, "bookings_seen_total"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, Shutdown(ctx))
}

func TestMetrics_ExplicitProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	counter, err := NewCounter(MetricOpts{Name: "seats_total", Unit: "1", Provider: provider})
	require.NoError(t, err)
	counter.Inc(context.Background(), attribute.String("trail_id", "pico"))
	counter.Inc(context.Background(), attribute.String("trail_id", "cachoeira"))

	hist, err := NewHistogramWithBuckets(MetricOpts{Name: "wait_seconds", Unit: "s", Provider: provider}, []float64{0.1, 1})
	require.NoError(t, err)
	hist.Record(context.Background(), 0.5)
	hist.Record(context.Background(), 2)

	assert.Equal(t, int64(2), collectInt64Sum(t, reader, "seats_total"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "wait_seconds" {
				continue
			}
			h, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, h.DataPoints, 1)
			assert.Equal(t, uint64(2), h.DataPoints[0].Count)
			assert.Equal(t, []uint64{0, 1, 1}, h.DataPoints[0].BucketCounts)
			found = true
		}
	}
	assert.True(t, found)
}

func TestMeterProvider_NilTelemetryFallsBackToGlobal(t *testing.T) {
	var tel *Telemetry
	assert.NotNil(t, tel.MeterProvider())
}

func TestTracingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TracingMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
