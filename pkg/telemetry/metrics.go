package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ecotrail/trail-booking"

// MetricOpts describes an instrument
type MetricOpts struct {
	Name        string
	Description string
	Unit        string

	// Provider defaults to the global meter provider
	Provider metric.MeterProvider
}

func (o MetricOpts) meter() metric.Meter {
	if o.Provider != nil {
		return o.Provider.Meter(meterName)
	}
	return otel.Meter(meterName)
}

// Counter is a monotonically increasing int64 instrument
type Counter struct {
	c metric.Int64Counter
}

// NewCounter registers a counter on the configured meter provider
func NewCounter(opts MetricOpts) (*Counter, error) {
	c, err := opts.meter().Int64Counter(opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{c: c}, nil
}

// Inc adds one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Add adds n
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Histogram records float64 observations
type Histogram struct {
	h metric.Float64Histogram
}

// NewHistogramWithBuckets registers a histogram with explicit bucket boundaries
func NewHistogramWithBuckets(opts MetricOpts, buckets []float64) (*Histogram, error) {
	h, err := opts.meter().Float64Histogram(opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, err
	}
	return &Histogram{h: h}, nil
}

// Record records a single observation
func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs...))
}
