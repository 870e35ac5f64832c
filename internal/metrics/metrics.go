package metrics

import (
	"context"

	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// Admission counters
	AdmissionsAccepted *telemetry.Counter
	AdmissionsRejected *telemetry.Counter
	ProtocolFallbacks  *telemetry.Counter

	// Audit relay counters
	AuditRelayed       *telemetry.Counter
	AuditRelayFailures *telemetry.Counter

	ErrorsTotal *telemetry.Counter

	// Histograms
	AdmissionDuration *telemetry.Histogram
)

// Init registers all booking metrics on provider. A nil provider uses the
// global one. Call it once at startup, before any Record function runs.
func Init(provider metric.MeterProvider) error {
	var err error

	AdmissionsAccepted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_admissions_total",
		Description: "Total number of bookings admitted",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	AdmissionsRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_admission_rejections_total",
		Description: "Total number of rejected admissions by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ProtocolFallbacks, err = telemetry.NewCounter(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_protocol_fallback_total",
		Description: "Protocol codes issued from the fallback suffix after all probes collided",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	AuditRelayed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_audit_relayed_total",
		Description: "Audit entries published to the message broker",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	AuditRelayFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_audit_relay_failures_total",
		Description: "Audit entries that failed to publish",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ErrorsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	AdmissionDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Provider:    provider,
		Name:        "booking_admission_duration_seconds",
		Description: "Time spent admitting a booking, lock wait included",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}) // 5ms to 10s
	if err != nil {
		return err
	}

	return nil
}

// RecordAdmission records an admitted booking
func RecordAdmission(ctx context.Context, trailID, status string, participants int) {
	if AdmissionsAccepted != nil {
		AdmissionsAccepted.Inc(ctx,
			attribute.String("trail_id", trailID),
			attribute.String("status", status),
			attribute.Int("participants", participants),
		)
	}
}

// RecordRejection records a rejected admission
func RecordRejection(ctx context.Context, trailID, reason string) {
	if AdmissionsRejected != nil {
		AdmissionsRejected.Inc(ctx,
			attribute.String("trail_id", trailID),
			attribute.String("reason", reason),
		)
	}
}

// RecordProtocolFallback records a protocol issued without a random probe
func RecordProtocolFallback(ctx context.Context, prefix string) {
	if ProtocolFallbacks != nil {
		ProtocolFallbacks.Inc(ctx, attribute.String("prefix", prefix))
	}
}

// RecordAdmissionDuration records how long one admission took
func RecordAdmissionDuration(ctx context.Context, outcome string, durationSeconds float64) {
	if AdmissionDuration != nil {
		AdmissionDuration.Record(ctx, durationSeconds, attribute.String("outcome", outcome))
	}
}

// RecordAuditRelay records the outcome of one relay batch
func RecordAuditRelay(ctx context.Context, published, failed int) {
	if AuditRelayed != nil && published > 0 {
		AuditRelayed.Add(ctx, int64(published))
	}
	if AuditRelayFailures != nil && failed > 0 {
		AuditRelayFailures.Add(ctx, int64(failed))
	}
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}
