package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresAuditRepository stores audit entries in booking_audit_log
type PostgresAuditRepository struct {
	q Querier
}

// Append inserts an audit entry
func (r *PostgresAuditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.audit.append")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", e.BookingID), attribute.String("action", string(e.Action)))

	_, err := r.q.Exec(ctx, `
		INSERT INTO booking_audit_log (id, booking_id, action, actor_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.BookingID, string(e.Action), e.ActorID, []byte(e.Payload), e.CreatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListUnpublished returns the oldest entries with published_at unset
func (r *PostgresAuditRepository) ListUnpublished(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, booking_id, action, actor_id, payload, created_at
		FROM booking_audit_log
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpublished audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			action  string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.BookingID, &action, &e.ActorID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = domain.AuditAction(action)
		e.Payload = payload
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps published_at on the given entries
func (r *PostgresAuditRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `UPDATE booking_audit_log SET published_at = $2 WHERE id = ANY($1)`, ids, at); err != nil {
		return fmt.Errorf("failed to mark audit entries published: %w", err)
	}
	return nil
}
