package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL
type PostgresBookingRepository struct {
	q Querier
}

// ListSeatClaims returns the seat claims of live bookings on a session.
// Callers that need a stable answer must hold the session lock.
func (r *PostgresBookingRepository) ListSeatClaims(ctx context.Context, sessionID string) ([]domain.SeatClaim, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_seat_claims")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	rows, err := r.q.Query(ctx, `
		SELECT id, participants_count, status
		FROM bookings
		WHERE session_id = $1 AND status <> $2
	`, sessionID, string(domain.BookingStatusCancelled))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list seat claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.SeatClaim
	for rows.Next() {
		var (
			c      domain.SeatClaim
			status string
		)
		if err := rows.Scan(&c.BookingID, &c.ParticipantsCount, &status); err != nil {
			return nil, fmt.Errorf("failed to scan seat claim: %w", err)
		}
		c.Status = domain.BookingStatus(status)
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seat claims: %w", err)
	}

	return claims, nil
}

// ProtocolExists checks the protocol namespace
func (r *PostgresBookingRepository) ProtocolExists(ctx context.Context, protocol string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE protocol = $1)`, protocol).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe protocol: %w", err)
	}
	return exists, nil
}

// Create inserts the booking row followed by its participants
func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking_id", b.ID),
		attribute.String("protocol", b.Protocol),
		attribute.Int("participants", b.ParticipantsCount),
	)

	_, err := r.q.Exec(ctx, `
		INSERT INTO bookings (
			id, protocol, trail_id, session_id, guide_id, participants_count, status,
			contact_name, contact_email, contact_phone, notes, scheduled_for, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		b.ID, b.Protocol, b.TrailID, b.SessionID, b.GuideID, b.ParticipantsCount, string(b.Status),
		b.ContactName, b.ContactEmail, b.ContactPhone, b.Notes, b.ScheduledFor, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrProtocolConflict, b.Protocol)
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	for i := range b.Participants {
		p := &b.Participants[i]
		_, err := r.q.Exec(ctx, `
			INSERT INTO booking_participants (id, booking_id, position, full_name, document_id, email, phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.ID, b.ID, i, p.FullName, p.DocumentID, p.Email, p.Phone)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to insert participant %d: %w", i, err)
		}
	}

	return nil
}

// GetByProtocol retrieves a booking with its participants
func (r *PostgresBookingRepository) GetByProtocol(ctx context.Context, protocol string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_protocol")
	defer span.End()
	span.SetAttributes(attribute.String("protocol", protocol))

	var (
		b      domain.Booking
		status string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, protocol, trail_id, session_id, guide_id, participants_count, status,
		       contact_name, contact_email, contact_phone, notes, scheduled_for, created_at, updated_at
		FROM bookings
		WHERE protocol = $1
	`, protocol).Scan(
		&b.ID, &b.Protocol, &b.TrailID, &b.SessionID, &b.GuideID, &b.ParticipantsCount, &status,
		&b.ContactName, &b.ContactEmail, &b.ContactPhone, &b.Notes, &b.ScheduledFor, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	b.Status = domain.BookingStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT id, booking_id, full_name, document_id, email, phone
		FROM booking_participants
		WHERE booking_id = $1
		ORDER BY position, id
	`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.BookingID, &p.FullName, &p.DocumentID, &p.Email, &p.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		b.Participants = append(b.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return &b, nil
}
