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

// PostgresTrailRepository reads trails
type PostgresTrailRepository struct {
	q Querier
}

// GetByID retrieves a trail by ID
func (r *PostgresTrailRepository) GetByID(ctx context.Context, id string) (*domain.Trail, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.trail.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("trail_id", id))

	var t domain.Trail
	err := r.q.QueryRow(ctx, `
		SELECT id, name, max_group_size, active
		FROM trails
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.MaxGroupSize, &t.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrailNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get trail: %w", err)
	}

	return &t, nil
}

// PostgresSessionRepository reads trail sessions
type PostgresSessionRepository struct {
	q Querier
}

const sessionColumns = `id, trail_id, starts_at, capacity, primary_guide_id, status`

// GetByID retrieves a session without locking it
func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*domain.TrailSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id))

	s, err := scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM trail_sessions WHERE id = $1`, id))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return s, err
}

// LockByID selects the session FOR UPDATE. Must be called inside a transaction.
func (r *PostgresSessionRepository) LockByID(ctx context.Context, id string) (*domain.TrailSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.lock")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id))

	s, err := scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM trail_sessions WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return s, err
}

func scanSession(row pgx.Row) (*domain.TrailSession, error) {
	var (
		s      domain.TrailSession
		status string
	)
	err := row.Scan(&s.ID, &s.TrailID, &s.StartsAt, &s.Capacity, &s.PrimaryGuideID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	return &s, nil
}

// PostgresGuideRepository reads guides and their trail roster
type PostgresGuideRepository struct {
	q Querier
}

// GetByID retrieves a guide with the trails they may lead
func (r *PostgresGuideRepository) GetByID(ctx context.Context, id string) (*domain.Guide, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.guide.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("guide_id", id))

	var g domain.Guide
	err := r.q.QueryRow(ctx, `
		SELECT g.id, g.name, g.active,
		       COALESCE(array_agg(gt.trail_id) FILTER (WHERE gt.trail_id IS NOT NULL), '{}')
		FROM guides g
		LEFT JOIN guide_trails gt ON gt.guide_id = g.id
		WHERE g.id = $1
		GROUP BY g.id
	`, id).Scan(&g.ID, &g.Name, &g.Active, &g.TrailIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGuideNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get guide: %w", err)
	}

	return &g, nil
}
