package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS trails (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		max_group_size INTEGER NOT NULL CHECK (max_group_size > 0),
		active         BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS guides (
		id     TEXT PRIMARY KEY,
		name   TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS guide_trails (
		guide_id TEXT NOT NULL REFERENCES guides(id) ON DELETE CASCADE,
		trail_id TEXT NOT NULL REFERENCES trails(id) ON DELETE CASCADE,
		PRIMARY KEY (guide_id, trail_id)
	)`,
	`CREATE TABLE IF NOT EXISTS trail_sessions (
		id               TEXT PRIMARY KEY,
		trail_id         TEXT NOT NULL REFERENCES trails(id),
		starts_at        TIMESTAMPTZ NOT NULL,
		capacity         INTEGER NOT NULL CHECK (capacity > 0),
		primary_guide_id TEXT REFERENCES guides(id),
		status           TEXT NOT NULL DEFAULT 'scheduled'
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                 TEXT PRIMARY KEY,
		protocol           TEXT NOT NULL,
		trail_id           TEXT NOT NULL REFERENCES trails(id),
		session_id         TEXT REFERENCES trail_sessions(id),
		guide_id           TEXT REFERENCES guides(id),
		participants_count INTEGER NOT NULL CHECK (participants_count >= 1),
		status             TEXT NOT NULL,
		contact_name       TEXT NOT NULL,
		contact_email      TEXT NOT NULL,
		contact_phone      TEXT NOT NULL,
		notes              TEXT,
		scheduled_for      TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		CONSTRAINT bookings_protocol_key UNIQUE (protocol)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_session_status ON bookings (session_id, status)`,
	`CREATE TABLE IF NOT EXISTS booking_participants (
		id          TEXT PRIMARY KEY,
		booking_id  TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL DEFAULT 0,
		full_name   TEXT NOT NULL,
		document_id TEXT,
		email       TEXT,
		phone       TEXT
	)`,
	`ALTER TABLE booking_participants ADD COLUMN IF NOT EXISTS position INTEGER NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS booking_audit_log (
		id           TEXT PRIMARY KEY,
		booking_id   TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		action       TEXT NOT NULL,
		actor_id     TEXT,
		payload      JSONB NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_unpublished ON booking_audit_log (created_at) WHERE published_at IS NULL`,
}

// EnsureSchema creates missing tables and indexes. Safe to run repeatedly.
func EnsureSchema(ctx context.Context, q Querier) error {
	for i, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// DemoCatalog is the small catalog used for local development
type DemoCatalog struct {
	Trails   []domain.Trail
	Guides   []domain.Guide
	Sessions []domain.TrailSession
}

// NewDemoCatalog builds the demo catalog with sessions scheduled relative to now
func NewDemoCatalog(now time.Time) DemoCatalog {
	ana := "guide-ana"
	return DemoCatalog{
		Trails: []domain.Trail{
			{ID: "trilha-do-pico", Name: "Trilha do Pico", MaxGroupSize: 15, Active: true},
			{ID: "cachoeira-azul", Name: "Cachoeira Azul", MaxGroupSize: 25, Active: true},
		},
		Guides: []domain.Guide{
			{ID: "guide-ana", Name: "Ana Ribeiro", Active: true, TrailIDs: []string{"trilha-do-pico"}},
			{ID: "guide-caio", Name: "Caio Mendes", Active: true, TrailIDs: []string{"cachoeira-azul"}},
		},
		Sessions: []domain.TrailSession{
			{ID: "pico-weekend", TrailID: "trilha-do-pico", StartsAt: now.Add(7 * 24 * time.Hour).UTC(),
				Capacity: 10, PrimaryGuideID: &ana, Status: domain.SessionStatusScheduled},
			{ID: "azul-morning", TrailID: "cachoeira-azul", StartsAt: now.Add(3 * 24 * time.Hour).UTC(),
				Capacity: 50, Status: domain.SessionStatusScheduled},
		},
	}
}

// SeedDemo inserts the demo catalog. Existing rows are kept.
func SeedDemo(ctx context.Context, q Querier, now time.Time) error {
	catalog := NewDemoCatalog(now)

	for _, t := range catalog.Trails {
		if _, err := q.Exec(ctx,
			`INSERT INTO trails (id, name, max_group_size, active) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Name, t.MaxGroupSize, t.Active,
		); err != nil {
			return fmt.Errorf("seed trail %s: %w", t.ID, err)
		}
	}

	for _, g := range catalog.Guides {
		if _, err := q.Exec(ctx,
			`INSERT INTO guides (id, name, active) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			g.ID, g.Name, g.Active,
		); err != nil {
			return fmt.Errorf("seed guide %s: %w", g.ID, err)
		}
		for _, trailID := range g.TrailIDs {
			if _, err := q.Exec(ctx,
				`INSERT INTO guide_trails (guide_id, trail_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				g.ID, trailID,
			); err != nil {
				return fmt.Errorf("seed guide roster %s: %w", g.ID, err)
			}
		}
	}

	for _, ts := range catalog.Sessions {
		if _, err := q.Exec(ctx,
			`INSERT INTO trail_sessions (id, trail_id, starts_at, capacity, primary_guide_id, status)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			ts.ID, ts.TrailID, ts.StartsAt, ts.Capacity, ts.PrimaryGuideID, string(ts.Status),
		); err != nil {
			return fmt.Errorf("seed session %s: %w", ts.ID, err)
		}
	}
	return nil
}

// SeedDemo loads the demo catalog into the memory store
func (s *MemoryStore) SeedDemo(now time.Time) {
	catalog := NewDemoCatalog(now)
	for _, t := range catalog.Trails {
		s.AddTrail(t)
	}
	for _, g := range catalog.Guides {
		s.AddGuide(g)
	}
	for _, ts := range catalog.Sessions {
		s.AddSession(ts)
	}
}
