package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
)

const pgUniqueViolation = "23505"

// Querier is satisfied by *pgxpool.Pool and pgx.Tx
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	trails   *PostgresTrailRepository
	sessions *PostgresSessionRepository
	guides   *PostgresGuideRepository
	bookings *PostgresBookingRepository
	audit    *PostgresAuditRepository
}

// NewPostgresStore binds all repositories to one querier
func NewPostgresStore(q Querier) Store {
	return &postgresStore{
		trails:   &PostgresTrailRepository{q: q},
		sessions: &PostgresSessionRepository{q: q},
		guides:   &PostgresGuideRepository{q: q},
		bookings: &PostgresBookingRepository{q: q},
		audit:    &PostgresAuditRepository{q: q},
	}
}

func (s *postgresStore) Trails() TrailRepository     { return s.trails }
func (s *postgresStore) Sessions() SessionRepository { return s.sessions }
func (s *postgresStore) Guides() GuideRepository     { return s.guides }
func (s *postgresStore) Bookings() BookingRepository { return s.bookings }
func (s *postgresStore) Audit() AuditRepository      { return s.audit }

// PostgresTxManager runs admission work in a read-committed transaction.
// Row locks taken with SELECT ... FOR UPDATE serialize writers per session.
type PostgresTxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	store       Store
}

// NewPostgresTxManager creates a transaction manager. lockTimeout bounds how
// long a statement waits for a row lock; zero keeps the server default.
func NewPostgresTxManager(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresTxManager {
	return &PostgresTxManager{
		pool:        pool,
		lockTimeout: lockTimeout,
		store:       NewPostgresStore(pool),
	}
}

// Store returns pool-backed repositories
func (m *PostgresTxManager) Store() Store {
	return m.store
}

// WithinTx begins a transaction, runs fn and commits. Any error rolls back.
func (m *PostgresTxManager) WithinTx(ctx context.Context, fn TxFunc) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tx")
	defer span.End()

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if m.lockTimeout > 0 {
		// SET LOCAL does not accept bind parameters
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if err := fn(ctx, NewPostgresStore(tx)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
