package repository

import (
	"context"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
)

// TrailRepository reads trails
type TrailRepository interface {
	// GetByID returns domain.ErrTrailNotFound when absent
	GetByID(ctx context.Context, id string) (*domain.Trail, error)
}

// SessionRepository reads trail sessions
type SessionRepository interface {
	// GetByID reads a session without locking
	GetByID(ctx context.Context, id string) (*domain.TrailSession, error)
	// LockByID reads a session and holds an exclusive lock on it until the
	// enclosing transaction ends. Concurrent callers on the same id block.
	LockByID(ctx context.Context, id string) (*domain.TrailSession, error)
}

// GuideRepository reads guides with their trail roster
type GuideRepository interface {
	// GetByID returns domain.ErrGuideNotFound when absent
	GetByID(ctx context.Context, id string) (*domain.Guide, error)
}

// BookingRepository persists bookings and their participants
type BookingRepository interface {
	// ListSeatClaims returns seat claims of non-cancelled bookings on a session
	ListSeatClaims(ctx context.Context, sessionID string) ([]domain.SeatClaim, error)
	// ProtocolExists reports whether any booking holds the code
	ProtocolExists(ctx context.Context, protocol string) (bool, error)
	// Create inserts the booking and its participants. A duplicate protocol
	// yields domain.ErrProtocolConflict.
	Create(ctx context.Context, booking *domain.Booking) error
	// GetByProtocol returns the booking with participants
	GetByProtocol(ctx context.Context, protocol string) (*domain.Booking, error)
}

// AuditRepository is the append-only audit log, doubling as an outbox
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	// ListUnpublished returns the oldest entries not yet relayed
	ListUnpublished(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// Store groups the repositories bound to one unit of work
type Store interface {
	Trails() TrailRepository
	Sessions() SessionRepository
	Guides() GuideRepository
	Bookings() BookingRepository
	Audit() AuditRepository
}

// TxFunc runs inside a transaction
type TxFunc func(ctx context.Context, store Store) error

// TxManager runs work atomically. If fn returns an error nothing it wrote
// is visible to anyone, and all locks are released.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	// Store returns repositories for non-transactional reads
	Store() Store
}
