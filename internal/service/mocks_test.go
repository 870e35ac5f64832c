package service

import (
	"context"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/repository"
)

var testNow = time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func strPtr(s string) *string { return &s }

// MockBookingRepository is a mock implementation of BookingRepository
type MockBookingRepository struct {
	ListSeatClaimsFunc func(ctx context.Context, sessionID string) ([]domain.SeatClaim, error)
	ProtocolExistsFunc func(ctx context.Context, protocol string) (bool, error)
	CreateFunc         func(ctx context.Context, booking *domain.Booking) error
	GetByProtocolFunc  func(ctx context.Context, protocol string) (*domain.Booking, error)
}

func (m *MockBookingRepository) ListSeatClaims(ctx context.Context, sessionID string) ([]domain.SeatClaim, error) {
	if m.ListSeatClaimsFunc != nil {
		return m.ListSeatClaimsFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *MockBookingRepository) ProtocolExists(ctx context.Context, protocol string) (bool, error) {
	if m.ProtocolExistsFunc != nil {
		return m.ProtocolExistsFunc(ctx, protocol)
	}
	return false, nil
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, booking)
	}
	return nil
}

func (m *MockBookingRepository) GetByProtocol(ctx context.Context, protocol string) (*domain.Booking, error) {
	if m.GetByProtocolFunc != nil {
		return m.GetByProtocolFunc(ctx, protocol)
	}
	return nil, domain.ErrBookingNotFound
}

// MockGuideRepository is a mock implementation of GuideRepository
type MockGuideRepository struct {
	guides map[string]*domain.Guide
	err    error
	calls  int
}

func (m *MockGuideRepository) GetByID(ctx context.Context, id string) (*domain.Guide, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.guides[id]
	if !ok {
		return nil, domain.ErrGuideNotFound
	}
	return g, nil
}

// failingAuditTxManager runs transactions on a MemoryStore but fails every audit append
type failingAuditTxManager struct {
	*repository.MemoryStore
	err error
}

func (f failingAuditTxManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return f.MemoryStore.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		return fn(ctx, failingAuditStore{Store: st, err: f.err})
	})
}

type failingAuditStore struct {
	repository.Store
	err error
}

func (s failingAuditStore) Audit() repository.AuditRepository {
	return failingAudit{AuditRepository: s.Store.Audit(), err: s.err}
}

type failingAudit struct {
	repository.AuditRepository
	err error
}

func (a failingAudit) Append(ctx context.Context, e *domain.AuditEntry) error {
	return a.err
}
