package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
)

// MemoryStore implements TxManager using in-memory storage.
// This is useful for testing and development. Session locks are exclusive
// per session id and held until the transaction ends, the same way a row
// lock behaves in PostgreSQL.
type MemoryStore struct {
	mu         sync.RWMutex
	trails     map[string]*domain.Trail
	sessions   map[string]*domain.TrailSession
	guides     map[string]*domain.Guide
	bookings   map[string]*domain.Booking
	byProtocol map[string]string   // protocol -> bookingID
	bySession  map[string][]string // sessionID -> []bookingID
	audit      []*domain.AuditEntry

	locksMu      sync.Mutex
	sessionLocks map[string]chan struct{}
	lockTimeout  time.Duration
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trails:       make(map[string]*domain.Trail),
		sessions:     make(map[string]*domain.TrailSession),
		guides:       make(map[string]*domain.Guide),
		bookings:     make(map[string]*domain.Booking),
		byProtocol:   make(map[string]string),
		bySession:    make(map[string][]string),
		sessionLocks: make(map[string]chan struct{}),
	}
}

// SetLockTimeout bounds how long LockByID waits. Zero waits until ctx is done.
func (s *MemoryStore) SetLockTimeout(d time.Duration) {
	s.lockTimeout = d
}

// AddTrail seeds a trail
func (s *MemoryStore) AddTrail(t domain.Trail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trails[t.ID] = &t
}

// AddSession seeds a session
func (s *MemoryStore) AddSession(ts domain.TrailSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ts.ID] = &ts
}

// AddGuide seeds a guide
func (s *MemoryStore) AddGuide(g domain.Guide) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.TrailIDs = append([]string(nil), g.TrailIDs...)
	s.guides[g.ID] = &g
}

// AddBooking seeds an existing booking, bypassing admission
func (s *MemoryStore) AddBooking(b domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putBooking(&b)
}

// BookingCount returns the number of committed bookings
func (s *MemoryStore) BookingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

// AuditCount returns the number of committed audit entries
func (s *MemoryStore) AuditCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audit)
}

func (s *MemoryStore) putBooking(b *domain.Booking) {
	cp := cloneBooking(b)
	s.bookings[cp.ID] = cp
	s.byProtocol[cp.Protocol] = cp.ID
	if cp.SessionID != nil {
		s.bySession[*cp.SessionID] = append(s.bySession[*cp.SessionID], cp.ID)
	}
}

// Store returns an autocommit view. LockByID on it does not lock.
func (s *MemoryStore) Store() Store {
	return &memoryTx{store: s, autocommit: true}
}

// WithinTx runs fn against a staged view and applies its writes on success
func (s *MemoryStore) WithinTx(ctx context.Context, fn TxFunc) error {
	tx := &memoryTx{store: s, held: make(map[string]chan struct{})}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *MemoryStore) lockFor(sessionID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.sessionLocks[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.sessionLocks[sessionID] = ch
	}
	return ch
}

// memoryTx is one unit of work over a MemoryStore
type memoryTx struct {
	store      *MemoryStore
	autocommit bool
	held       map[string]chan struct{}
	bookings   []*domain.Booking
	audit      []*domain.AuditEntry
}

func (t *memoryTx) Trails() TrailRepository     { return (*memoryTrails)(t) }
func (t *memoryTx) Sessions() SessionRepository { return (*memorySessions)(t) }
func (t *memoryTx) Guides() GuideRepository     { return (*memoryGuides)(t) }
func (t *memoryTx) Bookings() BookingRepository { return (*memoryBookings)(t) }
func (t *memoryTx) Audit() AuditRepository      { return (*memoryAudit)(t) }

func (t *memoryTx) release() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

func (t *memoryTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range t.bookings {
		if _, taken := s.byProtocol[b.Protocol]; taken {
			return fmt.Errorf("%w: %s", domain.ErrProtocolConflict, b.Protocol)
		}
	}
	for _, b := range t.bookings {
		s.putBooking(b)
	}
	s.audit = append(s.audit, t.audit...)
	t.bookings = nil
	t.audit = nil
	return nil
}

type memoryTrails memoryTx

func (r *memoryTrails) GetByID(ctx context.Context, id string) (*domain.Trail, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trails[id]
	if !ok {
		return nil, domain.ErrTrailNotFound
	}
	cp := *t
	return &cp, nil
}

type memorySessions memoryTx

func (r *memorySessions) GetByID(ctx context.Context, id string) (*domain.TrailSession, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *ts
	return &cp, nil
}

func (r *memorySessions) LockByID(ctx context.Context, id string) (*domain.TrailSession, error) {
	ts, err := r.GetByID(ctx, id)
	if err != nil || r.autocommit {
		return ts, err
	}
	if _, ok := r.held[id]; ok {
		return ts, nil
	}

	waitCtx := ctx
	if r.store.lockTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.store.lockTimeout)
		defer cancel()
	}

	ch := r.store.lockFor(id)
	select {
	case ch <- struct{}{}:
		r.held[id] = ch
	case <-waitCtx.Done():
		return nil, fmt.Errorf("failed to lock session %s: %w", id, waitCtx.Err())
	}

	// Re-read so the caller sees state as of lock acquisition
	return r.GetByID(ctx, id)
}

type memoryGuides memoryTx

func (r *memoryGuides) GetByID(ctx context.Context, id string) (*domain.Guide, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guides[id]
	if !ok {
		return nil, domain.ErrGuideNotFound
	}
	cp := *g
	cp.TrailIDs = append([]string(nil), g.TrailIDs...)
	return &cp, nil
}

type memoryBookings memoryTx

func (r *memoryBookings) ListSeatClaims(ctx context.Context, sessionID string) ([]domain.SeatClaim, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var claims []domain.SeatClaim
	add := func(b *domain.Booking) {
		if b.SessionID == nil || *b.SessionID != sessionID || !b.Status.OccupiesSeats() {
			return
		}
		claims = append(claims, domain.SeatClaim{
			BookingID:         b.ID,
			ParticipantsCount: b.ParticipantsCount,
			Status:            b.Status,
		})
	}
	for _, id := range s.bySession[sessionID] {
		add(s.bookings[id])
	}
	for _, b := range r.bookings {
		add(b)
	}
	return claims, nil
}

func (r *memoryBookings) ProtocolExists(ctx context.Context, protocol string) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.protocolTaken(protocol), nil
}

// protocolTaken must be called with the store lock held
func (r *memoryBookings) protocolTaken(protocol string) bool {
	if _, ok := r.store.byProtocol[protocol]; ok {
		return true
	}
	for _, b := range r.bookings {
		if b.Protocol == protocol {
			return true
		}
	}
	return false
}

func (r *memoryBookings) Create(ctx context.Context, b *domain.Booking) error {
	s := r.store
	if r.autocommit {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r.protocolTaken(b.Protocol) {
			return fmt.Errorf("%w: %s", domain.ErrProtocolConflict, b.Protocol)
		}
		s.putBooking(b)
		return nil
	}

	s.mu.RLock()
	taken := r.protocolTaken(b.Protocol)
	s.mu.RUnlock()
	if taken {
		return fmt.Errorf("%w: %s", domain.ErrProtocolConflict, b.Protocol)
	}
	r.bookings = append(r.bookings, cloneBooking(b))
	return nil
}

func (r *memoryBookings) GetByProtocol(ctx context.Context, protocol string) (*domain.Booking, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range r.bookings {
		if b.Protocol == protocol {
			return cloneBooking(b), nil
		}
	}
	id, ok := s.byProtocol[protocol]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(s.bookings[id]), nil
}

type memoryAudit memoryTx

func (r *memoryAudit) Append(ctx context.Context, e *domain.AuditEntry) error {
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	if r.autocommit {
		r.store.mu.Lock()
		r.store.audit = append(r.store.audit, &cp)
		r.store.mu.Unlock()
		return nil
	}
	r.audit = append(r.audit, &cp)
	return nil
}

func (r *memoryAudit) ListUnpublished(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AuditEntry
	for _, e := range s.audit {
		if e.PublishedAt != nil {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryAudit) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, e := range s.audit {
		if _, ok := want[e.ID]; ok {
			ts := at
			e.PublishedAt = &ts
		}
	}
	return nil
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	cp := *b
	cp.Participants = append([]domain.Participant(nil), b.Participants...)
	return &cp
}
