package service

import (
	"context"
	"fmt"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/repository"
)

// Seats is a snapshot of session occupancy
type Seats struct {
	Capacity  int
	Occupied  int
	Remaining int
}

// CapacityLedger derives session occupancy from persisted bookings.
// Results are only stable when read inside the transaction holding the
// session lock.
type CapacityLedger struct{}

// NewCapacityLedger creates a capacity ledger
func NewCapacityLedger() *CapacityLedger {
	return &CapacityLedger{}
}

// Occupied sums participants over bookings that still hold seats
func (l *CapacityLedger) Occupied(ctx context.Context, bookings repository.BookingRepository, sessionID string) (int, error) {
	claims, err := bookings.ListSeatClaims(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	occupied := 0
	for _, c := range claims {
		if c.Status.OccupiesSeats() {
			occupied += c.ParticipantsCount
		}
	}
	return occupied, nil
}

// Seats returns the current occupancy snapshot of a session
func (l *CapacityLedger) Seats(ctx context.Context, bookings repository.BookingRepository, session *domain.TrailSession) (Seats, error) {
	occupied, err := l.Occupied(ctx, bookings, session.ID)
	if err != nil {
		return Seats{}, err
	}
	remaining := session.Capacity - occupied
	if remaining < 0 {
		remaining = 0
	}
	return Seats{Capacity: session.Capacity, Occupied: occupied, Remaining: remaining}, nil
}

// Admit checks whether n more seats fit. Filling the session exactly is allowed.
func (l *CapacityLedger) Admit(ctx context.Context, bookings repository.BookingRepository, session *domain.TrailSession, n int) (Seats, error) {
	seats, err := l.Seats(ctx, bookings, session)
	if err != nil {
		return Seats{}, err
	}
	if !Admissible(seats.Occupied, n, seats.Capacity) {
		return seats, fmt.Errorf("%w: %d seats remaining, %d requested", domain.ErrCapacityExceeded, seats.Remaining, n)
	}
	return seats, nil
}

// Admissible is the admission rule: all n seats or none
func Admissible(occupied, n, capacity int) bool {
	return n > 0 && occupied+n <= capacity
}
