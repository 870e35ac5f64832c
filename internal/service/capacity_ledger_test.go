package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissible(t *testing.T) {
	tests := []struct {
		name     string
		occupied int
		n        int
		capacity int
		want     bool
	}{
		{"empty session", 0, 1, 10, true},
		{"fills exactly", 8, 2, 10, true},
		{"one over", 9, 2, 10, false},
		{"already full", 10, 1, 10, false},
		{"zero seats requested", 0, 0, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Admissible(tt.occupied, tt.n, tt.capacity))
		})
	}
}

func TestCapacityLedger_OccupiedIgnoresCancelled(t *testing.T) {
	repo := &MockBookingRepository{
		ListSeatClaimsFunc: func(ctx context.Context, sessionID string) ([]domain.SeatClaim, error) {
			return []domain.SeatClaim{
				{BookingID: "a", ParticipantsCount: 3, Status: domain.BookingStatusPending},
				{BookingID: "b", ParticipantsCount: 2, Status: domain.BookingStatusConfirmed},
				{BookingID: "c", ParticipantsCount: 4, Status: domain.BookingStatusCancelled},
				{BookingID: "d", ParticipantsCount: 1, Status: domain.BookingStatusRescheduled},
			}, nil
		},
	}

	occupied, err := NewCapacityLedger().Occupied(context.Background(), repo, "s1")
	require.NoError(t, err)
	assert.Equal(t, 6, occupied)
}

func TestCapacityLedger_Admit(t *testing.T) {
	claims := func(n int) *MockBookingRepository {
		return &MockBookingRepository{
			ListSeatClaimsFunc: func(ctx context.Context, sessionID string) ([]domain.SeatClaim, error) {
				return []domain.SeatClaim{{ParticipantsCount: n, Status: domain.BookingStatusPending}}, nil
			},
		}
	}
	session := &domain.TrailSession{ID: "s1", Capacity: 10}
	ledger := NewCapacityLedger()

	t.Run("fills session exactly", func(t *testing.T) {
		seats, err := ledger.Admit(context.Background(), claims(8), session, 2)
		require.NoError(t, err)
		assert.Equal(t, 8, seats.Occupied)
		assert.Equal(t, 2, seats.Remaining)
	})

	t.Run("rejects overflow with conflict", func(t *testing.T) {
		_, err := ledger.Admit(context.Background(), claims(9), session, 2)
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		assert.True(t, domain.IsConflictError(err))
		assert.Contains(t, err.Error(), "1 seats remaining")
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		boom := errors.New("connection reset")
		repo := &MockBookingRepository{
			ListSeatClaimsFunc: func(ctx context.Context, sessionID string) ([]domain.SeatClaim, error) {
				return nil, boom
			},
		}
		_, err := ledger.Admit(context.Background(), repo, session, 1)
		assert.ErrorIs(t, err, boom)
		assert.False(t, domain.IsConflictError(err))
	})
}
