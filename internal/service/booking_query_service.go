package service

import (
	"context"
	"strings"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/dto"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BookingQueryService serves read-only booking lookups
type BookingQueryService interface {
	// GetByProtocol retrieves a booking by its protocol code
	GetByProtocol(ctx context.Context, protocol string) (*dto.BookingResponse, error)

	// GetAvailability reports seat usage of a session using the ledger rule
	GetAvailability(ctx context.Context, sessionID string) (*dto.AvailabilityResponse, error)
}

type bookingQueryService struct {
	store  repository.Store
	ledger *CapacityLedger
}

// NewBookingQueryService creates a new booking query service
func NewBookingQueryService(store repository.Store, ledger *CapacityLedger) BookingQueryService {
	return &bookingQueryService{store: store, ledger: ledger}
}

func (s *bookingQueryService) GetByProtocol(ctx context.Context, protocol string) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_by_protocol")
	defer span.End()

	protocol = strings.ToUpper(strings.TrimSpace(protocol))
	if protocol == "" {
		return nil, domain.ErrBookingNotFound
	}
	span.SetAttributes(attribute.String("protocol", protocol))

	b, err := s.store.Bookings().GetByProtocol(ctx, protocol)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return dto.FromDomain(b), nil
}

// GetAvailability reads without the session lock; the answer is advisory
func (s *bookingQueryService) GetAvailability(ctx context.Context, sessionID string) (*dto.AvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get_availability")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	seats, err := s.ledger.Seats(ctx, s.store.Bookings(), session)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &dto.AvailabilityResponse{
		SessionID: session.ID,
		TrailID:   session.TrailID,
		StartsAt:  session.StartsAt,
		Status:    string(session.Status),
		Capacity:  seats.Capacity,
		Occupied:  seats.Occupied,
		Remaining: seats.Remaining,
	}, nil
}
