package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/dto"
	"github.com/ecotrail/trail-booking/internal/metrics"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// AdmissionService defines the interface for booking admission
type AdmissionService interface {
	// Admit validates the request, claims seats and persists the booking
	// with its participants and audit entry in one transaction
	Admit(ctx context.Context, req *dto.CreateBookingRequest, opts AdmitOptions) (*dto.BookingCreatedResponse, error)
}

// AdmitOptions carries caller context that is not part of the request body
type AdmitOptions struct {
	// Status defaults to pending. Only pending and confirmed are accepted.
	Status  domain.BookingStatus
	ActorID *string
}

// AdmissionServiceConfig contains configuration for the admission service
type AdmissionServiceConfig struct {
	DefaultTime    string
	Location       *time.Location
	RequestTimeout time.Duration
	Now            func() time.Time
}

// admissionService implements AdmissionService
type admissionService struct {
	txm            repository.TxManager
	ledger         *CapacityLedger
	guides         *GuideResolver
	issuer         *ProtocolIssuer
	defaultTime    string
	loc            *time.Location
	requestTimeout time.Duration
	now            func() time.Time
	log            *logger.Logger
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	txm repository.TxManager,
	ledger *CapacityLedger,
	guides *GuideResolver,
	issuer *ProtocolIssuer,
	cfg *AdmissionServiceConfig,
	log *logger.Logger,
) AdmissionService {
	s := &admissionService{
		txm:            txm,
		ledger:         ledger,
		guides:         guides,
		issuer:         issuer,
		defaultTime:    "08:00",
		loc:            time.UTC,
		requestTimeout: 10 * time.Second,
		now:            time.Now,
		log:            log,
	}
	if cfg != nil {
		if cfg.DefaultTime != "" {
			s.defaultTime = cfg.DefaultTime
		}
		if cfg.Location != nil {
			s.loc = cfg.Location
		}
		if cfg.RequestTimeout > 0 {
			s.requestTimeout = cfg.RequestTimeout
		}
		if cfg.Now != nil {
			s.now = cfg.Now
		}
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	return s
}

// admitted is what the transaction hands back once committed
type admitted struct {
	booking *domain.Booking
	trail   *domain.Trail
	guide   *domain.Guide
}

// Admit validates the request, claims seats and persists the booking
func (s *admissionService) Admit(ctx context.Context, req *dto.CreateBookingRequest, opts AdmitOptions) (*dto.BookingCreatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admission.admit")
	defer span.End()
	start := time.Now()

	if req == nil {
		return nil, domain.ErrMissingTrailID
	}
	req.Normalize()

	span.SetAttributes(
		attribute.String("trail_id", req.TrailID),
		attribute.Int("participants", req.ParticipantsCount),
	)
	if req.SessionID != nil {
		span.SetAttributes(attribute.String("session_id", *req.SessionID))
	}

	status, err := s.checkRequest(req, opts)
	if err != nil {
		s.reject(ctx, span, req.TrailID, err, start)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	var out admitted
	err = s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		res, err := s.admitTx(ctx, st, req, status, opts.ActorID)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		s.reject(ctx, span, req.TrailID, err, start)
		return nil, err
	}

	// Display fields come from committed data only
	b := out.booking
	local := b.ScheduledFor.In(s.loc)
	resp := &dto.BookingCreatedResponse{
		ID:            b.ID,
		Protocol:      b.Protocol,
		Status:        b.Status.String(),
		ScheduledFor:  b.ScheduledFor,
		ScheduledDate: local.Format(dateLayout),
		ScheduledTime: local.Format(timeLayout),
		ContactName:   b.ContactName,
		TrailName:     out.trail.Name,
	}
	if out.guide != nil {
		name := out.guide.Name
		resp.GuideName = &name
	}

	span.SetAttributes(attribute.String("booking_id", b.ID), attribute.String("protocol", b.Protocol))
	span.SetStatus(codes.Ok, "")
	metrics.RecordAdmission(ctx, b.TrailID, b.Status.String(), b.ParticipantsCount)
	metrics.RecordAdmissionDuration(ctx, "accepted", time.Since(start).Seconds())
	s.log.Info("booking admitted",
		zap.String("booking_id", b.ID),
		zap.String("protocol", b.Protocol),
		zap.String("trail_id", b.TrailID),
		zap.Int("participants", b.ParticipantsCount),
	)

	return resp, nil
}

// checkRequest validates what can be checked without storage
func (s *admissionService) checkRequest(req *dto.CreateBookingRequest, opts AdmitOptions) (domain.BookingStatus, error) {
	if req.TrailID == "" {
		return "", domain.ErrMissingTrailID
	}
	if req.ContactName == "" || req.ContactEmail == "" || req.ContactPhone == "" {
		return "", domain.ErrMissingContact
	}
	if req.ParticipantsCount < 1 {
		return "", fmt.Errorf("%w: %d", domain.ErrInvalidParticipants, req.ParticipantsCount)
	}
	if len(req.Participants) > req.ParticipantsCount {
		return "", fmt.Errorf("%w: %d records for %d participants",
			domain.ErrParticipantsMismatch, len(req.Participants), req.ParticipantsCount)
	}
	for i, p := range req.Participants {
		if p.FullName == "" {
			return "", fmt.Errorf("%w: participant %d", domain.ErrMissingParticipantName, i+1)
		}
	}

	status := opts.Status
	if status == "" {
		status = domain.BookingStatusPending
	}
	if status != domain.BookingStatusPending && status != domain.BookingStatusConfirmed {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidBookingStatus, status)
	}
	return status, nil
}

// admitTx runs the admission steps against a transactional store
func (s *admissionService) admitTx(
	ctx context.Context,
	st repository.Store,
	req *dto.CreateBookingRequest,
	status domain.BookingStatus,
	actorID *string,
) (admitted, error) {
	trail, err := st.Trails().GetByID(ctx, req.TrailID)
	if err != nil {
		return admitted{}, err
	}
	if !trail.Active {
		return admitted{}, fmt.Errorf("%w: %s", domain.ErrTrailInactive, trail.ID)
	}

	var (
		session      *domain.TrailSession
		scheduledFor time.Time
	)
	if req.SessionID != nil {
		session, err = st.Sessions().LockByID(ctx, *req.SessionID)
		if err != nil {
			return admitted{}, err
		}
		if session.TrailID != trail.ID {
			return admitted{}, fmt.Errorf("%w: session %s belongs to %s", domain.ErrSessionTrailMismatch, session.ID, session.TrailID)
		}
		if !session.IsBookable() {
			return admitted{}, fmt.Errorf("%w: status %s", domain.ErrSessionNotBookable, session.Status)
		}
		if _, err := s.ledger.Admit(ctx, st.Bookings(), session, req.ParticipantsCount); err != nil {
			return admitted{}, err
		}
		scheduledFor = session.StartsAt
	} else {
		scheduledFor, err = s.parseSchedule(req.ScheduledDate, req.ScheduledTime)
		if err != nil {
			return admitted{}, err
		}
	}

	if req.ParticipantsCount > trail.MaxGroupSize {
		return admitted{}, fmt.Errorf("%w: max %d, requested %d", domain.ErrGroupSizeExceeded, trail.MaxGroupSize, req.ParticipantsCount)
	}

	guide, err := s.guides.Resolve(ctx, st.Guides(), trail.ID, req.GuideReference, session)
	if err != nil {
		return admitted{}, err
	}

	protocol, err := s.issuer.Issue(ctx, st.Bookings())
	if err != nil {
		return admitted{}, err
	}

	now := s.now()
	booking := &domain.Booking{
		ID:                uuid.New().String(),
		Protocol:          protocol,
		TrailID:           trail.ID,
		ParticipantsCount: req.ParticipantsCount,
		Status:            status,
		ContactName:       req.ContactName,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
		Notes:             req.Notes,
		ScheduledFor:      scheduledFor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if session != nil {
		id := session.ID
		booking.SessionID = &id
	}
	if guide != nil {
		id := guide.ID
		booking.GuideID = &id
	}
	for _, p := range req.Participants {
		booking.Participants = append(booking.Participants, domain.Participant{
			ID:         uuid.New().String(),
			BookingID:  booking.ID,
			FullName:   p.FullName,
			DocumentID: p.DocumentID,
			Email:      p.Email,
			Phone:      p.Phone,
		})
	}

	if err := st.Bookings().Create(ctx, booking); err != nil {
		return admitted{}, err
	}

	entry, err := newCreatedAuditEntry(booking, actorID, now)
	if err != nil {
		return admitted{}, err
	}
	if err := st.Audit().Append(ctx, entry); err != nil {
		return admitted{}, err
	}

	return admitted{booking: booking, trail: trail, guide: guide}, nil
}

// parseSchedule reads date and time in the booking timezone and rejects the past
func (s *admissionService) parseSchedule(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: scheduledDate is required without a session", domain.ErrInvalidSchedule)
	}
	if clock == "" {
		clock = s.defaultTime
	}

	at, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", domain.ErrInvalidSchedule, date, clock)
	}
	if at.Before(s.now().In(s.loc).Truncate(time.Minute)) {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrScheduleInPast, at.Format(dateLayout+" "+timeLayout))
	}
	return at, nil
}

func (s *admissionService) reject(ctx context.Context, span trace.Span, trailID string, err error, start time.Time) {
	reason := domain.Reason(err)
	span.SetStatus(codes.Error, reason)
	metrics.RecordAdmissionDuration(ctx, "rejected", time.Since(start).Seconds())

	if domain.IsNotFoundError(err) || domain.IsValidationError(err) || domain.IsConflictError(err) {
		metrics.RecordRejection(ctx, trailID, reason)
		s.log.Debug("booking rejected",
			zap.String("trail_id", trailID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}

	span.RecordError(err)
	metrics.RecordError(ctx, internalErrorType(err), "admit")
	s.log.Error("booking admission failed",
		zap.String("trail_id", trailID),
		zap.Error(err),
	)
}

func internalErrorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrProtocolConflict):
		return "protocol_conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "storage"
	}
}

type auditPayload struct {
	Protocol          string  `json:"protocol"`
	TrailID           string  `json:"trailId"`
	SessionID         *string `json:"sessionId,omitempty"`
	GuideID           *string `json:"guideId,omitempty"`
	ParticipantsCount int     `json:"participantsCount"`
	Status            string  `json:"status"`
}

func newCreatedAuditEntry(b *domain.Booking, actorID *string, at time.Time) (*domain.AuditEntry, error) {
	payload, err := json.Marshal(auditPayload{
		Protocol:          b.Protocol,
		TrailID:           b.TrailID,
		SessionID:         b.SessionID,
		GuideID:           b.GuideID,
		ParticipantsCount: b.ParticipantsCount,
		Status:            b.Status.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit payload: %w", err)
	}
	return &domain.AuditEntry{
		ID:        uuid.New().String(),
		BookingID: b.ID,
		Action:    domain.AuditActionBookingCreated,
		ActorID:   actorID,
		Payload:   payload,
		CreatedAt: at,
	}, nil
}
