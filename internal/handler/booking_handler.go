package handler

import (
	"net/http"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/dto"
	"github.com/ecotrail/trail-booking/internal/service"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/middleware"
	"github.com/ecotrail/trail-booking/pkg/response"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	admission service.AdmissionService
	queries   service.BookingQueryService
	log       *logger.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(admission service.AdmissionService, queries service.BookingQueryService, log *logger.Logger) *BookingHandler {
	if log == nil {
		log = logger.Get()
	}
	return &BookingHandler{
		admission: admission,
		queries:   queries,
		log:       log,
	}
}

// CreateBooking handles POST /bookings
// Public submissions always start as pending.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}
	span.SetAttributes(attribute.String("trail_id", req.TrailID))

	result, err := h.admission.Admit(ctx, &req, service.AdmitOptions{Status: domain.BookingStatusPending})
	if err != nil {
		span.SetStatus(codes.Error, domain.Reason(err))
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("protocol", result.Protocol))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// CreateAdminBooking handles POST /admin/bookings
func (h *BookingHandler) CreateAdminBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create_admin")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actorID, ok := middleware.GetUserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "authentication required")
		return
	}

	var req dto.AdminCreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}
	span.SetAttributes(attribute.String("trail_id", req.TrailID), attribute.String("actor_id", actorID))

	result, err := h.admission.Admit(ctx, &req.CreateBookingRequest, service.AdmitOptions{
		Status:  domain.BookingStatus(req.Status),
		ActorID: &actorID,
	})
	if err != nil {
		span.SetStatus(codes.Error, domain.Reason(err))
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// GetBooking handles GET /bookings/:protocol
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()

	result, err := h.queries.GetByProtocol(ctx, c.Param("protocol"))
	if err != nil {
		span.SetStatus(codes.Error, domain.Reason(err))
		h.handleError(c, err)
		return
	}

	response.Success(c, result)
}

// GetAvailability handles GET /sessions/:id/availability
func (h *BookingHandler) GetAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.availability")
	defer span.End()

	result, err := h.queries.GetAvailability(ctx, c.Param("id"))
	if err != nil {
		span.SetStatus(codes.Error, domain.Reason(err))
		h.handleError(c, err)
		return
	}

	response.Success(c, result)
}

// handleError converts domain errors to HTTP responses.
// Anything unclassified is logged and hidden behind an opaque 500.
func (h *BookingHandler) handleError(c *gin.Context, err error) {
	reason := domain.Reason(err)
	switch {
	case domain.IsNotFoundError(err):
		response.NotFound(c, reason, err.Error())
	case domain.IsValidationError(err):
		response.BadRequest(c, reason, err.Error())
	case domain.IsConflictError(err):
		response.Conflict(c, reason, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		response.InternalError(c)
	}
}
