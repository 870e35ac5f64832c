package dto

import (
	"strings"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
)

// ParticipantInput is one participant in a booking request
type ParticipantInput struct {
	FullName   string  `json:"fullName" binding:"required,max=200"`
	DocumentID *string `json:"documentId,omitempty" binding:"omitempty,max=50"`
	Email      *string `json:"email,omitempty" binding:"omitempty,max=200"`
	Phone      *string `json:"phone,omitempty" binding:"omitempty,max=30"`
}

// CreateBookingRequest represents a request to book a trail
type CreateBookingRequest struct {
	TrailID           string             `json:"trailId" binding:"required"`
	SessionID         *string            `json:"sessionId,omitempty"`
	GuideReference    *string            `json:"guideReference,omitempty"`
	ContactName       string             `json:"contactName" binding:"required,max=200"`
	ContactEmail      string             `json:"contactEmail" binding:"required,email"`
	ContactPhone      string             `json:"contactPhone" binding:"required,max=30"`
	ScheduledDate     string             `json:"scheduledDate,omitempty"`
	ScheduledTime     string             `json:"scheduledTime,omitempty"`
	ParticipantsCount int                `json:"participantsCount" binding:"required,min=1,max=60"`
	Notes             *string            `json:"notes,omitempty" binding:"omitempty,max=1000"`
	Participants      []ParticipantInput `json:"participants,omitempty" binding:"omitempty,max=60,dive"`
}

// Normalize trims every string and turns blank optional values into nil
func (r *CreateBookingRequest) Normalize() {
	r.TrailID = strings.TrimSpace(r.TrailID)
	r.SessionID = trimOptional(r.SessionID)
	r.GuideReference = trimOptional(r.GuideReference)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.ContactEmail = strings.TrimSpace(r.ContactEmail)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.ScheduledDate = strings.TrimSpace(r.ScheduledDate)
	r.ScheduledTime = strings.TrimSpace(r.ScheduledTime)
	r.Notes = trimOptional(r.Notes)
	for i := range r.Participants {
		p := &r.Participants[i]
		p.FullName = strings.TrimSpace(p.FullName)
		p.DocumentID = trimOptional(p.DocumentID)
		p.Email = trimOptional(p.Email)
		p.Phone = trimOptional(p.Phone)
	}
}

// AdminCreateBookingRequest lets staff pick the initial status
type AdminCreateBookingRequest struct {
	CreateBookingRequest
	Status string `json:"status,omitempty" binding:"omitempty,oneof=pending confirmed"`
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// BookingCreatedResponse is returned after a booking is admitted
type BookingCreatedResponse struct {
	ID            string    `json:"id"`
	Protocol      string    `json:"protocol"`
	Status        string    `json:"status"`
	ScheduledFor  time.Time `json:"scheduledFor"`
	ScheduledDate string    `json:"scheduledDate"`
	ScheduledTime string    `json:"scheduledTime"`
	ContactName   string    `json:"contactName"`
	TrailName     string    `json:"trailName"`
	GuideName     *string   `json:"guideName"`
}

// ParticipantResponse is a participant on a booking lookup
type ParticipantResponse struct {
	FullName string `json:"fullName"`
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	ID                string                `json:"id"`
	Protocol          string                `json:"protocol"`
	TrailID           string                `json:"trailId"`
	SessionID         *string               `json:"sessionId,omitempty"`
	GuideID           *string               `json:"guideId,omitempty"`
	ParticipantsCount int                   `json:"participantsCount"`
	Status            string                `json:"status"`
	ContactName       string                `json:"contactName"`
	ScheduledFor      time.Time             `json:"scheduledFor"`
	Notes             *string               `json:"notes,omitempty"`
	Participants      []ParticipantResponse `json:"participants"`
	CreatedAt         time.Time             `json:"createdAt"`
}

// FromDomain converts domain booking to response DTO
func FromDomain(b *domain.Booking) *BookingResponse {
	participants := make([]ParticipantResponse, len(b.Participants))
	for i, p := range b.Participants {
		participants[i] = ParticipantResponse{FullName: p.FullName}
	}
	return &BookingResponse{
		ID:                b.ID,
		Protocol:          b.Protocol,
		TrailID:           b.TrailID,
		SessionID:         b.SessionID,
		GuideID:           b.GuideID,
		ParticipantsCount: b.ParticipantsCount,
		Status:            b.Status.String(),
		ContactName:       b.ContactName,
		ScheduledFor:      b.ScheduledFor,
		Notes:             b.Notes,
		Participants:      participants,
		CreatedAt:         b.CreatedAt,
	}
}

// AvailabilityResponse reports seat usage of a session
type AvailabilityResponse struct {
	SessionID string    `json:"sessionId"`
	TrailID   string    `json:"trailId"`
	StartsAt  time.Time `json:"startsAt"`
	Status    string    `json:"status"`
	Capacity  int       `json:"capacity"`
	Occupied  int       `json:"occupied"`
	Remaining int       `json:"remaining"`
}
