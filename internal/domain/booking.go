package domain

import (
	"encoding/json"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "pending"
	BookingStatusConfirmed   BookingStatus = "confirmed"
	BookingStatusCancelled   BookingStatus = "cancelled"
	BookingStatusCompleted   BookingStatus = "completed"
	BookingStatusRescheduled BookingStatus = "rescheduled"
)

// IsValid checks if the booking status is valid
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusRescheduled:
		return true
	}
	return false
}

// OccupiesSeats reports whether a booking in this status counts toward
// session occupancy. Only cancelled bookings release their seats.
func (s BookingStatus) OccupiesSeats() bool {
	return s != BookingStatusCancelled
}

// String returns the string representation of the status
func (s BookingStatus) String() string {
	return string(s)
}

// Participant is one person on a booking
type Participant struct {
	ID         string  `json:"id"`
	BookingID  string  `json:"booking_id"`
	FullName   string  `json:"full_name"`
	DocumentID *string `json:"document_id,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// Booking is the aggregate created by admission
type Booking struct {
	ID                string        `json:"id"`
	Protocol          string        `json:"protocol"`
	TrailID           string        `json:"trail_id"`
	SessionID         *string       `json:"session_id,omitempty"`
	GuideID           *string       `json:"guide_id,omitempty"`
	ParticipantsCount int           `json:"participants_count"`
	Status            BookingStatus `json:"status"`
	ContactName       string        `json:"contact_name"`
	ContactEmail      string        `json:"contact_email"`
	ContactPhone      string        `json:"contact_phone"`
	Notes             *string       `json:"notes,omitempty"`
	ScheduledFor      time.Time     `json:"scheduled_for"`
	Participants      []Participant `json:"participants,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// SeatClaim is the part of a booking the capacity ledger needs
type SeatClaim struct {
	BookingID         string
	ParticipantsCount int
	Status            BookingStatus
}

// AuditAction identifies what an audit entry records
type AuditAction string

const (
	AuditActionBookingCreated AuditAction = "booking.created"
)

// AuditEntry is an append-only record of a booking event. PublishedAt is set
// once the relay has delivered it downstream.
type AuditEntry struct {
	ID          string          `json:"id"`
	BookingID   string          `json:"booking_id"`
	Action      AuditAction     `json:"action"`
	ActorID     *string         `json:"actor_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}
