package domain

import "errors"

// Domain errors
var (
	// Not found errors
	ErrTrailNotFound   = errors.New("trail not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrBookingNotFound = errors.New("booking not found")

	// Validation errors
	ErrTrailInactive          = errors.New("trail is not active")
	ErrSessionTrailMismatch   = errors.New("session does not belong to trail")
	ErrSessionNotBookable     = errors.New("session is not open for booking")
	ErrInvalidSchedule        = errors.New("invalid scheduled date or time")
	ErrScheduleInPast         = errors.New("scheduled date is in the past")
	ErrGroupSizeExceeded      = errors.New("participants exceed trail group size")
	ErrInvalidParticipants    = errors.New("invalid participants count")
	ErrParticipantsMismatch   = errors.New("more participant records than participants count")
	ErrGuideNotFound          = errors.New("guide not found")
	ErrGuideInactive          = errors.New("guide inactive")
	ErrGuideNotAuthorized     = errors.New("guide not authorized for trail")
	ErrInvalidBookingStatus   = errors.New("invalid booking status")
	ErrMissingContact         = errors.New("contact name, email and phone are required")
	ErrMissingTrailID         = errors.New("trail id is required")
	ErrMissingParticipantName = errors.New("participant full name is required")

	// Conflict errors
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// Storage errors
	ErrProtocolConflict = errors.New("protocol code already in use")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTrailNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTrailInactive) ||
		errors.Is(err, ErrSessionTrailMismatch) ||
		errors.Is(err, ErrSessionNotBookable) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrScheduleInPast) ||
		errors.Is(err, ErrGroupSizeExceeded) ||
		errors.Is(err, ErrInvalidParticipants) ||
		errors.Is(err, ErrParticipantsMismatch) ||
		errors.Is(err, ErrGuideNotFound) ||
		errors.Is(err, ErrGuideInactive) ||
		errors.Is(err, ErrGuideNotAuthorized) ||
		errors.Is(err, ErrInvalidBookingStatus) ||
		errors.Is(err, ErrMissingContact) ||
		errors.Is(err, ErrMissingTrailID) ||
		errors.Is(err, ErrMissingParticipantName)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// Reason returns a short machine-readable label for metrics and API codes
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTrailNotFound):
		return "TRAIL_NOT_FOUND"
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrBookingNotFound):
		return "BOOKING_NOT_FOUND"
	case errors.Is(err, ErrTrailInactive):
		return "TRAIL_INACTIVE"
	case errors.Is(err, ErrSessionTrailMismatch):
		return "SESSION_TRAIL_MISMATCH"
	case errors.Is(err, ErrSessionNotBookable):
		return "SESSION_NOT_BOOKABLE"
	case errors.Is(err, ErrInvalidSchedule):
		return "INVALID_SCHEDULE"
	case errors.Is(err, ErrScheduleInPast):
		return "SCHEDULE_IN_PAST"
	case errors.Is(err, ErrGroupSizeExceeded):
		return "GROUP_SIZE_EXCEEDED"
	case errors.Is(err, ErrInvalidParticipants), errors.Is(err, ErrParticipantsMismatch),
		errors.Is(err, ErrMissingParticipantName):
		return "INVALID_PARTICIPANTS"
	case errors.Is(err, ErrGuideNotFound):
		return "GUIDE_NOT_FOUND"
	case errors.Is(err, ErrGuideInactive):
		return "GUIDE_INACTIVE"
	case errors.Is(err, ErrGuideNotAuthorized):
		return "GUIDE_NOT_AUTHORIZED"
	case errors.Is(err, ErrInvalidBookingStatus):
		return "INVALID_STATUS"
	case errors.Is(err, ErrMissingContact), errors.Is(err, ErrMissingTrailID):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrCapacityExceeded):
		return "CAPACITY_EXCEEDED"
	default:
		return "INTERNAL_ERROR"
	}
}
