package domain

import "time"

// Trail is a bookable activity template
type Trail struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MaxGroupSize int    `json:"max_group_size"`
	Active       bool   `json:"active"`
}

// SessionStatus is the lifecycle state of a trail session
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusCompleted SessionStatus = "completed"
)

// IsValid checks if the status is valid
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusCancelled, SessionStatusCompleted:
		return true
	}
	return false
}

// TrailSession is a scheduled occurrence of a trail with a fixed seat capacity
type TrailSession struct {
	ID             string        `json:"id"`
	TrailID        string        `json:"trail_id"`
	StartsAt       time.Time     `json:"starts_at"`
	Capacity       int           `json:"capacity"`
	PrimaryGuideID *string       `json:"primary_guide_id,omitempty"`
	Status         SessionStatus `json:"status"`
}

// IsBookable reports whether new bookings may be admitted
func (s *TrailSession) IsBookable() bool {
	return s.Status == SessionStatusScheduled
}

// Guide leads trails they are authorized for
type Guide struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Active   bool     `json:"active"`
	TrailIDs []string `json:"trail_ids"`
}

// CanLead reports whether the guide is authorized for the trail
func (g *Guide) CanLead(trailID string) bool {
	for _, id := range g.TrailIDs {
		if id == trailID {
			return true
		}
	}
	return false
}
