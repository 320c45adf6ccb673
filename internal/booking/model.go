// Package booking creates and transitions bookings while enforcing the
// per-specialist non-overlap invariant and the status state machine.
package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// transitions is the whole state machine. Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether s → to is a legal transition.
func (s Status) CanTransitionTo(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Live reports whether the booking still occupies its time interval.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	SpecialistID       uuid.UUID
	StartTime          time.Time
	DurationMinutes    int
	Status             Status
	PatientNotes       *string
	SpecialistNotes    *string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
}

// EndTime is derived: start plus duration.
func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Session is the 1:1 record of what actually happened in a confirmed booking.
// It carries no interval-overlap rules of its own.
type Session struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	StartedAt *time.Time
	EndedAt   *time.Time
	Notes     string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingDetail is a booking hydrated with the names the API returns.
type BookingDetail struct {
	Booking
	PatientName    string
	SpecialistName string
}
