package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists guards the 1:1 booking-session relationship.
	ErrSessionExists = errors.New("session already exists for booking")
	// ErrSpecialistUnavailable means the specialist's profile flag is off.
	ErrSpecialistUnavailable = errors.New("specialist is not currently accepting bookings")
	// ErrSlotContended means the per-specialist lock could not be acquired;
	// callers may retry.
	ErrSlotContended = errors.New("slot is being booked by another request, retry shortly")
)

// SlotUnavailableError reports a requested interval that overlaps a live
// booking.
type SlotUnavailableError struct {
	SpecialistID uuid.UUID
	Start        time.Time
	End          time.Time
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot %s-%s is not available for specialist %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.SpecialistID)
}

// InvalidStateError reports an illegal state-machine transition and carries
// both states so callers can distinguish the condition.
type InvalidStateError struct {
	Current   Status
	Attempted Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.Current, e.Attempted)
}

// ValidationError reports malformed booking input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ListFilter narrows the paginated booking lists.
type ListFilter struct {
	Status *Status
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error)

	// ListLiveOverlapping returns pending/confirmed bookings for the
	// specialist whose [start, end) interval overlaps the given one,
	// excluding excludeID when non-nil.
	ListLiveOverlapping(ctx context.Context, specialistID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Booking, error)

	// CreateBooking inserts b; a storage-level overlap rejection surfaces as
	// a SlotUnavailableError.
	CreateBooking(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
	// UpdateStatus applies from → to only if the row still holds from,
	// stamping the matching timestamp column. Returns ErrBookingNotFound if
	// no row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Booking, error)

	ListForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]BookingDetail, error)
	ListForSpecialist(ctx context.Context, specialistID uuid.UUID, filter ListFilter) ([]BookingDetail, error)

	CreateSession(ctx context.Context, sess *Session) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetSessionByBookingID(ctx context.Context, bookingID uuid.UUID) (*Session, error)
	UpdateSession(ctx context.Context, sess *Session) error
}
