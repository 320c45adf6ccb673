package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindbridge/counselling-booking/internal/schedule"
)

var ErrWindowNotFound = errors.New("availability window not found")

// ConflictError reports an attempted window that overlaps an existing one.
type ConflictError struct {
	Day           DayOfWeek
	Start, End    schedule.TimeOfDay
	ConflictingID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("window %s %s-%s overlaps existing window %s", e.Day, e.Start, e.End, e.ConflictingID)
}

// ValidationError reports malformed window or slot-query input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WindowFilter narrows ListWindows.
type WindowFilter struct {
	Day        *DayOfWeek
	ActiveOnly bool
}

// Repository contains all DB interactions needed by the availability service.
type Repository interface {
	GetWindowByID(ctx context.Context, id uuid.UUID) (*Window, error)
	ListWindows(ctx context.Context, specialistID uuid.UUID, filter WindowFilter) ([]Window, error)

	InsertWindow(ctx context.Context, w *Window) error
	// InsertWindows writes the whole batch in one transaction: all rows or none.
	InsertWindows(ctx context.Context, ws []*Window) error
	UpdateWindow(ctx context.Context, w *Window) error
	// DeleteWindow reports whether a row was actually removed.
	DeleteWindow(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAllForSpecialist(ctx context.Context, specialistID uuid.UUID) (int64, error)

	// ListBookedIntervals returns the [start, end) intervals of pending and
	// confirmed bookings starting within [from, to). Read-only: the
	// availability engine never mutates bookings.
	ListBookedIntervals(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]schedule.Interval, error)
}
