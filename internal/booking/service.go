package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindbridge/counselling-booking/internal/directory"
	"github.com/mindbridge/counselling-booking/internal/metrics"
	redisclient "github.com/mindbridge/counselling-booking/internal/redis"
	"github.com/mindbridge/counselling-booking/internal/schedule"
)

// SpecialistDirectory is the slice of the directory the resolver needs.
type SpecialistDirectory interface {
	GetSpecialistByID(ctx context.Context, id uuid.UUID) (*directory.Specialist, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// Notifier receives fire-and-forget events after a booking is confirmed or
// cancelled. Implementations must never fail the calling operation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, detail *BookingDetail)
	BookingCancelled(ctx context.Context, detail *BookingDetail)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) BookingConfirmed(context.Context, *BookingDetail) {}
func (NopNotifier) BookingCancelled(context.Context, *BookingDetail) {}

type Service struct {
	repo     Repository
	dir      SpecialistDirectory
	locker   redisclient.Locker
	notifier Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, dir SpecialistDirectory, locker redisclient.Locker, notifier Notifier, log zerolog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		repo:     repo,
		dir:      dir,
		locker:   locker,
		notifier: notifier,
		log:      log.With().Str("component", "booking").Logger(),
	}
}

// CreateParams carries the caller-supplied fields for a new booking.
type CreateParams struct {
	PatientID       uuid.UUID
	SpecialistID    uuid.UUID
	StartTime       time.Time
	DurationMinutes int
	Notes           *string
}

func validateDuration(minutes int) error {
	if minutes < schedule.MinDurationMinutes || minutes > schedule.MaxDurationMinutes {
		return &ValidationError{
			Field:  "duration_minutes",
			Reason: fmt.Sprintf("must be between %d and %d", schedule.MinDurationMinutes, schedule.MaxDurationMinutes),
		}
	}
	return nil
}

// Create validates a booking request and persists it in PENDING state.
// The overlap re-check and the insert run under a per-specialist lock so two
// concurrent requests for the same specialist cannot both pass validation;
// the bookings_no_overlap constraint backstops the lock at the storage layer.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Booking, error) {
	if err := validateDuration(p.DurationMinutes); err != nil {
		return nil, err
	}

	if _, err := s.dir.GetPatientByID(ctx, p.PatientID); err != nil {
		return nil, err
	}

	spec, err := s.dir.GetSpecialistByID(ctx, p.SpecialistID)
	if err != nil {
		return nil, err
	}
	if !spec.IsAvailable {
		return nil, ErrSpecialistUnavailable
	}

	candidate := Booking{
		ID:              uuid.New(),
		PatientID:       p.PatientID,
		SpecialistID:    p.SpecialistID,
		StartTime:       p.StartTime,
		DurationMinutes: p.DurationMinutes,
		Status:          StatusPending,
		PatientNotes:    p.Notes,
	}

	err = s.locker.WithLock(ctx, redisclient.SpecialistLockKey(p.SpecialistID), func(lockCtx context.Context) error {
		// Re-check inside the critical section: a slot observed free by
		// ComputeOpenSlots may have been taken since.
		if err := s.checkOverlap(lockCtx, candidate.SpecialistID, candidate.StartTime, candidate.EndTime(), nil); err != nil {
			return err
		}
		return s.repo.CreateBooking(lockCtx, &candidate)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			metrics.IncBookingConflict("lock_contended")
			return nil, ErrSlotContended
		}
		var slotErr *SlotUnavailableError
		if errors.As(err, &slotErr) {
			metrics.IncBookingConflict("overlap")
			return nil, err
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.log.Info().
		Str("booking_id", candidate.ID.String()).
		Str("specialist_id", p.SpecialistID.String()).
		Time("start", p.StartTime).
		Int("duration_minutes", p.DurationMinutes).
		Msg("booking created")

	return &candidate, nil
}

// Get returns a booking hydrated with patient and specialist names.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	return s.repo.GetBookingDetail(ctx, id)
}

// UpdateParams carries optional changes for Update; nil fields keep the
// stored value.
type UpdateParams struct {
	StartTime          *time.Time
	DurationMinutes    *int
	PatientNotes       *string
	SpecialistNotes    *string
	CancellationReason *string
}

// Update applies field changes. A start or duration change on a live booking
// re-runs the overlap check excluding the booking's own interval; terminal
// bookings accept note changes only (audit trail stays editable).
func (s *Service) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reschedule := p.StartTime != nil || p.DurationMinutes != nil
	if reschedule && !b.Status.Live() {
		return nil, &InvalidStateError{Current: b.Status, Attempted: b.Status}
	}

	if p.StartTime != nil {
		b.StartTime = *p.StartTime
	}
	if p.DurationMinutes != nil {
		b.DurationMinutes = *p.DurationMinutes
	}
	if p.PatientNotes != nil {
		b.PatientNotes = p.PatientNotes
	}
	if p.SpecialistNotes != nil {
		b.SpecialistNotes = p.SpecialistNotes
	}
	if p.CancellationReason != nil {
		b.CancellationReason = p.CancellationReason
	}

	if err := validateDuration(b.DurationMinutes); err != nil {
		return nil, err
	}

	if reschedule {
		err = s.locker.WithLock(ctx, redisclient.SpecialistLockKey(b.SpecialistID), func(lockCtx context.Context) error {
			if err := s.checkOverlap(lockCtx, b.SpecialistID, b.StartTime, b.EndTime(), &b.ID); err != nil {
				return err
			}
			return s.repo.UpdateBooking(lockCtx, b)
		})
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
	} else {
		err = s.repo.UpdateBooking(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Confirm moves a pending booking to confirmed and emits the confirmation
// notification.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.transition(ctx, id, StatusConfirmed, nil)
	if err != nil {
		return nil, err
	}

	if detail, derr := s.repo.GetBookingDetail(ctx, id); derr == nil {
		s.notifier.BookingConfirmed(ctx, detail)
	} else {
		s.log.Warn().Err(derr).Str("booking_id", id.String()).Msg("skipping confirmation notification")
	}

	return b, nil
}

// Cancel moves a pending or confirmed booking to cancelled, recording the
// optional reason, and emits the cancellation notification.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason *string) (*Booking, error) {
	b, err := s.transition(ctx, id, StatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	if detail, derr := s.repo.GetBookingDetail(ctx, id); derr == nil {
		s.notifier.BookingCancelled(ctx, detail)
	} else {
		s.log.Warn().Err(derr).Str("booking_id", id.String()).Msg("skipping cancellation notification")
	}

	return b, nil
}

// Complete moves a confirmed booking to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, StatusCompleted, nil)
}

// MarkNoShow moves a confirmed booking to no_show.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.transition(ctx, id, StatusNoShow, nil)
}

// transition applies the state machine: load, check legality, then a
// status-guarded update so a concurrent transition loses cleanly.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, reason *string) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !b.Status.CanTransitionTo(to) {
		return nil, &InvalidStateError{Current: b.Status, Attempted: to}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, b.Status, to, reason)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			// The row moved under us; report the transition as illegal with
			// the freshest status we can get.
			if cur, gerr := s.repo.GetBookingByID(ctx, id); gerr == nil {
				return nil, &InvalidStateError{Current: cur.Status, Attempted: to}
			}
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	metrics.IncBookingTransition(string(to))
	s.log.Info().
		Str("booking_id", id.String()).
		Str("from", string(b.Status)).
		Str("to", string(to)).
		Msg("booking transitioned")

	return updated, nil
}

// ListForPatient returns the patient's bookings, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]BookingDetail, error) {
	return s.repo.ListForPatient(ctx, patientID, filter)
}

// ListForSpecialist returns the specialist's bookings in start order.
func (s *Service) ListForSpecialist(ctx context.Context, specialistID uuid.UUID, filter ListFilter) ([]BookingDetail, error) {
	return s.repo.ListForSpecialist(ctx, specialistID, filter)
}

// SessionParams carries the caller-supplied session fields.
type SessionParams struct {
	StartedAt *time.Time
	EndedAt   *time.Time
	Notes     string
	Summary   string
}

// CreateSession records the 1:1 session for a confirmed booking.
func (s *Service) CreateSession(ctx context.Context, bookingID uuid.UUID, p SessionParams) (*Session, error) {
	b, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusConfirmed {
		return nil, &InvalidStateError{Current: b.Status, Attempted: StatusConfirmed}
	}

	if _, err := s.repo.GetSessionByBookingID(ctx, bookingID); err == nil {
		return nil, ErrSessionExists
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	sess := Session{
		ID:        uuid.New(),
		BookingID: bookingID,
		StartedAt: p.StartedAt,
		EndedAt:   p.EndedAt,
		Notes:     p.Notes,
		Summary:   p.Summary,
	}
	if err := s.repo.CreateSession(ctx, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSessionForBooking returns the session attached to a booking.
func (s *Service) GetSessionForBooking(ctx context.Context, bookingID uuid.UUID) (*Session, error) {
	return s.repo.GetSessionByBookingID(ctx, bookingID)
}

// UpdateSession applies field changes to an existing session.
func (s *Service) UpdateSession(ctx context.Context, id uuid.UUID, p SessionParams) (*Session, error) {
	sess, err := s.repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.StartedAt != nil {
		sess.StartedAt = p.StartedAt
	}
	if p.EndedAt != nil {
		sess.EndedAt = p.EndedAt
	}
	if p.Notes != "" {
		sess.Notes = p.Notes
	}
	if p.Summary != "" {
		sess.Summary = p.Summary
	}

	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// checkOverlap fails with SlotUnavailableError if any live booking for the
// specialist overlaps [start, end), half-open.
func (s *Service) checkOverlap(ctx context.Context, specialistID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	conflicts, err := s.repo.ListLiveOverlapping(ctx, specialistID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("check overlapping bookings: %w", err)
	}
	if len(conflicts) > 0 {
		return &SlotUnavailableError{SpecialistID: specialistID, Start: start, End: end}
	}
	return nil
}
