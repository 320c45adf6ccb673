package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindbridge/counselling-booking/internal/directory"
	"github.com/mindbridge/counselling-booking/internal/metrics"
	"github.com/mindbridge/counselling-booking/internal/schedule"
)

// SpecialistDirectory is the slice of the directory the engine needs.
type SpecialistDirectory interface {
	GetSpecialistByID(ctx context.Context, id uuid.UUID) (*directory.Specialist, error)
}

type Service struct {
	repo Repository
	dir  SpecialistDirectory
	log  zerolog.Logger
}

func NewService(repo Repository, dir SpecialistDirectory, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		dir:  dir,
		log:  log.With().Str("component", "availability").Logger(),
	}
}

// WindowParams carries the caller-supplied fields for a new window.
type WindowParams struct {
	Day    DayOfWeek
	Start  schedule.TimeOfDay
	End    schedule.TimeOfDay
	Active bool
}

func validateWindowParams(p WindowParams) error {
	if !p.Day.Valid() {
		return &ValidationError{Field: "day_of_week", Reason: fmt.Sprintf("unknown day %q", p.Day)}
	}
	if !p.Start.Valid() || !p.End.Valid() {
		return &ValidationError{Field: "start_time", Reason: "time of day out of range"}
	}
	if p.Start >= p.End {
		return &ValidationError{Field: "end_time", Reason: "end must be after start"}
	}
	return nil
}

// AddWindow validates and persists one recurring window. Overlap with any
// existing active window for the same specialist and day is a ConflictError;
// adjacent windows (shared endpoint) are allowed.
func (s *Service) AddWindow(ctx context.Context, specialistID uuid.UUID, p WindowParams) (*Window, error) {
	if err := validateWindowParams(p); err != nil {
		return nil, err
	}
	if _, err := s.dir.GetSpecialistByID(ctx, specialistID); err != nil {
		return nil, err
	}

	candidate := Window{
		ID:           uuid.New(),
		SpecialistID: specialistID,
		Day:          p.Day,
		Start:        p.Start,
		End:          p.End,
		Active:       p.Active,
	}

	if err := s.checkConflicts(ctx, candidate, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.repo.InsertWindow(ctx, &candidate); err != nil {
		return nil, fmt.Errorf("insert window: %w", err)
	}

	s.log.Info().
		Str("specialist_id", specialistID.String()).
		Str("day", string(p.Day)).
		Str("window", p.Start.String()+"-"+p.End.String()).
		Msg("availability window added")

	return &candidate, nil
}

// BulkAddWindows validates every window in the batch against existing windows
// and against earlier entries of the same batch, then writes them in a single
// transaction. Any failure rejects the whole batch.
func (s *Service) BulkAddWindows(ctx context.Context, specialistID uuid.UUID, params []WindowParams) ([]Window, error) {
	if len(params) == 0 {
		return nil, &ValidationError{Field: "windows", Reason: "batch is empty"}
	}
	if _, err := s.dir.GetSpecialistByID(ctx, specialistID); err != nil {
		return nil, err
	}

	batch := make([]*Window, 0, len(params))
	for _, p := range params {
		if err := validateWindowParams(p); err != nil {
			return nil, err
		}

		candidate := Window{
			ID:           uuid.New(),
			SpecialistID: specialistID,
			Day:          p.Day,
			Start:        p.Start,
			End:          p.End,
			Active:       p.Active,
		}

		if err := s.checkConflicts(ctx, candidate, uuid.Nil); err != nil {
			return nil, err
		}
		// Batch entries are checked as if added sequentially.
		for _, prior := range batch {
			if candidate.Active && prior.Active && candidate.Overlaps(*prior) {
				return nil, &ConflictError{
					Day:           candidate.Day,
					Start:         candidate.Start,
					End:           candidate.End,
					ConflictingID: prior.ID,
				}
			}
		}

		batch = append(batch, &candidate)
	}

	if err := s.repo.InsertWindows(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert windows: %w", err)
	}

	s.log.Info().
		Str("specialist_id", specialistID.String()).
		Int("count", len(batch)).
		Msg("availability windows bulk added")

	created := make([]Window, len(batch))
	for i, w := range batch {
		created[i] = *w
	}
	return created, nil
}

// UpdateParams carries optional changes for UpdateWindow; nil fields keep the
// stored value.
type UpdateParams struct {
	Day    *DayOfWeek
	Start  *schedule.TimeOfDay
	End    *schedule.TimeOfDay
	Active *bool
}

// UpdateWindow merges the supplied changes into the stored window and
// re-validates the result against all other windows for the specialist.
func (s *Service) UpdateWindow(ctx context.Context, id uuid.UUID, p UpdateParams) (*Window, error) {
	w, err := s.repo.GetWindowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Day != nil {
		w.Day = *p.Day
	}
	if p.Start != nil {
		w.Start = *p.Start
	}
	if p.End != nil {
		w.End = *p.End
	}
	if p.Active != nil {
		w.Active = *p.Active
	}

	if err := validateWindowParams(WindowParams{Day: w.Day, Start: w.Start, End: w.End, Active: w.Active}); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, *w, w.ID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWindow(ctx, w); err != nil {
		return nil, fmt.Errorf("update window: %w", err)
	}
	return w, nil
}

// RemoveWindow deletes a window. Removing an id that does not exist is a
// no-op reporting false, not an error.
func (s *Service) RemoveWindow(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.DeleteWindow(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete window: %w", err)
	}
	return deleted, nil
}

// ClearAll removes every window for the specialist and returns the count.
func (s *Service) ClearAll(ctx context.Context, specialistID uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteAllForSpecialist(ctx, specialistID)
	if err != nil {
		return 0, fmt.Errorf("clear windows: %w", err)
	}
	s.log.Info().
		Str("specialist_id", specialistID.String()).
		Int64("count", n).
		Msg("availability cleared")
	return n, nil
}

// ListWindows returns the specialist's windows ordered by day then start.
func (s *Service) ListWindows(ctx context.Context, specialistID uuid.UUID, filter WindowFilter) ([]Window, error) {
	return s.repo.ListWindows(ctx, specialistID, filter)
}

// WeeklySchedule groups the specialist's windows per day of week.
func (s *Service) WeeklySchedule(ctx context.Context, specialistID uuid.UUID) (*WeeklySchedule, error) {
	windows, err := s.repo.ListWindows(ctx, specialistID, WindowFilter{})
	if err != nil {
		return nil, err
	}

	ws := &WeeklySchedule{
		SpecialistID: specialistID,
		Days:         make(map[DayOfWeek][]Window, len(WeekDays)),
	}
	for _, d := range WeekDays {
		ws.Days[d] = []Window{}
	}
	for _, w := range windows {
		ws.Days[w.Day] = append(ws.Days[w.Day], w)
	}
	return ws, nil
}

// ComputeOpenSlots derives the bookable slots for a date: the specialist's
// active windows for that weekday, walked in 15-minute strides, minus every
// interval already held by a pending or confirmed booking on that date.
// Pure read; a concurrent CreateBooking holding the specialist lock decides
// any race in favour of the booking.
func (s *Service) ComputeOpenSlots(ctx context.Context, specialistID uuid.UUID, date time.Time, duration time.Duration) ([]schedule.Slot, error) {
	minutes := int(duration / time.Minute)
	if minutes < schedule.MinDurationMinutes || minutes > schedule.MaxDurationMinutes {
		return nil, &ValidationError{
			Field:  "duration_minutes",
			Reason: fmt.Sprintf("must be between %d and %d", schedule.MinDurationMinutes, schedule.MaxDurationMinutes),
		}
	}

	day := DayOfDate(date)
	windows, err := s.repo.ListWindows(ctx, specialistID, WindowFilter{Day: &day, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	dayStart, dayEnd := schedule.DayBounds(date)
	busy, err := s.repo.ListBookedIntervals(ctx, specialistID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list booked intervals: %w", err)
	}

	var slots []schedule.Slot
	for _, w := range windows {
		slots = append(slots, schedule.SlotsInWindow(date, w.Start, w.End, duration, busy)...)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })

	metrics.IncSlotQuery()
	return slots, nil
}

// checkConflicts compares a candidate against the specialist's other active
// windows for the same day, skipping excludeID (the candidate itself on
// update). Inactive candidates conflict with nothing.
func (s *Service) checkConflicts(ctx context.Context, candidate Window, excludeID uuid.UUID) error {
	if !candidate.Active {
		return nil
	}

	day := candidate.Day
	existing, err := s.repo.ListWindows(ctx, candidate.SpecialistID, WindowFilter{Day: &day, ActiveOnly: true})
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}

	for _, w := range existing {
		if w.ID == excludeID {
			continue
		}
		if candidate.Overlaps(w) {
			return &ConflictError{
				Day:           candidate.Day,
				Start:         candidate.Start,
				End:           candidate.End,
				ConflictingID: w.ID,
			}
		}
	}
	return nil
}
