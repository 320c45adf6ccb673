package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindbridge/counselling-booking/internal/directory"
	redisclient "github.com/mindbridge/counselling-booking/internal/redis"
)

type fakeRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
	sessions map[uuid.UUID]*Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings: make(map[uuid.UUID]*Booking),
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (r *fakeRepo) GetBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	b, err := r.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BookingDetail{Booking: *b, PatientName: "Pat", SpecialistName: "Dr. Reyes"}, nil
}

func (r *fakeRepo) ListLiveOverlapping(_ context.Context, specialistID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.SpecialistID != specialistID || !b.Status.Live() {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if b.StartTime.Before(end) && start.Before(b.EndTime()) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateBooking(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, reason *string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	now := time.Now()
	switch to {
	case StatusConfirmed:
		b.ConfirmedAt = &now
	case StatusCancelled:
		b.CancelledAt = &now
	}
	if reason != nil {
		b.CancellationReason = reason
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) ListForPatient(_ context.Context, patientID uuid.UUID, _ ListFilter) ([]BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BookingDetail
	for _, b := range r.bookings {
		if b.PatientID == patientID {
			out = append(out, BookingDetail{Booking: *b})
		}
	}
	return out, nil
}

func (r *fakeRepo) ListForSpecialist(_ context.Context, specialistID uuid.UUID, _ ListFilter) ([]BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BookingDetail
	for _, b := range r.bookings {
		if b.SpecialistID == specialistID {
			out = append(out, BookingDetail{Booking: *b})
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateSession(_ context.Context, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.BookingID == sess.BookingID {
			return ErrSessionExists
		}
	}
	cp := *sess
	r.sessions[sess.ID] = &cp
	return nil
}

func (r *fakeRepo) GetSessionByID(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) GetSessionByBookingID(_ context.Context, bookingID uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.BookingID == bookingID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (r *fakeRepo) UpdateSession(_ context.Context, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	cp := *sess
	r.sessions[sess.ID] = &cp
	return nil
}

type fakeDirectory struct {
	patients    map[uuid.UUID]*directory.Patient
	specialists map[uuid.UUID]*directory.Specialist
}

func (d *fakeDirectory) GetPatientByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	return p, nil
}

func (d *fakeDirectory) GetSpecialistByID(_ context.Context, id uuid.UUID) (*directory.Specialist, error) {
	s, ok := d.specialists[id]
	if !ok {
		return nil, directory.ErrSpecialistNotFound
	}
	return s, nil
}

// mutexLocker serializes callers per key the way the Redis lock does in
// production, but blocking instead of failing fast.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

// contendedLocker always reports the lock as held elsewhere.
type contendedLocker struct{}

func (contendedLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []uuid.UUID
	cancelled []uuid.UUID
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, d *BookingDetail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, d.ID)
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, d *BookingDetail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, d.ID)
}

type testEnv struct {
	svc          *Service
	repo         *fakeRepo
	notifier     *recordingNotifier
	patientID    uuid.UUID
	specialistID uuid.UUID
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	patientID := uuid.New()
	specialistID := uuid.New()
	dir := &fakeDirectory{
		patients: map[uuid.UUID]*directory.Patient{
			patientID: {ID: patientID, Name: "Pat"},
		},
		specialists: map[uuid.UUID]*directory.Specialist{
			specialistID: {ID: specialistID, Name: "Dr. Reyes", IsAvailable: true},
		},
	}
	notifier := &recordingNotifier{}
	svc := NewService(repo, dir, newMutexLocker(), notifier, zerolog.Nop())
	return &testEnv{svc: svc, repo: repo, notifier: notifier, patientID: patientID, specialistID: specialistID}
}

var slotStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func (e *testEnv) createParams() CreateParams {
	return CreateParams{
		PatientID:       e.patientID,
		SpecialistID:    e.specialistID,
		StartTime:       slotStart,
		DurationMinutes: 60,
	}
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv()

	b, err := env.svc.Create(context.Background(), env.createParams())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, slotStart.Add(time.Hour), b.EndTime())
}

func TestCreateBookingDurationBounds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for _, minutes := range []int{0, 14, 481} {
		p := env.createParams()
		p.DurationMinutes = minutes
		_, err := env.svc.Create(ctx, p)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "duration %d", minutes)
	}
}

func TestCreateBookingUnknownPatient(t *testing.T) {
	env := newTestEnv()

	p := env.createParams()
	p.PatientID = uuid.New()
	_, err := env.svc.Create(context.Background(), p)
	assert.ErrorIs(t, err, directory.ErrPatientNotFound)
}

func TestCreateBookingUnknownSpecialist(t *testing.T) {
	env := newTestEnv()

	p := env.createParams()
	p.SpecialistID = uuid.New()
	_, err := env.svc.Create(context.Background(), p)
	assert.ErrorIs(t, err, directory.ErrSpecialistNotFound)
}

func TestCreateBookingSpecialistPaused(t *testing.T) {
	env := newTestEnv()
	repo := newFakeRepo()
	pausedID := uuid.New()
	dir := &fakeDirectory{
		patients: map[uuid.UUID]*directory.Patient{env.patientID: {ID: env.patientID}},
		specialists: map[uuid.UUID]*directory.Specialist{
			pausedID: {ID: pausedID, IsAvailable: false},
		},
	}
	svc := NewService(repo, dir, newMutexLocker(), nil, zerolog.Nop())

	p := env.createParams()
	p.SpecialistID = pausedID
	_, err := svc.Create(context.Background(), p)
	assert.ErrorIs(t, err, ErrSpecialistUnavailable)
}

func TestCreateBookingOverlapRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	// Same specialist, 09:30 start overlaps the 09:00-10:00 booking.
	p := env.createParams()
	p.StartTime = slotStart.Add(30 * time.Minute)
	_, err = env.svc.Create(ctx, p)
	var slotErr *SlotUnavailableError
	assert.ErrorAs(t, err, &slotErr)
}

func TestCreateBookingAdjacentAllowed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	// Back to back: 10:00 start touches the 09:00-10:00 end, no overlap.
	p := env.createParams()
	p.StartTime = slotStart.Add(time.Hour)
	_, err = env.svc.Create(ctx, p)
	assert.NoError(t, err)
}

func TestCreateBookingCancelledFreesSlot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	_, err = env.svc.Cancel(ctx, b.ID, nil)
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, env.createParams())
	assert.NoError(t, err, "cancelled booking no longer occupies the interval")
}

func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.Create(ctx, env.createParams())
			results[i] = err
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var slotErr *SlotUnavailableError
		if assert.ErrorAs(t, err, &slotErr) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes, "exactly one attempt may win the slot")
	assert.Equal(t, attempts-1, conflicts)
}

func TestCreateBookingLockContended(t *testing.T) {
	env := newTestEnv()
	svc := NewService(env.repo, &fakeDirectory{
		patients:    map[uuid.UUID]*directory.Patient{env.patientID: {ID: env.patientID}},
		specialists: map[uuid.UUID]*directory.Specialist{env.specialistID: {ID: env.specialistID, IsAvailable: true}},
	}, contendedLocker{}, nil, zerolog.Nop())

	_, err := svc.Create(context.Background(), env.createParams())
	assert.ErrorIs(t, err, ErrSlotContended)
}

func TestConfirmBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	confirmed, err := env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, []uuid.UUID{b.ID}, env.notifier.confirmed)
}

func TestCancelBookingRecordsReason(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	reason := "patient request"
	cancelled, err := env.svc.Cancel(ctx, b.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)
	assert.Equal(t, []uuid.UUID{b.ID}, env.notifier.cancelled)
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	_, err = env.svc.Complete(ctx, b.ID)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StatusPending, stateErr.Current)
	assert.Equal(t, StatusCompleted, stateErr.Attempted)

	_, err = env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	completed, err := env.svc.Complete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
}

func TestMarkNoShowRequiresConfirmed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	_, err = env.svc.MarkNoShow(ctx, b.ID)
	var stateErr *InvalidStateError
	assert.ErrorAs(t, err, &stateErr)

	_, err = env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	marked, err := env.svc.MarkNoShow(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, marked.Status)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)
	_, err = env.svc.Cancel(ctx, b.ID, nil)
	require.NoError(t, err)

	_, err = env.svc.Confirm(ctx, b.ID)
	var stateErr *InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
	_, err = env.svc.Cancel(ctx, b.ID, nil)
	assert.ErrorAs(t, err, &stateErr)
}

func TestUpdateNotesOnTerminalBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)
	_, err = env.svc.Cancel(ctx, b.ID, nil)
	require.NoError(t, err)

	notes := "followup scheduled elsewhere"
	updated, err := env.svc.Update(ctx, b.ID, UpdateParams{SpecialistNotes: &notes})
	require.NoError(t, err, "notes stay editable after a terminal transition")
	require.NotNil(t, updated.SpecialistNotes)
	assert.Equal(t, notes, *updated.SpecialistNotes)
}

func TestUpdateRescheduleOnTerminalBookingRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)
	_, err = env.svc.Cancel(ctx, b.ID, nil)
	require.NoError(t, err)

	newStart := slotStart.Add(2 * time.Hour)
	_, err = env.svc.Update(ctx, b.ID, UpdateParams{StartTime: &newStart})
	var stateErr *InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestUpdateRescheduleExcludesOwnInterval(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	// Shifting by 15 minutes overlaps the booking's own old interval only.
	newStart := slotStart.Add(15 * time.Minute)
	updated, err := env.svc.Update(ctx, b.ID, UpdateParams{StartTime: &newStart})
	require.NoError(t, err)
	assert.Equal(t, newStart, updated.StartTime)
}

func TestUpdateRescheduleConflicts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	p := env.createParams()
	p.StartTime = slotStart.Add(time.Hour)
	_, err = env.svc.Create(ctx, p)
	require.NoError(t, err)

	newStart := slotStart.Add(30 * time.Minute)
	_, err = env.svc.Update(ctx, b.ID, UpdateParams{StartTime: &newStart})
	var slotErr *SlotUnavailableError
	assert.ErrorAs(t, err, &slotErr)
}

func TestCreateSessionRequiresConfirmed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)

	_, err = env.svc.CreateSession(ctx, b.ID, SessionParams{Notes: "intro"})
	var stateErr *InvalidStateError
	assert.ErrorAs(t, err, &stateErr)

	_, err = env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	sess, err := env.svc.CreateSession(ctx, b.ID, SessionParams{Notes: "intro"})
	require.NoError(t, err)
	assert.Equal(t, b.ID, sess.BookingID)
}

func TestCreateSessionOnlyOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	_, err = env.svc.CreateSession(ctx, b.ID, SessionParams{})
	require.NoError(t, err)

	_, err = env.svc.CreateSession(ctx, b.ID, SessionParams{})
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestUpdateSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b, err := env.svc.Create(ctx, env.createParams())
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	sess, err := env.svc.CreateSession(ctx, b.ID, SessionParams{Notes: "intro"})
	require.NoError(t, err)

	ended := slotStart.Add(time.Hour)
	updated, err := env.svc.UpdateSession(ctx, sess.ID, SessionParams{
		EndedAt: &ended,
		Summary: "good progress",
	})
	require.NoError(t, err)
	assert.Equal(t, "intro", updated.Notes)
	assert.Equal(t, "good progress", updated.Summary)
	require.NotNil(t, updated.EndedAt)
	assert.Equal(t, ended, *updated.EndedAt)

	fetched, err := env.svc.GetSessionForBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, fetched.ID)
}
