package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres raises exclusion_violation when an insert or update trips the
// bookings_no_overlap constraint.
const exclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const bookingColumns = `id, patient_id, specialist_id, start_time, duration_minutes, status,
	patient_notes, specialist_notes, cancellation_reason,
	created_at, updated_at, confirmed_at, cancelled_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b      Booking
		status string
	)

	err := row.Scan(
		&b.ID,
		&b.PatientID,
		&b.SpecialistID,
		&b.StartTime,
		&b.DurationMinutes,
		&status,
		&b.PatientNotes,
		&b.SpecialistNotes,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.ConfirmedAt,
		&b.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.Status = Status(status)
	return &b, nil
}

func scanDetail(row pgx.Row) (*BookingDetail, error) {
	var (
		d      BookingDetail
		status string
	)

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.SpecialistID,
		&d.StartTime,
		&d.DurationMinutes,
		&status,
		&d.PatientNotes,
		&d.SpecialistNotes,
		&d.CancellationReason,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ConfirmedAt,
		&d.CancelledAt,
		&d.PatientName,
		&d.SpecialistName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	d.Status = Status(status)
	return &d, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session

	err := row.Scan(
		&s.ID,
		&s.BookingID,
		&s.StartedAt,
		&s.EndedAt,
		&s.Notes,
		&s.Summary,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT b.id, b.patient_id, b.specialist_id, b.start_time, b.duration_minutes, b.status,
		       b.patient_notes, b.specialist_notes, b.cancellation_reason,
		       b.created_at, b.updated_at, b.confirmed_at, b.cancelled_at,
		       p.name, s.name
		FROM bookings b
		JOIN patients p ON p.id = b.patient_id
		JOIN specialists s ON s.id = b.specialist_id
		WHERE b.id = $1
	`, id)
	return scanDetail(row)
}

func (r *PgRepository) ListLiveOverlapping(ctx context.Context, specialistID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE specialist_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND start_time + (duration_minutes * interval '1 minute') > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time
	`, specialistID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateBooking(ctx context.Context, b *Booking) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, patient_id, specialist_id, start_time, duration_minutes, status,
		                      patient_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+bookingColumns+`
	`, b.ID, b.PatientID, b.SpecialistID, b.StartTime, b.DurationMinutes, string(b.Status), b.PatientNotes)

	created, err := scanBooking(row)
	if err != nil {
		if isExclusionViolation(err) {
			return &SlotUnavailableError{SpecialistID: b.SpecialistID, Start: b.StartTime, End: b.EndTime()}
		}
		return err
	}
	*b = *created
	return nil
}

func (r *PgRepository) UpdateBooking(ctx context.Context, b *Booking) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET start_time = $2,
		    duration_minutes = $3,
		    patient_notes = $4,
		    specialist_notes = $5,
		    cancellation_reason = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns+`
	`, b.ID, b.StartTime, b.DurationMinutes, b.PatientNotes, b.SpecialistNotes, b.CancellationReason)

	updated, err := scanBooking(row)
	if err != nil {
		if isExclusionViolation(err) {
			return &SlotUnavailableError{SpecialistID: b.SpecialistID, Start: b.StartTime, End: b.EndTime()}
		}
		return err
	}
	*b = *updated
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    confirmed_at = CASE WHEN $2 = 'confirmed' THEN now() ELSE confirmed_at END,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN now() ELSE cancelled_at END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns+`
	`, id, string(to), string(from), reason)

	return scanBooking(row)
}

const detailColumns = `b.id, b.patient_id, b.specialist_id, b.start_time, b.duration_minutes, b.status,
	b.patient_notes, b.specialist_notes, b.cancellation_reason,
	b.created_at, b.updated_at, b.confirmed_at, b.cancelled_at,
	p.name, s.name`

func (r *PgRepository) ListForPatient(ctx context.Context, patientID uuid.UUID, filter ListFilter) ([]BookingDetail, error) {
	limit, offset := clampPage(filter)

	rows, err := r.pool.Query(ctx, `
		SELECT `+detailColumns+`
		FROM bookings b
		JOIN patients p ON p.id = b.patient_id
		JOIN specialists s ON s.id = b.specialist_id
		WHERE b.patient_id = $1
		  AND ($2::text IS NULL OR b.status = $2)
		  AND ($3::timestamptz IS NULL OR b.start_time >= $3)
		  AND ($4::timestamptz IS NULL OR b.start_time <= $4)
		ORDER BY b.start_time DESC
		LIMIT $5 OFFSET $6
	`, patientID, statusArg(filter.Status), filter.From, filter.To, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListForSpecialist(ctx context.Context, specialistID uuid.UUID, filter ListFilter) ([]BookingDetail, error) {
	limit, offset := clampPage(filter)

	rows, err := r.pool.Query(ctx, `
		SELECT `+detailColumns+`
		FROM bookings b
		JOIN patients p ON p.id = b.patient_id
		JOIN specialists s ON s.id = b.specialist_id
		WHERE b.specialist_id = $1
		  AND ($2::text IS NULL OR b.status = $2)
		  AND ($3::timestamptz IS NULL OR b.start_time >= $3)
		  AND ($4::timestamptz IS NULL OR b.start_time <= $4)
		ORDER BY b.start_time ASC
		LIMIT $5 OFFSET $6
	`, specialistID, statusArg(filter.Status), filter.From, filter.To, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) CreateSession(ctx context.Context, sess *Session) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, booking_id, started_at, ended_at, notes, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, booking_id, started_at, ended_at, notes, summary, created_at, updated_at
	`, sess.ID, sess.BookingID, sess.StartedAt, sess.EndedAt, sess.Notes, sess.Summary)

	created, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSessionExists
		}
		return err
	}
	*sess = *created
	return nil
}

func (r *PgRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, started_at, ended_at, notes, summary, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

func (r *PgRepository) GetSessionByBookingID(ctx context.Context, bookingID uuid.UUID) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, started_at, ended_at, notes, summary, created_at, updated_at
		FROM sessions
		WHERE booking_id = $1
	`, bookingID)
	return scanSession(row)
}

func (r *PgRepository) UpdateSession(ctx context.Context, sess *Session) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE sessions
		SET started_at = $2,
		    ended_at = $3,
		    notes = $4,
		    summary = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, booking_id, started_at, ended_at, notes, summary, created_at, updated_at
	`, sess.ID, sess.StartedAt, sess.EndedAt, sess.Notes, sess.Summary)

	updated, err := scanSession(row)
	if err != nil {
		return err
	}
	*sess = *updated
	return nil
}

func collectDetails(rows pgx.Rows) ([]BookingDetail, error) {
	var result []BookingDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func clampPage(filter ListFilter) (int, int) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func statusArg(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}
