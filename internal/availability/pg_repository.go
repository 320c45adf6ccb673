package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindbridge/counselling-booking/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		day        string
		start, end int
	)

	err := row.Scan(
		&w.ID,
		&w.SpecialistID,
		&day,
		&start,
		&end,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.Day = DayOfWeek(day)
	w.Start = schedule.TimeOfDay(start)
	w.End = schedule.TimeOfDay(end)
	return &w, nil
}

func (r *PgRepository) GetWindowByID(ctx context.Context, id uuid.UUID) (*Window, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
		FROM availability_windows
		WHERE id = $1
	`, id)
	return scanWindow(row)
}

func (r *PgRepository) ListWindows(ctx context.Context, specialistID uuid.UUID, filter WindowFilter) ([]Window, error) {
	var day *string
	if filter.Day != nil {
		d := string(*filter.Day)
		day = &d
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
		FROM availability_windows
		WHERE specialist_id = $1
		  AND ($2::text IS NULL OR day_of_week = $2)
		  AND ($3::bool = false OR active)
		ORDER BY array_position(
		    ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'],
		    day_of_week
		), start_minute
	`, specialistID, day, filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertWindow(ctx context.Context, w *Window) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows (id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
	`, w.ID, w.SpecialistID, string(w.Day), w.Start.Minutes(), w.End.Minutes(), w.Active)

	created, err := scanWindow(row)
	if err != nil {
		return err
	}
	*w = *created
	return nil
}

func (r *PgRepository) InsertWindows(ctx context.Context, ws []*Window) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, w := range ws {
		row := tx.QueryRow(ctx, `
			INSERT INTO availability_windows (id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			RETURNING id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
		`, w.ID, w.SpecialistID, string(w.Day), w.Start.Minutes(), w.End.Minutes(), w.Active)

		created, err := scanWindow(row)
		if err != nil {
			return err
		}
		*w = *created
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) UpdateWindow(ctx context.Context, w *Window) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_windows
		SET day_of_week = $2,
		    start_minute = $3,
		    end_minute = $4,
		    active = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
	`, w.ID, string(w.Day), w.Start.Minutes(), w.End.Minutes(), w.Active)

	updated, err := scanWindow(row)
	if err != nil {
		return err
	}
	*w = *updated
	return nil
}

func (r *PgRepository) DeleteWindow(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) DeleteAllForSpecialist(ctx context.Context, specialistID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availability_windows WHERE specialist_id = $1`, specialistID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) ListBookedIntervals(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, start_time + (duration_minutes * interval '1 minute')
		FROM bookings
		WHERE specialist_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, specialistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}
	return result, rows.Err()
}
