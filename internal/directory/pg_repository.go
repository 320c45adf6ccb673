package directory

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanSpecialist(row pgx.Row) (*Specialist, error) {
	var s Specialist

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Bio,
		&s.HourlyRate,
		&s.YearsExperience,
		&s.IsAvailable,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialistNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetSpecialistByID(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, bio, hourly_rate, years_experience, is_available, created_at, updated_at
		FROM specialists
		WHERE id = $1
	`, id)

	s, err := scanSpecialist(row)
	if err != nil {
		return nil, err
	}

	s.Specializations, err = r.specializationsFor(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PgRepository) ListSpecialists(ctx context.Context, filter ListFilter) ([]Specialist, error) {
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

	query := `
		SELECT DISTINCT s.id, s.name, s.bio, s.hourly_rate, s.years_experience,
		       s.is_available, s.created_at, s.updated_at
		FROM specialists s`
	args := []any{}

	if filter.Specialization != nil {
		query += `
		JOIN specialist_specializations ss ON ss.specialist_id = s.id
		JOIN specializations sp ON sp.id = ss.specialization_id AND sp.name = $1`
		args = append(args, *filter.Specialization)
	}

	query += `
		WHERE ($` + strconv.Itoa(len(args)+1) + `::bool = false OR s.is_available)
		ORDER BY s.name
		LIMIT $` + strconv.Itoa(len(args)+2) + ` OFFSET $` + strconv.Itoa(len(args)+3)
	args = append(args, filter.AvailableOnly, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Specialist
	for rows.Next() {
		s, err := scanSpecialist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		result[i].Specializations, err = r.specializationsFor(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (r *PgRepository) SetSpecialistAvailability(ctx context.Context, id uuid.UUID, available bool) (*Specialist, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE specialists
		SET is_available = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, bio, hourly_rate, years_experience, is_available, created_at, updated_at
	`, id, available)
	return scanSpecialist(row)
}

func (r *PgRepository) specializationsFor(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sp.name
		FROM specialist_specializations ss
		JOIN specializations sp ON sp.id = ss.specialization_id
		WHERE ss.specialist_id = $1
		ORDER BY sp.name
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
