package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindbridge/counselling-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	specializationIDs, err := seedSpecializations(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed specializations: %v", err)
	}
	if err := seedSpecialists(context.Background(), pool, 100, specializationIDs); err != nil {
		log.Fatalf("seed specialists: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 9000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

var specializationNames = []string{
	"Anxiety",
	"Depression",
	"Couples Therapy",
	"Family Therapy",
	"Trauma",
	"Addiction",
	"Grief Counselling",
	"Career Counselling",
	"Child Psychology",
	"Stress Management",
}

func seedSpecializations(ctx context.Context, pool *pgxpool.Pool) ([]int, error) {
	log.Printf("seeding %d specializations", len(specializationNames))

	ids := make([]int, 0, len(specializationNames))
	for _, name := range specializationNames {
		var id int
		err := pool.QueryRow(ctx, `
			INSERT INTO specializations (name)
			VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	log.Println("specializations seeded")
	return ids, nil
}

func seedSpecialists(ctx context.Context, pool *pgxpool.Pool, count int, specializationIDs []int) error {
	log.Printf("seeding %d specialists", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		bio := gofakeit.Sentence(12)
		rate := float64(gofakeit.Number(40, 200))
		years := gofakeit.Number(1, 30)

		_, err := tx.Exec(ctx, `
			INSERT INTO specialists (id, name, bio, hourly_rate, years_experience, is_available, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, id, name, bio, rate, years)
		if err != nil {
			return err
		}

		// One to three specializations each.
		n := gofakeit.Number(1, 3)
		seen := make(map[int]bool, n)
		for len(seen) < n {
			specID := specializationIDs[gofakeit.Number(0, len(specializationIDs)-1)]
			if seen[specID] {
				continue
			}
			seen[specID] = true
			_, err := tx.Exec(ctx, `
				INSERT INTO specialist_specializations (specialist_id, specialization_id)
				VALUES ($1, $2)
			`, id, specID)
			if err != nil {
				return err
			}
		}

		// A weekday schedule: morning block plus an afternoon block most days.
		for _, day := range days {
			if gofakeit.Number(0, 9) == 0 {
				continue
			}
			startHour := gofakeit.Number(8, 10)
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_windows (id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, true, now(), now())
			`, uuid.New(), id, day, startHour*60, (startHour+4)*60)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO availability_windows (id, specialist_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, true, now(), now())
			`, uuid.New(), id, day, 14*60, 18*60)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("specialists seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
