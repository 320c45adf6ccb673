package notify

import (
	"context"

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

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n               Notification
		channel, status string
	)

	err := row.Scan(
		&n.ID,
		&n.BookingID,
		&channel,
		&n.Recipient,
		&n.Subject,
		&n.Body,
		&status,
		&n.Attempts,
		&n.CreatedAt,
		&n.SentAt,
	)
	if err != nil {
		return nil, err
	}

	n.Channel = Channel(channel)
	n.Status = Status(status)
	return &n, nil
}

func (r *PgRepository) Enqueue(ctx context.Context, n *Notification) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, booking_id, channel, recipient, subject, body, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'queued', 0, now())
		RETURNING id, booking_id, channel, recipient, subject, body, status, attempts, created_at, sent_at
	`, n.ID, n.BookingID, string(n.Channel), n.Recipient, n.Subject, n.Body)

	created, err := scanNotification(row)
	if err != nil {
		return err
	}
	*n = *created
	return nil
}

func (r *PgRepository) NextBatch(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_id, channel, recipient, subject, body, status, attempts, created_at, sent_at
		FROM notifications
		WHERE status = 'queued'
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent',
		    attempts = attempts + 1,
		    sent_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *PgRepository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, max int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'queued' END
		WHERE id = $1
	`, id, max)
	return err
}
