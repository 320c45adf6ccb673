// Package notify implements the outbound notification outbox: booking events
// enqueue email/SMS rows, and a worker drains them through a Sender. The core
// never waits on delivery and delivery never feeds back into booking state.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// maxAttempts is how many delivery tries a notification gets before it is
// parked as failed.
const maxAttempts = 3

type Notification struct {
	ID        uuid.UUID
	BookingID *uuid.UUID
	Channel   Channel
	Recipient string
	Subject   string
	Body      string
	Status    Status
	Attempts  int
	CreatedAt time.Time
	SentAt    *time.Time
}

// Repository contains the DB interactions for the outbox.
type Repository interface {
	Enqueue(ctx context.Context, n *Notification) error
	// NextBatch returns up to limit queued notifications, oldest first.
	NextBatch(ctx context.Context, limit int) ([]Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	// MarkAttemptFailed bumps the attempt counter and parks the row as
	// failed once attempts reaches max.
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, max int) error
}

// Sender delivers one notification over its channel. The real email/SMS
// transports live outside this service; see LogSender.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}
