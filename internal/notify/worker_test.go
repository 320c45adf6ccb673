package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	rows map[uuid.UUID]*Notification
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{rows: make(map[uuid.UUID]*Notification)}
}

func (o *fakeOutbox) Enqueue(_ context.Context, n *Notification) error {
	cp := *n
	if cp.Status == "" {
		cp.Status = StatusQueued
	}
	o.rows[n.ID] = &cp
	return nil
}

func (o *fakeOutbox) NextBatch(_ context.Context, limit int) ([]Notification, error) {
	var out []Notification
	for _, n := range o.rows {
		if n.Status != StatusQueued {
			continue
		}
		out = append(out, *n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *fakeOutbox) MarkSent(_ context.Context, id uuid.UUID) error {
	n, ok := o.rows[id]
	if !ok {
		return errors.New("notification not found")
	}
	now := time.Now()
	n.Status = StatusSent
	n.SentAt = &now
	return nil
}

func (o *fakeOutbox) MarkAttemptFailed(_ context.Context, id uuid.UUID, max int) error {
	n, ok := o.rows[id]
	if !ok {
		return errors.New("notification not found")
	}
	n.Attempts++
	if n.Attempts >= max {
		n.Status = StatusFailed
	}
	return nil
}

func (o *fakeOutbox) countByStatus(s Status) int {
	var n int
	for _, row := range o.rows {
		if row.Status == s {
			n++
		}
	}
	return n
}

// flakySender fails delivery for recipients listed in failFor.
type flakySender struct {
	failFor   map[string]bool
	delivered []Notification
}

func (s *flakySender) Send(_ context.Context, n Notification) error {
	if s.failFor[n.Recipient] {
		return errors.New("gateway unavailable")
	}
	s.delivered = append(s.delivered, n)
	return nil
}

func queueNotification(t *testing.T, o *fakeOutbox, recipient string) uuid.UUID {
	t.Helper()
	n := &Notification{
		ID:        uuid.New(),
		Channel:   ChannelEmail,
		Recipient: recipient,
		Subject:   "Booking confirmed",
		Body:      "See you soon.",
	}
	require.NoError(t, o.Enqueue(context.Background(), n))
	return n.ID
}

func TestProcessBatchDeliversQueued(t *testing.T) {
	outbox := newFakeOutbox()
	sender := &flakySender{}
	queueNotification(t, outbox, "a@example.com")
	queueNotification(t, outbox, "b@example.com")

	w := NewWorker(outbox, sender, 10, time.Minute, zerolog.Nop())
	sent, failed, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Zero(t, failed)
	assert.Len(t, sender.delivered, 2)
	assert.Equal(t, 2, outbox.countByStatus(StatusSent))
	assert.Zero(t, outbox.countByStatus(StatusQueued))
}

func TestProcessBatchRespectsBatchSize(t *testing.T) {
	outbox := newFakeOutbox()
	sender := &flakySender{}
	for i := 0; i < 5; i++ {
		queueNotification(t, outbox, "a@example.com")
	}

	w := NewWorker(outbox, sender, 3, time.Minute, zerolog.Nop())
	sent, _, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sent)
	assert.Equal(t, 2, outbox.countByStatus(StatusQueued))
}

func TestProcessBatchKeepsFailedDeliveriesQueued(t *testing.T) {
	outbox := newFakeOutbox()
	sender := &flakySender{failFor: map[string]bool{"down@example.com": true}}
	okID := queueNotification(t, outbox, "a@example.com")
	badID := queueNotification(t, outbox, "down@example.com")

	w := NewWorker(outbox, sender, 10, time.Minute, zerolog.Nop())
	sent, failed, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, StatusSent, outbox.rows[okID].Status)
	assert.Equal(t, StatusQueued, outbox.rows[badID].Status, "failed delivery stays queued for retry")
	assert.Equal(t, 1, outbox.rows[badID].Attempts)
}

func TestProcessBatchParksAfterMaxAttempts(t *testing.T) {
	outbox := newFakeOutbox()
	sender := &flakySender{failFor: map[string]bool{"down@example.com": true}}
	id := queueNotification(t, outbox, "down@example.com")

	w := NewWorker(outbox, sender, 10, time.Minute, zerolog.Nop())
	for i := 0; i < maxAttempts; i++ {
		_, failed, err := w.ProcessBatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, failed)
	}

	assert.Equal(t, StatusFailed, outbox.rows[id].Status)
	assert.Equal(t, maxAttempts, outbox.rows[id].Attempts)

	// Parked rows are no longer picked up.
	sent, failed, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
}
