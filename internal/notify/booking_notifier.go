package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindbridge/counselling-booking/internal/booking"
	"github.com/mindbridge/counselling-booking/internal/directory"
)

// PatientDirectory resolves a patient's contact details.
type PatientDirectory interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// BookingNotifier translates booking lifecycle events into outbox rows.
// Every method is fire-and-forget: failures are logged, never returned.
type BookingNotifier struct {
	repo Repository
	dir  PatientDirectory
	log  zerolog.Logger
}

func NewBookingNotifier(repo Repository, dir PatientDirectory, log zerolog.Logger) *BookingNotifier {
	return &BookingNotifier{
		repo: repo,
		dir:  dir,
		log:  log.With().Str("component", "notifier").Logger(),
	}
}

func (bn *BookingNotifier) BookingConfirmed(ctx context.Context, d *booking.BookingDetail) {
	subject := "Your session is confirmed"
	body := fmt.Sprintf("Hi %s, your session with %s on %s is confirmed.",
		d.PatientName, d.SpecialistName, d.StartTime.Format("Mon 2 Jan 15:04"))
	bn.enqueueForPatient(ctx, d, subject, body)
}

func (bn *BookingNotifier) BookingCancelled(ctx context.Context, d *booking.BookingDetail) {
	subject := "Your session was cancelled"
	body := fmt.Sprintf("Hi %s, your session with %s on %s has been cancelled.",
		d.PatientName, d.SpecialistName, d.StartTime.Format("Mon 2 Jan 15:04"))
	if d.CancellationReason != nil && *d.CancellationReason != "" {
		body += " Reason: " + *d.CancellationReason
	}
	bn.enqueueForPatient(ctx, d, subject, body)
}

// enqueueForPatient queues one row per channel the patient can receive.
func (bn *BookingNotifier) enqueueForPatient(ctx context.Context, d *booking.BookingDetail, subject, body string) {
	patient, err := bn.dir.GetPatientByID(ctx, d.PatientID)
	if err != nil {
		bn.log.Warn().Err(err).Str("booking_id", d.ID.String()).Msg("patient lookup failed, dropping notification")
		return
	}

	bookingID := d.ID
	var queued []Notification

	if patient.Email != nil && *patient.Email != "" {
		queued = append(queued, Notification{
			ID:        uuid.New(),
			BookingID: &bookingID,
			Channel:   ChannelEmail,
			Recipient: *patient.Email,
			Subject:   subject,
			Body:      body,
		})
	}
	if patient.Phone != nil && *patient.Phone != "" {
		queued = append(queued, Notification{
			ID:        uuid.New(),
			BookingID: &bookingID,
			Channel:   ChannelSMS,
			Recipient: *patient.Phone,
			Body:      body,
		})
	}

	// Enqueue with a short deadline of its own so a slow outbox cannot stall
	// the booking transition that triggered it.
	enqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	for _, n := range queued {
		n := n
		if err := bn.repo.Enqueue(enqCtx, &n); err != nil {
			bn.log.Warn().Err(err).
				Str("booking_id", d.ID.String()).
				Str("channel", string(n.Channel)).
				Msg("enqueue notification failed")
		}
	}
}
