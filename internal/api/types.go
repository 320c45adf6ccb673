package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/mindbridge/counselling-booking/internal/availability"
	"github.com/mindbridge/counselling-booking/internal/booking"
	"github.com/mindbridge/counselling-booking/internal/directory"
	"github.com/mindbridge/counselling-booking/internal/schedule"
)

// Availability

type WindowRequest struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"` // "09:00"
	EndTime   string `json:"end_time"`   // "12:00"
	Active    *bool  `json:"active,omitempty"`
}

type BulkWindowsRequest struct {
	Windows []WindowRequest `json:"windows"`
}

type WindowUpdateRequest struct {
	DayOfWeek *string `json:"day_of_week,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type WindowResponse struct {
	ID           uuid.UUID `json:"id"`
	SpecialistID uuid.UUID `json:"specialist_id"`
	DayOfWeek    string    `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toWindowResponse(w availability.Window) WindowResponse {
	return WindowResponse{
		ID:           w.ID,
		SpecialistID: w.SpecialistID,
		DayOfWeek:    string(w.Day),
		StartTime:    w.Start.String(),
		EndTime:      w.End.String(),
		Active:       w.Active,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

func toWindowResponses(ws []availability.Window) []WindowResponse {
	out := make([]WindowResponse, len(ws))
	for i, w := range ws {
		out[i] = toWindowResponse(w)
	}
	return out
}

type SlotResponse struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

func toSlotResponses(slots []schedule.Slot) []SlotResponse {
	out := make([]SlotResponse, len(slots))
	for i, s := range slots {
		out[i] = SlotResponse{
			Start:           s.Start,
			End:             s.End,
			DurationMinutes: int(s.Duration / time.Minute),
		}
	}
	return out
}

// Bookings

type CreateBookingRequest struct {
	PatientID       string    `json:"patient_id"`
	SpecialistID    string    `json:"specialist_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           *string   `json:"notes,omitempty"`
}

type UpdateBookingRequest struct {
	StartTime          *time.Time `json:"start_time,omitempty"`
	DurationMinutes    *int       `json:"duration_minutes,omitempty"`
	PatientNotes       *string    `json:"patient_notes,omitempty"`
	SpecialistNotes    *string    `json:"specialist_notes,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type BookingResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	SpecialistID       uuid.UUID  `json:"specialist_id"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	DurationMinutes    int        `json:"duration_minutes"`
	Status             string     `json:"status"`
	PatientNotes       *string    `json:"patient_notes,omitempty"`
	SpecialistNotes    *string    `json:"specialist_notes,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	PatientName        string     `json:"patient_name,omitempty"`
	SpecialistName     string     `json:"specialist_name,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		PatientID:          b.PatientID,
		SpecialistID:       b.SpecialistID,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime(),
		DurationMinutes:    b.DurationMinutes,
		Status:             string(b.Status),
		PatientNotes:       b.PatientNotes,
		SpecialistNotes:    b.SpecialistNotes,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
	}
}

func toBookingDetailResponse(d *booking.BookingDetail) BookingResponse {
	resp := toBookingResponse(&d.Booking)
	resp.PatientName = d.PatientName
	resp.SpecialistName = d.SpecialistName
	return resp
}

func toBookingListResponse(ds []booking.BookingDetail) []BookingResponse {
	out := make([]BookingResponse, len(ds))
	for i := range ds {
		out[i] = toBookingDetailResponse(&ds[i])
	}
	return out
}

// Sessions

type SessionRequest struct {
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Summary   string     `json:"summary,omitempty"`
}

type SessionResponse struct {
	ID        uuid.UUID  `json:"id"`
	BookingID uuid.UUID  `json:"booking_id"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toSessionResponse(s *booking.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		BookingID: s.BookingID,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Notes:     s.Notes,
		Summary:   s.Summary,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Directory

type SpecialistResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio,omitempty"`
	HourlyRate      float64   `json:"hourly_rate"`
	YearsExperience int       `json:"years_experience"`
	IsAvailable     bool      `json:"is_available"`
	Specializations []string  `json:"specializations,omitempty"`
}

func toSpecialistResponse(s *directory.Specialist) SpecialistResponse {
	return SpecialistResponse{
		ID:              s.ID,
		Name:            s.Name,
		Bio:             s.Bio,
		HourlyRate:      s.HourlyRate,
		YearsExperience: s.YearsExperience,
		IsAvailable:     s.IsAvailable,
		Specializations: s.Specializations,
	}
}

type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}
