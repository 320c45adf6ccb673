package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mindbridge/counselling-booking/internal/booking"
	"github.com/mindbridge/counselling-booking/internal/directory"
	redisclient "github.com/mindbridge/counselling-booking/internal/redis"
)

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		specialistID, err := uuid.Parse(req.SpecialistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "specialist_id must be a valid UUID")
			return
		}

		b, err := svc.Create(r.Context(), booking.CreateParams{
			PatientID:       patientID,
			SpecialistID:    specialistID,
			StartTime:       req.StartTime,
			DurationMinutes: req.DurationMinutes,
			Notes:           req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingDetailResponse(detail))
	}
}

func updateBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req UpdateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.Update(r.Context(), id, booking.UpdateParams{
			StartTime:          req.StartTime,
			DurationMinutes:    req.DurationMinutes,
			PatientNotes:       req.PatientNotes,
			SpecialistNotes:    req.SpecialistNotes,
			CancellationReason: req.CancellationReason,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

// transitionHandler serves confirm, complete, and no-show.
func transitionHandler(apply func(r *http.Request, id uuid.UUID) (*booking.Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := apply(r, id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func confirmBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*booking.Booking, error) {
		return svc.Confirm(r.Context(), id)
	})
}

func completeBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*booking.Booking, error) {
		return svc.Complete(r.Context(), id)
	})
}

func noShowBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*booking.Booking, error) {
		return svc.MarkNoShow(r.Context(), id)
	})
}

func cancelBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*booking.Booking, error) {
		var req CancelBookingRequest
		// Body is optional on cancel.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, &booking.ValidationError{Field: "body", Reason: "could not parse JSON"}
		}
		return svc.Cancel(r.Context(), id, req.Reason)
	})
}

func listBookingsFilter(r *http.Request) (booking.ListFilter, error) {
	var filter booking.ListFilter

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := booking.Status(s)
		filter.Status = &status
	}
	if f := q.Get("from"); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if u := q.Get("to"); u != "" {
		t, err := time.Parse(time.RFC3339, u)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	if l := q.Get("limit"); l != "" {
		n, err := parsePositiveInt(l)
		if err != nil {
			return filter, err
		}
		filter.Limit = n
	}
	if o := q.Get("offset"); o != "" {
		n, err := parsePositiveInt(o)
		if err != nil {
			return filter, err
		}
		filter.Offset = n
	}

	return filter, nil
}

func listPatientBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		filter, err := listBookingsFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
			return
		}

		items, err := svc.ListForPatient(r.Context(), patientID, filter)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingListResponse(items))
	}
}

func listSpecialistBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		filter, err := listBookingsFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
			return
		}

		items, err := svc.ListForSpecialist(r.Context(), specialistID, filter)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingListResponse(items))
	}
}

func createSessionHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sess, err := svc.CreateSession(r.Context(), bookingID, booking.SessionParams{
			StartedAt: req.StartedAt,
			EndedAt:   req.EndedAt,
			Notes:     req.Notes,
			Summary:   req.Summary,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSessionResponse(sess))
	}
}

func getSessionHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		sess, err := svc.GetSessionForBooking(r.Context(), bookingID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func updateSessionHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}

		var req SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sess, err := svc.UpdateSession(r.Context(), id, booking.SessionParams{
			StartedAt: req.StartedAt,
			EndedAt:   req.EndedAt,
			Notes:     req.Notes,
			Summary:   req.Summary,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	var (
		slotErr       *booking.SlotUnavailableError
		stateErr      *booking.InvalidStateError
		validationErr *booking.ValidationError
	)

	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, directory.ErrSpecialistNotFound):
		writeError(w, http.StatusNotFound, "specialist_not_found", err.Error())
	case errors.Is(err, booking.ErrSpecialistUnavailable):
		writeError(w, http.StatusConflict, "specialist_unavailable", err.Error())
	case errors.Is(err, booking.ErrSessionExists):
		writeError(w, http.StatusConflict, "session_exists", err.Error())
	case errors.Is(err, booking.ErrSlotContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_contended", "slot is being booked by another request, retry shortly")
	case errors.As(err, &slotErr):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
