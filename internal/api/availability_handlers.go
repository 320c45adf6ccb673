package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mindbridge/counselling-booking/internal/availability"
	"github.com/mindbridge/counselling-booking/internal/directory"
	"github.com/mindbridge/counselling-booking/internal/schedule"
)

func windowParamsFromRequest(req WindowRequest) (availability.WindowParams, error) {
	start, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return availability.WindowParams{}, err
	}
	end, err := schedule.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return availability.WindowParams{}, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return availability.WindowParams{
		Day:    availability.DayOfWeek(req.DayOfWeek),
		Start:  start,
		End:    end,
		Active: active,
	}, nil
}

func addWindowHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		var req WindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params, err := windowParamsFromRequest(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		win, err := svc.AddWindow(r.Context(), specialistID, params)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponse(*win))
	}
}

func bulkAddWindowsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		var req BulkWindowsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params := make([]availability.WindowParams, 0, len(req.Windows))
		for _, wr := range req.Windows {
			p, err := windowParamsFromRequest(wr)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			params = append(params, p)
		}

		created, err := svc.BulkAddWindows(r.Context(), specialistID, params)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponses(created))
	}
}

func listWindowsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		var filter availability.WindowFilter
		if d := r.URL.Query().Get("day"); d != "" {
			day := availability.DayOfWeek(d)
			if !day.Valid() {
				writeError(w, http.StatusBadRequest, "invalid_day", "unknown day of week")
				return
			}
			filter.Day = &day
		}
		filter.ActiveOnly = r.URL.Query().Get("active") == "true"

		windows, err := svc.ListWindows(r.Context(), specialistID, filter)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponses(windows))
	}
}

func weeklyScheduleHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		ws, err := svc.WeeklySchedule(r.Context(), specialistID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := make(map[string][]WindowResponse, len(availability.WeekDays))
		for _, day := range availability.WeekDays {
			resp[string(day)] = toWindowResponses(ws.Days[day])
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateWindowHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		var req WindowUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var params availability.UpdateParams
		if req.DayOfWeek != nil {
			day := availability.DayOfWeek(*req.DayOfWeek)
			params.Day = &day
		}
		if req.StartTime != nil {
			start, err := schedule.ParseTimeOfDay(*req.StartTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			params.Start = &start
		}
		if req.EndTime != nil {
			end, err := schedule.ParseTimeOfDay(*req.EndTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			params.End = &end
		}
		params.Active = req.Active

		win, err := svc.UpdateWindow(r.Context(), id, params)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(*win))
	}
}

func removeWindowHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window_id", "id must be a valid UUID")
			return
		}

		deleted, err := svc.RemoveWindow(r.Context(), id)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
	}
}

func clearWindowsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		n, err := svc.ClearAll(r.Context(), specialistID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
	}
}

func openSlotsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		duration := 60 * time.Minute
		if d := r.URL.Query().Get("duration"); d != "" {
			minutes, err := parsePositiveInt(d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a positive integer of minutes")
				return
			}
			duration = time.Duration(minutes) * time.Minute
		}

		slots, err := svc.ComputeOpenSlots(r.Context(), specialistID, date, duration)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	var (
		conflictErr   *availability.ConflictError
		validationErr *availability.ValidationError
	)

	switch {
	case errors.Is(err, availability.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, directory.ErrSpecialistNotFound):
		writeError(w, http.StatusNotFound, "specialist_not_found", err.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, "window_conflict", err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
