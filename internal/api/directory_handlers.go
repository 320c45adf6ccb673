package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mindbridge/counselling-booking/internal/directory"
)

func listSpecialistsHandler(repo directory.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter directory.ListFilter

		q := r.URL.Query()
		if s := q.Get("specialization"); s != "" {
			filter.Specialization = &s
		}
		filter.AvailableOnly = q.Get("available") == "true"
		if l := q.Get("limit"); l != "" {
			n, err := parsePositiveInt(l)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
				return
			}
			filter.Limit = n
		}
		if o := q.Get("offset"); o != "" {
			n, err := parsePositiveInt(o)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_offset", err.Error())
				return
			}
			filter.Offset = n
		}

		specialists, err := repo.ListSpecialists(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]SpecialistResponse, len(specialists))
		for i := range specialists {
			out[i] = toSpecialistResponse(&specialists[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getSpecialistHandler(repo directory.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		s, err := repo.GetSpecialistByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, directory.ErrSpecialistNotFound) {
				writeError(w, http.StatusNotFound, "specialist_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toSpecialistResponse(s))
	}
}

func setSpecialistAvailabilityHandler(repo directory.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
			return
		}

		var req SetAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		s, err := repo.SetSpecialistAvailability(r.Context(), id, req.IsAvailable)
		if err != nil {
			if errors.Is(err, directory.ErrSpecialistNotFound) {
				writeError(w, http.StatusNotFound, "specialist_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toSpecialistResponse(s))
	}
}
