package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/rs/zerolog/log"
)

// maxPatientBody caps POST /api/patients bodies; photos are references, not
// uploads.
const maxPatientBody = 1 << 20

// PatientHandler handles HTTP requests for the patient registry.
type PatientHandler struct {
	service services.PatientServiceProvider
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(service services.PatientServiceProvider) *PatientHandler {
	return &PatientHandler{service: service}
}

type countResponse struct {
	Count int `json:"count"`
}

// GetAll returns every patient, most recently admitted first.
func (h *PatientHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.ListPatients(r.Context())
	if err != nil {
		writeInternalError(w, err, "Failed to list patients")
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// Get returns one patient, or 404 with an empty body.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	patient, err := h.service.GetPatient(r.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, err, "Failed to get patient")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// Create adds a patient and replies 201 {"id": n}.
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var patient models.Patient
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPatientBody)).Decode(&patient); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	id, err := h.service.AddPatient(r.Context(), patient)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing required fields", Fields: ve.Fields})
			return
		}
		writeInternalError(w, err, "Failed to add patient")
		return
	}

	log.Info().Int64("patient_id", id).Msg("Patient added")
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// Delete removes a patient. Missing patients are acknowledged the same way.
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.service.DeletePatient(r.Context(), id); err != nil {
		writeInternalError(w, err, "Failed to delete patient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Count counts patients, optionally filtered by ?type=.
func (h *PatientHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.CountPatients(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeInternalError(w, err, "Failed to count patients")
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// CountByStatus counts patients with ?status=. Without the parameter nothing
// matches.
func (h *PatientHandler) CountByStatus(w http.ResponseWriter, r *http.Request) {
	var status *string
	if q := r.URL.Query(); q.Has("status") {
		s := q.Get("status")
		status = &s
	}

	n, err := h.service.CountByStatus(r.Context(), status)
	if err != nil {
		writeInternalError(w, err, "Failed to count patients by status")
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// Recent returns the ?limit= (default 5) most recently admitted patients.
func (h *PatientHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultRecentLimit
	if q := r.URL.Query(); q.Has("limit") {
		n, err := strconv.Atoi(q.Get("limit"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer", Fields: []string{"limit"}})
			return
		}
		limit = n
	}

	patients, err := h.service.RecentPatients(r.Context(), limit)
	if services.IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer", Fields: []string{"limit"}})
		return
	}
	if err != nil {
		writeInternalError(w, err, "Failed to list recent patients")
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// patientID parses the {id} route parameter.
func patientID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
