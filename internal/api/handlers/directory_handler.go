package handlers

import (
	"context"
	"net/http"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// PatientLister lists the patients available for new episodes
type PatientLister interface {
	List(ctx context.Context) ([]*entities.Patient, error)
}

// DoctorLister lists doctors by role
type DoctorLister interface {
	ListResidents(ctx context.Context) ([]*entities.User, error)
	ListSupervisors(ctx context.Context) ([]*entities.User, error)
}

// DirectoryHandler serves the patient and doctor pickers
type DirectoryHandler struct {
	patients PatientLister
	doctors  DoctorLister
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(patients PatientLister, doctors DoctorLister) *DirectoryHandler {
	return &DirectoryHandler{patients: patients, doctors: doctors}
}

// ListPatients handles GET /api/v1/patients
func (h *DirectoryHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// ListResidents handles GET /api/v1/doctors/residents
func (h *DirectoryHandler) ListResidents(w http.ResponseWriter, r *http.Request) {
	h.respondWithDoctors(w, r, h.doctors.ListResidents)
}

// ListSupervisors handles GET /api/v1/doctors/supervisors
func (h *DirectoryHandler) ListSupervisors(w http.ResponseWriter, r *http.Request) {
	h.respondWithDoctors(w, r, h.doctors.ListSupervisors)
}

func (h *DirectoryHandler) respondWithDoctors(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]*entities.User, error)) {
	doctors, err := list(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": doctors,
		"count":   len(doctors),
	})
}
