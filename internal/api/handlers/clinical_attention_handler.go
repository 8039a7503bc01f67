package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const maxImportUpload = 10 << 20

// ClinicalAttentionService is the episode workflow the handler drives
type ClinicalAttentionService interface {
	List(ctx context.Context, params services.ListClinicalAttentionsParams) (*services.ClinicalAttentionList, error)
	Get(ctx context.Context, id string) (*services.ClinicalAttentionView, error)
	Create(ctx context.Context, input services.CreateClinicalAttentionInput) (*services.ClinicalAttentionView, error)
	Update(ctx context.Context, id string, input services.UpdateClinicalAttentionInput, editorID string) (*services.ClinicalAttentionView, error)
	MedicApproval(ctx context.Context, id, medicID string, approved bool, reason string) (*services.ClinicalAttentionView, error)
	SupervisorApproval(ctx context.Context, id, supervisorID string, approved bool, observation *string) (*services.ClinicalAttentionView, error)
	Delete(ctx context.Context, id, deletedByID string) error
	Close(ctx context.Context, id, closedByID string, reason entities.ClosingReason) (*services.ActionResult, error)
	Reopen(ctx context.Context, id, reopenedByID string) (*services.ActionResult, error)
}

// PertinenceImporter applies an insurer's pertinence spreadsheet
type PertinenceImporter interface {
	ImportCSV(ctx context.Context, insuranceCompanyID int64, r io.Reader) (*services.ImportResult, error)
}

// ClinicalAttentionHandler handles episode HTTP requests
type ClinicalAttentionHandler struct {
	service  ClinicalAttentionService
	importer PertinenceImporter
}

// NewClinicalAttentionHandler creates a new clinical attention handler
func NewClinicalAttentionHandler(service ClinicalAttentionService, importer PertinenceImporter) *ClinicalAttentionHandler {
	return &ClinicalAttentionHandler{service: service, importer: importer}
}

// ListClinicalAttentions handles GET /api/v1/clinical-attentions
func (h *ClinicalAttentionHandler) ListClinicalAttentions(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query := r.URL.Query()
	list, err := h.service.List(r.Context(), services.ListClinicalAttentionsParams{
		Page:               page,
		PageSize:           pageSize,
		Search:             query.Get("search"),
		Order:              query.Get("order"),
		ResidentDoctorID:   query.Get("resident_doctor_id"),
		PatientSearch:      query.Get("patient_search"),
		DoctorSearch:       query.Get("doctor_search"),
		MedicApproved:      entities.ApprovalFilter(query.Get("medic_approved")),
		SupervisorApproved: entities.ApprovalFilter(query.Get("supervisor_approved")),
		CurrentUserID:      currentUserID(r),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// GetClinicalAttention handles GET /api/v1/clinical-attentions/{id}
func (h *ClinicalAttentionHandler) GetClinicalAttention(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

type createClinicalAttentionRequest struct {
	IDEpisodio         *string         `json:"id_episodio"`
	PatientID          json.RawMessage `json:"patient_id"`
	Patient            json.RawMessage `json:"patient"`
	ResidentDoctorID   string          `json:"resident_doctor_id"`
	SupervisorDoctorID *string         `json:"supervisor_doctor_id"`
	Diagnostic         string          `json:"diagnostic"`
}

// CreateClinicalAttention handles POST /api/v1/clinical-attentions
func (h *ClinicalAttentionHandler) CreateClinicalAttention(w http.ResponseWriter, r *http.Request) {
	var req createClinicalAttentionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	patientID, nested, err := parsePatientRef(req.PatientID, req.Patient)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	view, err := h.service.Create(r.Context(), services.CreateClinicalAttentionInput{
		IDEpisodio:         req.IDEpisodio,
		PatientID:          patientID,
		Patient:            nested,
		ResidentDoctorID:   req.ResidentDoctorID,
		SupervisorDoctorID: req.SupervisorDoctorID,
		Diagnostic:         req.Diagnostic,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, view)
}

type updateClinicalAttentionRequest struct {
	IDEpisodio            *string         `json:"id_episodio"`
	PatientID             json.RawMessage `json:"patient_id"`
	Patient               json.RawMessage `json:"patient"`
	ResidentDoctorID      *string         `json:"resident_doctor_id"`
	SupervisorDoctorID    *string         `json:"supervisor_doctor_id"`
	Diagnostic            *string         `json:"diagnostic"`
	IsDeleted             *bool           `json:"is_deleted"`
	MedicApproved         *bool           `json:"medic_approved"`
	OverwrittenReason     *string         `json:"overwritten_reason"`
	OverwrittenByID       *string         `json:"overwritten_by_id"`
	SupervisorApproved    *bool           `json:"supervisor_approved"`
	SupervisorObservation *string         `json:"supervisor_observation"`
	Pertinencia           *bool           `json:"pertinencia"`
}

// UpdateClinicalAttention handles PATCH /api/v1/clinical-attentions/{id}
func (h *ClinicalAttentionHandler) UpdateClinicalAttention(w http.ResponseWriter, r *http.Request) {
	var req updateClinicalAttentionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	input := services.UpdateClinicalAttentionInput{
		IDEpisodio:            req.IDEpisodio,
		ResidentDoctorID:      req.ResidentDoctorID,
		SupervisorDoctorID:    req.SupervisorDoctorID,
		Diagnostic:            req.Diagnostic,
		IsDeleted:             req.IsDeleted,
		MedicApproved:         req.MedicApproved,
		OverwrittenReason:     req.OverwrittenReason,
		OverwrittenByID:       req.OverwrittenByID,
		SupervisorApproved:    req.SupervisorApproved,
		SupervisorObservation: req.SupervisorObservation,
		Pertinencia:           req.Pertinencia,
	}

	if len(req.PatientID) > 0 || len(req.Patient) > 0 {
		patientID, nested, err := parsePatientRef(req.PatientID, req.Patient)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		if patientID != "" {
			input.PatientID = &patientID
		}
		input.Patient = nested
	}

	view, err := h.service.Update(r.Context(), r.PathValue("id"), input, currentUserID(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

type deleteClinicalAttentionRequest struct {
	DeletedByID string `json:"deleted_by_id"`
}

// DeleteClinicalAttention handles DELETE /api/v1/clinical-attentions/{id}
func (h *ClinicalAttentionHandler) DeleteClinicalAttention(w http.ResponseWriter, r *http.Request) {
	var req deleteClinicalAttentionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), r.PathValue("id"), firstNonEmpty(req.DeletedByID, currentUserID(r))); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type medicApprovalRequest struct {
	MedicID  string `json:"medic_id"`
	Approved *bool  `json:"approved"`
	Reason   string `json:"reason"`
}

// MedicApproval handles POST /api/v1/clinical-attentions/{id}/medic-approval
func (h *ClinicalAttentionHandler) MedicApproval(w http.ResponseWriter, r *http.Request) {
	var req medicApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.Approved == nil {
		respondWithError(w, http.StatusBadRequest, "approved is required")
		return
	}

	view, err := h.service.MedicApproval(r.Context(), r.PathValue("id"),
		firstNonEmpty(req.MedicID, currentUserID(r)), *req.Approved, req.Reason)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

type supervisorApprovalRequest struct {
	SupervisorID string  `json:"supervisor_id"`
	Approved     *bool   `json:"approved"`
	Observation  *string `json:"observation"`
}

// SupervisorApproval handles POST /api/v1/clinical-attentions/{id}/supervisor-approval
func (h *ClinicalAttentionHandler) SupervisorApproval(w http.ResponseWriter, r *http.Request) {
	var req supervisorApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.Approved == nil {
		respondWithError(w, http.StatusBadRequest, "approved is required")
		return
	}

	view, err := h.service.SupervisorApproval(r.Context(), r.PathValue("id"),
		firstNonEmpty(req.SupervisorID, currentUserID(r)), *req.Approved, req.Observation)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

type closeClinicalAttentionRequest struct {
	ClosingReason string `json:"closing_reason"`
	ClosedByID    string `json:"closed_by_id"`
}

// CloseClinicalAttention handles POST /api/v1/clinical-attentions/{id}/close
func (h *ClinicalAttentionHandler) CloseClinicalAttention(w http.ResponseWriter, r *http.Request) {
	var req closeClinicalAttentionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.Close(r.Context(), r.PathValue("id"),
		firstNonEmpty(req.ClosedByID, currentUserID(r)), entities.ClosingReason(req.ClosingReason))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

type reopenClinicalAttentionRequest struct {
	ReopenedByID string `json:"reopened_by_id"`
}

// ReopenClinicalAttention handles POST /api/v1/clinical-attentions/{id}/reopen
func (h *ClinicalAttentionHandler) ReopenClinicalAttention(w http.ResponseWriter, r *http.Request) {
	var req reopenClinicalAttentionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.Reopen(r.Context(), r.PathValue("id"), firstNonEmpty(req.ReopenedByID, currentUserID(r)))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ImportPertinence handles POST /api/v1/insurance-companies/{id}/pertinence-import.
// The CSV is read from the "file" form field.
func (h *ClinicalAttentionHandler) ImportPertinence(w http.ResponseWriter, r *http.Request) {
	insuranceCompanyID, err := pathInt64(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "a CSV file is required in the \"file\" field")
		return
	}
	defer file.Close()

	if name := strings.ToLower(header.Filename); strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xls") {
		respondWithError(w, http.StatusBadRequest, "only CSV files are supported")
		return
	}

	result, err := h.importer.ImportCSV(r.Context(), insuranceCompanyID, file)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// parsePatientRef accepts a patient given either as an id string or as a
// nested object, in patient_id or in patient.
func parsePatientRef(fields ...json.RawMessage) (string, *services.NestedPatientInput, error) {
	for _, raw := range fields {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		switch raw[0] {
		case '"':
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return "", nil, apperrors.NewValidationError("invalid patient id")
			}
			return id, nil, nil
		case '{':
			var nested services.NestedPatientInput
			if err := json.Unmarshal(raw, &nested); err != nil {
				return "", nil, apperrors.NewValidationError("invalid patient object")
			}
			return "", &nested, nil
		default:
			return "", nil, apperrors.NewValidationError("patient must be an id or an object")
		}
	}
	return "", nil, nil
}
