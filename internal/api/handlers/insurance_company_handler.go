package handlers

import (
	"context"
	"net/http"

	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// InsuranceCompanyService manages insurers
type InsuranceCompanyService interface {
	List(ctx context.Context, page, pageSize int, search, order string) (*services.InsuranceCompanyList, error)
	Get(ctx context.Context, id int64) (*entities.InsuranceCompany, error)
	Create(ctx context.Context, input services.InsuranceCompanyInput) (*entities.InsuranceCompany, error)
	Update(ctx context.Context, id int64, input services.InsuranceCompanyInput) (*entities.InsuranceCompany, error)
	Delete(ctx context.Context, id int64) error
}

// InsuranceCompanyHandler handles insurer requests
type InsuranceCompanyHandler struct {
	service InsuranceCompanyService
}

// NewInsuranceCompanyHandler creates a new insurance company handler
func NewInsuranceCompanyHandler(service InsuranceCompanyService) *InsuranceCompanyHandler {
	return &InsuranceCompanyHandler{service: service}
}

// ListInsuranceCompanies handles GET /api/v1/insurance-companies
func (h *InsuranceCompanyHandler) ListInsuranceCompanies(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.service.List(r.Context(), page, pageSize, r.URL.Query().Get("search"), r.URL.Query().Get("order"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// GetInsuranceCompany handles GET /api/v1/insurance-companies/{id}
func (h *InsuranceCompanyHandler) GetInsuranceCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, company)
}

// CreateInsuranceCompany handles POST /api/v1/insurance-companies
func (h *InsuranceCompanyHandler) CreateInsuranceCompany(w http.ResponseWriter, r *http.Request) {
	var input services.InsuranceCompanyInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	company, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, company)
}

// UpdateInsuranceCompany handles PATCH /api/v1/insurance-companies/{id}
func (h *InsuranceCompanyHandler) UpdateInsuranceCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var input services.InsuranceCompanyInput
	if err := decodeJSON(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	company, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, company)
}

// DeleteInsuranceCompany handles DELETE /api/v1/insurance-companies/{id}
func (h *InsuranceCompanyHandler) DeleteInsuranceCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
