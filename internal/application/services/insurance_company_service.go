package services

import (
	"context"
	"strings"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

// InsuranceCompanyService manages insurers
type InsuranceCompanyService struct {
	repo repositories.InsuranceCompanyRepository
}

// NewInsuranceCompanyService creates a new insurer service
func NewInsuranceCompanyService(repo repositories.InsuranceCompanyRepository) *InsuranceCompanyService {
	return &InsuranceCompanyService{repo: repo}
}

// InsuranceCompanyList is one page of insurers. Count and Total both hold
// the number of insurers matching the search.
type InsuranceCompanyList struct {
	Count    int                          `json:"count"`
	Total    int                          `json:"total"`
	Page     int                          `json:"page"`
	PageSize int                          `json:"page_size"`
	Results  []*entities.InsuranceCompany `json:"results"`
}

// List returns one page of insurers, ordered by legal name unless order is given
func (s *InsuranceCompanyService) List(ctx context.Context, page, pageSize int, search, order string) (*InsuranceCompanyList, error) {
	if page == 0 {
		page = defaultPage
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > maxPageSize {
		return nil, apperrors.NewValidationError("invalid pagination parameters")
	}

	search = strings.TrimSpace(search)
	companies, err := s.repo.List(ctx, repositories.InsuranceCompanyFilter{
		Search:  search,
		OrderBy: ParseOrder(order, "nombre_juridico"),
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Count(ctx, search)
	if err != nil {
		return nil, err
	}

	if companies == nil {
		companies = []*entities.InsuranceCompany{}
	}
	return &InsuranceCompanyList{
		Count:    count,
		Total:    count,
		Page:     page,
		PageSize: pageSize,
		Results:  companies,
	}, nil
}

// Get returns one insurer
func (s *InsuranceCompanyService) Get(ctx context.Context, id int64) (*entities.InsuranceCompany, error) {
	return s.repo.GetByID(ctx, id)
}

// InsuranceCompanyInput carries insurer fields; nil fields are left unchanged on update
type InsuranceCompanyInput struct {
	NombreComercial *string `json:"nombre_comercial"`
	NombreJuridico  *string `json:"nombre_juridico"`
	RUT             *string `json:"rut"`
}

// Create stores a new insurer
func (s *InsuranceCompanyService) Create(ctx context.Context, input InsuranceCompanyInput) (*entities.InsuranceCompany, error) {
	if input.NombreJuridico == nil || strings.TrimSpace(*input.NombreJuridico) == "" {
		return nil, apperrors.NewValidationError("nombre_juridico is required")
	}

	company := &entities.InsuranceCompany{
		NombreComercial: input.NombreComercial,
		NombreJuridico:  strings.TrimSpace(*input.NombreJuridico),
		RUT:             input.RUT,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, company.ID)
}

// Update applies the non-nil fields of input
func (s *InsuranceCompanyService) Update(ctx context.Context, id int64, input InsuranceCompanyInput) (*entities.InsuranceCompany, error) {
	company, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.NombreComercial == nil && input.NombreJuridico == nil && input.RUT == nil {
		return company, nil
	}

	if input.NombreComercial != nil {
		company.NombreComercial = input.NombreComercial
	}
	if input.NombreJuridico != nil {
		if strings.TrimSpace(*input.NombreJuridico) == "" {
			return nil, apperrors.NewValidationError("nombre_juridico cannot be empty")
		}
		company.NombreJuridico = strings.TrimSpace(*input.NombreJuridico)
	}
	if input.RUT != nil {
		company.RUT = input.RUT
	}

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes an insurer
func (s *InsuranceCompanyService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
