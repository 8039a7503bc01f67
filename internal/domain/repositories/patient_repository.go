package repositories

import (
	"context"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// Create creates a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// List retrieves non-deleted patients ordered by first name
	List(ctx context.Context) ([]*entities.Patient, error)

	// ListIDsByInsuranceCompany returns the ids of an insurer's patients
	ListIDsByInsuranceCompany(ctx context.Context, insuranceCompanyID int64) ([]string, error)
}
