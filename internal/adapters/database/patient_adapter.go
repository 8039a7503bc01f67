package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const patientTable = "patients"

var patientColumns = []any{
	"id", "rut", "first_name", "last_name", "mother_last_name", "email",
	"age", "sex", "height", "weight", "insurance_company_id",
	"is_deleted", "created_at", "updated_at",
}

// PatientAdapter implements PatientRepository
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	record := goqu.Record{
		"id":                   patient.ID,
		"rut":                  patient.RUT,
		"first_name":           patient.FirstName,
		"last_name":            patient.LastName,
		"mother_last_name":     patient.MotherLastName,
		"email":                patient.Email,
		"age":                  patient.Age,
		"sex":                  patient.Sex,
		"height":               patient.Height,
		"weight":               patient.Weight,
		"insurance_company_id": patient.InsuranceCompanyID,
		"is_deleted":           false,
		"created_at":           patient.CreatedAt,
		"updated_at":           patient.UpdatedAt,
	}

	query, args, err := a.db.Insert(patientTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}

	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From(patientTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}

	return patient, nil
}

// List retrieves non-deleted patients ordered by first name
func (a *PatientAdapter) List(ctx context.Context) ([]*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From(patientTable).
		Where(goqu.Ex{"is_deleted": false}).
		Order(goqu.I("first_name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	defer rows.Close()

	patients := []*entities.Patient{}
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating patients", err)
	}

	return patients, nil
}

// ListIDsByInsuranceCompany returns the ids of an insurer's patients
func (a *PatientAdapter) ListIDsByInsuranceCompany(ctx context.Context, insuranceCompanyID int64) ([]string, error) {
	query, args, err := a.db.Select("id").
		From(patientTable).
		Where(goqu.Ex{"insurance_company_id": insuranceCompanyID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list insurer patients", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating patient ids", err)
	}

	return ids, nil
}

func scanPatient(scanner rowScanner) (*entities.Patient, error) {
	patient := &entities.Patient{}
	err := scanner.Scan(
		&patient.ID,
		&patient.RUT,
		&patient.FirstName,
		&patient.LastName,
		&patient.MotherLastName,
		&patient.Email,
		&patient.Age,
		&patient.Sex,
		&patient.Height,
		&patient.Weight,
		&patient.InsuranceCompanyID,
		&patient.IsDeleted,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return patient, nil
}
