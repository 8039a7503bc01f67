package services

import (
	"context"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
)

// PatientService lists patients
type PatientService struct {
	repo repositories.PatientRepository
}

// NewPatientService creates a new patient service
func NewPatientService(repo repositories.PatientRepository) *PatientService {
	return &PatientService{repo: repo}
}

// List returns non-deleted patients ordered by first name
func (s *PatientService) List(ctx context.Context) ([]*entities.Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []*entities.Patient{}
	}
	return patients, nil
}

// DoctorService lists residents and supervisors
type DoctorService struct {
	users repositories.UserRepository
}

// NewDoctorService creates a new doctor service
func NewDoctorService(users repositories.UserRepository) *DoctorService {
	return &DoctorService{users: users}
}

// ListResidents returns active residents ordered by first name
func (s *DoctorService) ListResidents(ctx context.Context) ([]*entities.User, error) {
	return s.listByRole(ctx, entities.UserRoleResident)
}

// ListSupervisors returns active supervisors ordered by first name
func (s *DoctorService) ListSupervisors(ctx context.Context) ([]*entities.User, error) {
	return s.listByRole(ctx, entities.UserRoleSupervisor)
}

func (s *DoctorService) listByRole(ctx context.Context, role entities.UserRole) ([]*entities.User, error) {
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*entities.User{}
	}
	return users, nil
}
