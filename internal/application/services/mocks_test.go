package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/pkg/tasks"
)

// Mocks

type MockCompletionProvider struct {
	mock.Mock
}

func (m *MockCompletionProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.CompletionResponse), args.Error(1)
}

func (m *MockCompletionProvider) Name() string {
	return "mock"
}

type MockUrgencyEvaluator struct {
	mock.Mock
}

func (m *MockUrgencyEvaluator) Evaluate(ctx context.Context, caseText string) (*entities.UrgencyOutput, error) {
	args := m.Called(ctx, caseText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UrgencyOutput), args.Error(1)
}

type MockClinicalAttentionRepository struct {
	mock.Mock
}

func (m *MockClinicalAttentionRepository) Create(ctx context.Context, attention *entities.ClinicalAttention) error {
	args := m.Called(ctx, attention)
	return args.Error(0)
}

func (m *MockClinicalAttentionRepository) GetByID(ctx context.Context, id string) (*entities.ClinicalAttention, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ClinicalAttention), args.Error(1)
}

func (m *MockClinicalAttentionRepository) GetDetail(ctx context.Context, id string) (*repositories.ClinicalAttentionRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.ClinicalAttentionRow), args.Error(1)
}

func (m *MockClinicalAttentionRepository) GetByEpisodeNumber(ctx context.Context, idEpisodio string) (*entities.ClinicalAttention, error) {
	args := m.Called(ctx, idEpisodio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ClinicalAttention), args.Error(1)
}

func (m *MockClinicalAttentionRepository) List(ctx context.Context, filter repositories.ClinicalAttentionFilter) ([]*repositories.ClinicalAttentionRow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.ClinicalAttentionRow), args.Error(1)
}

func (m *MockClinicalAttentionRepository) Count(ctx context.Context, filter repositories.ClinicalAttentionFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockClinicalAttentionRepository) CountAll(ctx context.Context, residentDoctorID string) (int, error) {
	args := m.Called(ctx, residentDoctorID)
	return args.Int(0), args.Error(1)
}

func (m *MockClinicalAttentionRepository) Update(ctx context.Context, id string, update repositories.ClinicalAttentionUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockClinicalAttentionRepository) SaveAIEvaluation(ctx context.Context, id string, evaluation repositories.AIEvaluation) error {
	args := m.Called(ctx, id, evaluation)
	return args.Error(0)
}

func (m *MockClinicalAttentionRepository) SoftDelete(ctx context.Context, id, deletedByID string, at time.Time) error {
	args := m.Called(ctx, id, deletedByID, at)
	return args.Error(0)
}

func (m *MockClinicalAttentionRepository) Close(ctx context.Context, id, closedByID string, reason entities.ClosingReason, at time.Time) error {
	args := m.Called(ctx, id, closedByID, reason, at)
	return args.Error(0)
}

func (m *MockClinicalAttentionRepository) Reopen(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClinicalAttentionRepository) ListOutcomes(ctx context.Context, window repositories.MetricsWindow, residentIDs, patientIDs []string) ([]repositories.EpisodeOutcome, error) {
	args := m.Called(ctx, window, residentIDs, patientIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.EpisodeOutcome), args.Error(1)
}

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *entities.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

func (m *MockPatientRepository) List(ctx context.Context) ([]*entities.Patient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Patient), args.Error(1)
}

func (m *MockPatientRepository) ListIDsByInsuranceCompany(ctx context.Context, insuranceCompanyID int64) ([]string, error) {
	args := m.Called(ctx, insuranceCompanyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role entities.UserRole) ([]*entities.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

func (m *MockUserRepository) ListActive(ctx context.Context) ([]*entities.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

type MockInsuranceCompanyRepository struct {
	mock.Mock
}

func (m *MockInsuranceCompanyRepository) Create(ctx context.Context, company *entities.InsuranceCompany) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockInsuranceCompanyRepository) GetByID(ctx context.Context, id int64) (*entities.InsuranceCompany, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InsuranceCompany), args.Error(1)
}

func (m *MockInsuranceCompanyRepository) List(ctx context.Context, filter repositories.InsuranceCompanyFilter) ([]*entities.InsuranceCompany, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.InsuranceCompany), args.Error(1)
}

func (m *MockInsuranceCompanyRepository) Count(ctx context.Context, search string) (int, error) {
	args := m.Called(ctx, search)
	return args.Int(0), args.Error(1)
}

func (m *MockInsuranceCompanyRepository) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockInsuranceCompanyRepository) Update(ctx context.Context, company *entities.InsuranceCompany) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockInsuranceCompanyRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.EpisodeEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EpisodeEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.EpisodeEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	return nil
}

// inlineScheduler runs submitted tasks synchronously.
type inlineScheduler struct {
	names []string
	err   error
}

func (s *inlineScheduler) Submit(name string, fn tasks.Func) error {
	if s.err != nil {
		return s.err
	}
	s.names = append(s.names, name)
	return fn(context.Background())
}
