package handlers_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

type MockClinicalAttentionService struct {
	mock.Mock
}

func (m *MockClinicalAttentionService) List(ctx context.Context, params services.ListClinicalAttentionsParams) (*services.ClinicalAttentionList, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ClinicalAttentionList), args.Error(1)
}

func (m *MockClinicalAttentionService) Get(ctx context.Context, id string) (*services.ClinicalAttentionView, error) {
	args := m.Called(ctx, id)
	return viewResult(args)
}

func (m *MockClinicalAttentionService) Create(ctx context.Context, input services.CreateClinicalAttentionInput) (*services.ClinicalAttentionView, error) {
	args := m.Called(ctx, input)
	return viewResult(args)
}

func (m *MockClinicalAttentionService) Update(ctx context.Context, id string, input services.UpdateClinicalAttentionInput, editorID string) (*services.ClinicalAttentionView, error) {
	args := m.Called(ctx, id, input, editorID)
	return viewResult(args)
}

func (m *MockClinicalAttentionService) MedicApproval(ctx context.Context, id, medicID string, approved bool, reason string) (*services.ClinicalAttentionView, error) {
	args := m.Called(ctx, id, medicID, approved, reason)
	return viewResult(args)
}

func (m *MockClinicalAttentionService) SupervisorApproval(ctx context.Context, id, supervisorID string, approved bool, observation *string) (*services.ClinicalAttentionView, error) {
	args := m.Called(ctx, id, supervisorID, approved, observation)
	return viewResult(args)
}

func (m *MockClinicalAttentionService) Delete(ctx context.Context, id, deletedByID string) error {
	return m.Called(ctx, id, deletedByID).Error(0)
}

func (m *MockClinicalAttentionService) Close(ctx context.Context, id, closedByID string, reason entities.ClosingReason) (*services.ActionResult, error) {
	args := m.Called(ctx, id, closedByID, reason)
	return actionResult(args)
}

func (m *MockClinicalAttentionService) Reopen(ctx context.Context, id, reopenedByID string) (*services.ActionResult, error) {
	args := m.Called(ctx, id, reopenedByID)
	return actionResult(args)
}

func viewResult(args mock.Arguments) (*services.ClinicalAttentionView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ClinicalAttentionView), args.Error(1)
}

func actionResult(args mock.Arguments) (*services.ActionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ActionResult), args.Error(1)
}

type MockPertinenceImporter struct {
	mock.Mock
	body string
}

func (m *MockPertinenceImporter) ImportCSV(ctx context.Context, insuranceCompanyID int64, r io.Reader) (*services.ImportResult, error) {
	data, _ := io.ReadAll(r)
	m.body = string(data)
	args := m.Called(ctx, insuranceCompanyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ImportResult), args.Error(1)
}

type MockInsuranceCompanyService struct {
	mock.Mock
}

func (m *MockInsuranceCompanyService) List(ctx context.Context, page, pageSize int, search, order string) (*services.InsuranceCompanyList, error) {
	args := m.Called(ctx, page, pageSize, search, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InsuranceCompanyList), args.Error(1)
}

func (m *MockInsuranceCompanyService) Get(ctx context.Context, id int64) (*entities.InsuranceCompany, error) {
	args := m.Called(ctx, id)
	return companyResult(args)
}

func (m *MockInsuranceCompanyService) Create(ctx context.Context, input services.InsuranceCompanyInput) (*entities.InsuranceCompany, error) {
	args := m.Called(ctx, input)
	return companyResult(args)
}

func (m *MockInsuranceCompanyService) Update(ctx context.Context, id int64, input services.InsuranceCompanyInput) (*entities.InsuranceCompany, error) {
	args := m.Called(ctx, id, input)
	return companyResult(args)
}

func (m *MockInsuranceCompanyService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func companyResult(args mock.Arguments) (*entities.InsuranceCompany, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InsuranceCompany), args.Error(1)
}

type MockMetricReporter struct {
	mock.Mock
}

func (m *MockMetricReporter) AllUsers(ctx context.Context, start, end string) ([]entities.MetricStats, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.MetricStats), args.Error(1)
}

func (m *MockMetricReporter) User(ctx context.Context, userID, start, end string) (*entities.MetricStats, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MetricStats), args.Error(1)
}

func (m *MockMetricReporter) Insurance(ctx context.Context, companyID int64, start, end string) (*entities.MetricStats, error) {
	args := m.Called(ctx, companyID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MetricStats), args.Error(1)
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

type stubDirectory struct {
	patients    []*entities.Patient
	residents   []*entities.User
	supervisors []*entities.User
	err         error
}

func (s *stubDirectory) List(ctx context.Context) ([]*entities.Patient, error) {
	return s.patients, s.err
}

func (s *stubDirectory) ListResidents(ctx context.Context) ([]*entities.User, error) {
	return s.residents, s.err
}

func (s *stubDirectory) ListSupervisors(ctx context.Context) ([]*entities.User, error) {
	return s.supervisors, s.err
}
