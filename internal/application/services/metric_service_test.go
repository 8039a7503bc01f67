package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

func outcome(resident string, ai, medic, supervisor, pertinencia *bool) repositories.EpisodeOutcome {
	return repositories.EpisodeOutcome{
		ResidentDoctorID:   resident,
		AIResult:           ai,
		MedicApproved:      medic,
		SupervisorApproved: supervisor,
		Pertinencia:        pertinencia,
	}
}

var (
	yes = entities.BoolPtr(true)
	no  = entities.BoolPtr(false)
)

func TestComputeMetricStats(t *testing.T) {
	outcomes := []repositories.EpisodeOutcome{
		outcome("r", yes, yes, nil, no),  // applies, AI yes, rejected
		outcome("r", yes, yes, nil, yes), // applies, AI yes
		outcome("r", yes, yes, nil, nil), // applies, AI yes, pending review
		outcome("r", no, no, nil, no),    // medic overrode AI: applies, rejected
		outcome("r", no, yes, nil, nil),  // does not apply
		outcome("r", yes, nil, nil, no),  // pending medic review
		outcome("r", nil, nil, nil, nil), // not evaluated yet
	}

	stats := services.ComputeMetricStats(outcomes, "r", "Rosa Soto")

	assert.Equal(t, 7, stats.TotalEpisodes)
	assert.Equal(t, 4, stats.TotalUrgencyLaw)
	assert.Equal(t, 50.0, stats.PercentUrgencyLawRejected)
	assert.Equal(t, 4, stats.TotalAIYes)
	assert.Equal(t, 50.0, stats.PercentAIYesRejected)
	assert.Equal(t, 1, stats.TotalAINoMedicYes)
	assert.Equal(t, 100.0, stats.PercentAINoMedicYesRejected)
}

func TestComputeMetricStats_RoundsToOneDecimal(t *testing.T) {
	outcomes := []repositories.EpisodeOutcome{
		outcome("r", yes, yes, nil, no),
		outcome("r", yes, yes, nil, yes),
		outcome("r", yes, yes, nil, yes),
	}

	stats := services.ComputeMetricStats(outcomes, "r", "x")
	assert.Equal(t, 33.3, stats.PercentUrgencyLawRejected)

	empty := services.ComputeMetricStats(nil, "r", "x")
	assert.Zero(t, empty.PercentAIYesRejected)
}

func TestParseMetricsWindow(t *testing.T) {
	window, err := services.ParseMetricsWindow("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *window.Start)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC), *window.End)

	window, err = services.ParseMetricsWindow("", "")
	require.NoError(t, err)
	assert.Nil(t, window.Start)
	assert.Nil(t, window.End)

	_, err = services.ParseMetricsWindow("01/01/2025", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestMetricService_AllUsers(t *testing.T) {
	ctx := context.Background()
	repo := new(MockClinicalAttentionRepository)
	users := new(MockUserRepository)
	service := services.NewMetricService(repo, users, new(MockPatientRepository), new(MockInsuranceCompanyRepository), nil)

	users.On("ListActive", ctx).Return([]*entities.User{
		{ID: "u-2", FirstName: "Zoe", LastName: "Lagos"},
		{ID: "u-1", FirstName: "Ana", LastName: "Rojas"},
	}, nil)
	repo.On("ListOutcomes", ctx, repositories.MetricsWindow{}, []string(nil), []string(nil)).Return([]repositories.EpisodeOutcome{
		outcome("u-2", yes, yes, nil, nil),
		outcome("ghost", yes, yes, nil, nil),
	}, nil)

	stats, err := service.AllUsers(ctx, "", "")

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Ana Rojas", stats[0].Name)
	assert.Equal(t, 0, stats[0].TotalEpisodes)
	assert.Equal(t, "Zoe Lagos", stats[1].Name)
	assert.Equal(t, 1, stats[1].TotalEpisodes)
}

func TestMetricService_User(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user still gets stats", func(t *testing.T) {
		repo := new(MockClinicalAttentionRepository)
		users := new(MockUserRepository)
		service := services.NewMetricService(repo, users, new(MockPatientRepository), new(MockInsuranceCompanyRepository), nil)

		users.On("GetByID", ctx, "u-9").Return(nil, apperrors.NewNotFoundError("user not found"))
		repo.On("ListOutcomes", ctx, mock.Anything, []string{"u-9"}, []string(nil)).Return([]repositories.EpisodeOutcome{}, nil)

		stats, err := service.User(ctx, "u-9", "", "")

		require.NoError(t, err)
		assert.Equal(t, "Usuario Desconocido", stats.Name)
		assert.Equal(t, "u-9", stats.ID)
	})

	t.Run("served from cache", func(t *testing.T) {
		cache := new(MockCacheProvider)
		service := services.NewMetricService(new(MockClinicalAttentionRepository), new(MockUserRepository), new(MockPatientRepository), new(MockInsuranceCompanyRepository), cache)

		cached, _ := json.Marshal(entities.MetricStats{ID: "u-1", Name: "Ana Rojas", TotalEpisodes: 3})
		cache.On("Get", ctx, "metrics:users:u-1:2025-01-01:").Return(cached, nil)

		stats, err := service.User(ctx, "u-1", "2025-01-01", "")

		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalEpisodes)
	})

	t.Run("cache miss stores the result", func(t *testing.T) {
		repo := new(MockClinicalAttentionRepository)
		users := new(MockUserRepository)
		cache := new(MockCacheProvider)
		service := services.NewMetricService(repo, users, new(MockPatientRepository), new(MockInsuranceCompanyRepository), cache)

		cache.On("Get", ctx, "metrics:users:u-1::").Return(nil, providers.ErrCacheMiss)
		users.On("GetByID", ctx, "u-1").Return(&entities.User{ID: "u-1", FirstName: "Ana", LastName: "Rojas"}, nil)
		repo.On("ListOutcomes", ctx, repositories.MetricsWindow{}, []string{"u-1"}, []string(nil)).Return([]repositories.EpisodeOutcome{}, nil)
		cache.On("Set", ctx, "metrics:users:u-1::", mock.Anything, 60).Return(nil)

		_, err := service.User(ctx, "u-1", "", "")

		require.NoError(t, err)
		cache.AssertExpectations(t)
	})
}

func TestMetricService_Insurance(t *testing.T) {
	ctx := context.Background()

	t.Run("insurer without patients", func(t *testing.T) {
		repo := new(MockClinicalAttentionRepository)
		patients := new(MockPatientRepository)
		insurers := new(MockInsuranceCompanyRepository)
		service := services.NewMetricService(repo, new(MockUserRepository), patients, insurers, nil)

		insurers.On("GetByID", ctx, int64(3)).Return(&entities.InsuranceCompany{ID: 3, NombreJuridico: "Isapre Uno S.A."}, nil)
		patients.On("ListIDsByInsuranceCompany", ctx, int64(3)).Return([]string{}, nil)

		stats, err := service.Insurance(ctx, 3, "", "")

		require.NoError(t, err)
		assert.Equal(t, "3", stats.ID)
		assert.Equal(t, "Isapre Uno S.A.", stats.Name)
		assert.Zero(t, stats.TotalEpisodes)
		repo.AssertNotCalled(t, "ListOutcomes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown insurer", func(t *testing.T) {
		repo := new(MockClinicalAttentionRepository)
		patients := new(MockPatientRepository)
		insurers := new(MockInsuranceCompanyRepository)
		service := services.NewMetricService(repo, new(MockUserRepository), patients, insurers, nil)

		insurers.On("GetByID", ctx, int64(8)).Return(nil, apperrors.NewNotFoundError("Compañía no encontrada"))
		patients.On("ListIDsByInsuranceCompany", ctx, int64(8)).Return([]string{"p-1"}, nil)
		repo.On("ListOutcomes", ctx, mock.Anything, []string(nil), []string{"p-1"}).Return([]repositories.EpisodeOutcome{
			outcome("r", yes, yes, nil, no),
		}, nil)

		stats, err := service.Insurance(ctx, 8, "", "")

		require.NoError(t, err)
		assert.Equal(t, "Desconocida", stats.Name)
		assert.Equal(t, 100.0, stats.PercentAIYesRejected)
	})
}
