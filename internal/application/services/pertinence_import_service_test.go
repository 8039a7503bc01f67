package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

func int64Ptr(v int64) *int64 { return &v }

func TestParsePertinence(t *testing.T) {
	tests := []struct {
		in        string
		want      bool
		wantValid bool
	}{
		{"PERTINENTE", true, true},
		{" pertinente ", true, true},
		{"No Pertinente", false, true},
		{"1", true, true},
		{"0", false, true},
		{"-3", true, true},
		{"quizás", false, false},
		{"1.0", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		got, ok := services.ParsePertinence(tt.in)
		assert.Equal(t, tt.wantValid, ok, tt.in)
		if ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestParsePertinenceCSV(t *testing.T) {
	t.Run("accepts header aliases and semicolons", func(t *testing.T) {
		rows, err := services.ParsePertinenceCSV(strings.NewReader("\ufeffPaciente;ID_Episodio;Validación\nAna;E-1;PERTINENTE\nLuis;E-2\n"))

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, services.PertinenceRow{Line: 2, Episode: "E-1", Validation: "PERTINENTE"}, rows[0])
		assert.Equal(t, services.PertinenceRow{Line: 3, Episode: "E-2"}, rows[1])
	})

	t.Run("requires both columns", func(t *testing.T) {
		_, err := services.ParsePertinenceCSV(strings.NewReader("Episodio,Comentario\nE-1,ok\n"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestPertinenceImportService_Import(t *testing.T) {
	ctx := context.Background()
	repo := new(MockClinicalAttentionRepository)
	patients := new(MockPatientRepository)
	service := services.NewPertinenceImportService(repo, patients)

	repo.On("GetByEpisodeNumber", ctx, "E-1").Return(&entities.ClinicalAttention{ID: "ep-1", PatientID: "p-1"}, nil)
	repo.On("GetByEpisodeNumber", ctx, "E-2").Return(&entities.ClinicalAttention{ID: "ep-2", PatientID: "p-2"}, nil)
	repo.On("GetByEpisodeNumber", ctx, "E-404").Return(nil, apperrors.NewNotFoundError("not found"))
	patients.On("GetByID", ctx, "p-1").Return(&entities.Patient{ID: "p-1", InsuranceCompanyID: int64Ptr(7)}, nil)
	patients.On("GetByID", ctx, "p-2").Return(&entities.Patient{ID: "p-2", InsuranceCompanyID: int64Ptr(9)}, nil)
	repo.On("Update", ctx, "ep-1", mock.MatchedBy(func(u repositories.ClinicalAttentionUpdate) bool {
		return u.Pertinencia != nil && !*u.Pertinencia
	})).Return(nil)

	csv := "Episodio,Validacion\nE-1,NO PERTINENTE\nE-2,PERTINENTE\nE-404,1\nE-1,tal vez\n"
	result, err := service.ImportCSV(ctx, 7, strings.NewReader(csv))

	require.NoError(t, err)
	assert.Equal(t, &services.ImportResult{Updated: 1, Skipped: 3}, result)
	repo.AssertNumberOfCalls(t, "Update", 1)
}
