package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iic3964/leyurgencia/backend/internal/adapters/database"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

var insuranceCompanyColumns = []string{"id", "nombre_comercial", "nombre_juridico", "rut", "created_at", "updated_at"}

func TestInsuranceCompanyAdapter_Create(t *testing.T) {
	client, mock, matcher := setupMockDB(t)
	adapter := database.NewInsuranceCompanyAdapter(client)

	mock.ExpectQuery(`INSERT INTO "insurance_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	company := &entities.InsuranceCompany{NombreJuridico: "Isapre Banmédica S.A."}
	require.NoError(t, adapter.Create(context.Background(), company))

	assert.Equal(t, int64(42), company.ID)
	assert.Contains(t, matcher.last(), `RETURNING "id"`)
}

func TestInsuranceCompanyAdapter_GetByID(t *testing.T) {
	client, mock, _ := setupMockDB(t)
	adapter := database.NewInsuranceCompanyAdapter(client)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM "insurance_companies"`).WillReturnRows(sqlmock.NewRows(insuranceCompanyColumns).
		AddRow(int64(1), "Fonasa", "Fondo Nacional de Salud", nil, now, now))

	company, err := adapter.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Fonasa", company.DisplayName())
	assert.Nil(t, company.RUT)
}

func TestInsuranceCompanyAdapter_GetByIDNotFound(t *testing.T) {
	client, mock, _ := setupMockDB(t)
	adapter := database.NewInsuranceCompanyAdapter(client)

	mock.ExpectQuery(`FROM "insurance_companies"`).WillReturnRows(sqlmock.NewRows(insuranceCompanyColumns))

	_, err := adapter.GetByID(context.Background(), 99)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestInsuranceCompanyAdapter_List(t *testing.T) {
	client, mock, matcher := setupMockDB(t)
	adapter := database.NewInsuranceCompanyAdapter(client)

	mock.ExpectQuery(`FROM "insurance_companies"`).WillReturnRows(sqlmock.NewRows(insuranceCompanyColumns))

	companies, err := adapter.List(context.Background(), repositories.InsuranceCompanyFilter{
		Search:  "banm",
		OrderBy: []string{"-rut", "secret"},
		Limit:   5,
		Offset:  5,
	})
	require.NoError(t, err)
	assert.Empty(t, companies)

	query := matcher.last()
	assert.Contains(t, query, `"nombre_comercial" ILIKE '%banm%'`)
	assert.Contains(t, query, `"rut" ILIKE '%banm%'`)
	assert.Contains(t, query, `ORDER BY "rut" DESC LIMIT 5 OFFSET 5`)
	assert.NotContains(t, query, "secret")
}

func TestInsuranceCompanyAdapter_Counts(t *testing.T) {
	client, mock, matcher := setupMockDB(t)
	adapter := database.NewInsuranceCompanyAdapter(client)

	mock.ExpectQuery(`SELECT COUNT(*) FROM "insurance_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT(*) FROM "insurance_companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	count, err := adapter.Count(context.Background(), "isapre")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Contains(t, matcher.last(), "ILIKE '%isapre%'")

	total, err := adapter.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	assert.NotContains(t, matcher.last(), "WHERE")
}

func TestInsuranceCompanyAdapter_UpdateAndDelete(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		client, mock, matcher := setupMockDB(t)
		adapter := database.NewInsuranceCompanyAdapter(client)
		mock.ExpectExec(`UPDATE "insurance_companies"`).WillReturnResult(sqlmock.NewResult(0, 1))

		rut := "96.572.800-7"
		err := adapter.Update(context.Background(), &entities.InsuranceCompany{ID: 3, NombreJuridico: "Colmena", RUT: &rut})
		require.NoError(t, err)
		assert.Contains(t, matcher.last(), `"rut"='96.572.800-7'`)
		assert.Contains(t, matcher.last(), `"nombre_comercial"=NULL`)
	})

	t.Run("update missing", func(t *testing.T) {
		client, mock, _ := setupMockDB(t)
		adapter := database.NewInsuranceCompanyAdapter(client)
		mock.ExpectExec(`UPDATE "insurance_companies"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.Update(context.Background(), &entities.InsuranceCompany{ID: 3, NombreJuridico: "Colmena"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("delete", func(t *testing.T) {
		client, mock, matcher := setupMockDB(t)
		adapter := database.NewInsuranceCompanyAdapter(client)
		mock.ExpectExec(`DELETE FROM "insurance_companies"`).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, adapter.Delete(context.Background(), 3))
		assert.Contains(t, matcher.last(), `"id" = 3`)
	})

	t.Run("delete missing", func(t *testing.T) {
		client, mock, _ := setupMockDB(t)
		adapter := database.NewInsuranceCompanyAdapter(client)
		mock.ExpectExec(`DELETE FROM "insurance_companies"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.Delete(context.Background(), 3)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}
