package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const insuranceCompanyTable = "insurance_companies"

var insuranceCompanyColumns = []any{
	"id", "nombre_comercial", "nombre_juridico", "rut", "created_at", "updated_at",
}

var insuranceCompanyOrderColumns = map[string]bool{
	"id": true, "nombre_comercial": true, "nombre_juridico": true, "rut": true, "created_at": true,
}

// InsuranceCompanyAdapter implements InsuranceCompanyRepository
type InsuranceCompanyAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewInsuranceCompanyAdapter creates a new insurance company adapter
func NewInsuranceCompanyAdapter(client *postgres.Client) repositories.InsuranceCompanyRepository {
	return &InsuranceCompanyAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts an insurer and sets its generated ID
func (a *InsuranceCompanyAdapter) Create(ctx context.Context, company *entities.InsuranceCompany) error {
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	record := goqu.Record{
		"nombre_comercial": company.NombreComercial,
		"nombre_juridico":  company.NombreJuridico,
		"rut":              company.RUT,
		"created_at":       company.CreatedAt,
		"updated_at":       company.UpdatedAt,
	}

	query, args, err := a.db.Insert(insuranceCompanyTable).
		Rows(record).
		Returning("id").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&company.ID); err != nil {
		return apperrors.NewInternalError("failed to create insurance company", err)
	}

	return nil
}

// GetByID retrieves an insurer by ID
func (a *InsuranceCompanyAdapter) GetByID(ctx context.Context, id int64) (*entities.InsuranceCompany, error) {
	query, args, err := a.db.Select(insuranceCompanyColumns...).
		From(insuranceCompanyTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	company, err := scanInsuranceCompany(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("insurance company with id %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get insurance company", err)
	}

	return company, nil
}

// List retrieves one page of insurers
func (a *InsuranceCompanyAdapter) List(ctx context.Context, filter repositories.InsuranceCompanyFilter) ([]*entities.InsuranceCompany, error) {
	ds := a.db.Select(insuranceCompanyColumns...).From(insuranceCompanyTable)
	if filter.Search != "" {
		ds = ds.Where(insuranceCompanySearch(filter.Search))
	}

	orderBy := orderExpressions("", filter.OrderBy, insuranceCompanyOrderColumns)
	if len(orderBy) == 0 {
		orderBy = []exp.OrderedExpression{goqu.I("nombre_juridico").Asc()}
	}
	ds = ds.Order(orderBy...)

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list insurance companies", err)
	}
	defer rows.Close()

	companies := []*entities.InsuranceCompany{}
	for rows.Next() {
		company, err := scanInsuranceCompany(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan insurance company", err)
		}
		companies = append(companies, company)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating insurance companies", err)
	}

	return companies, nil
}

// Count returns how many insurers match search
func (a *InsuranceCompanyAdapter) Count(ctx context.Context, search string) (int, error) {
	ds := a.db.From(insuranceCompanyTable).Select(goqu.COUNT("*"))
	if search != "" {
		ds = ds.Where(insuranceCompanySearch(search))
	}
	return a.count(ctx, ds)
}

// CountAll returns the number of insurers
func (a *InsuranceCompanyAdapter) CountAll(ctx context.Context) (int, error) {
	return a.count(ctx, a.db.From(insuranceCompanyTable).Select(goqu.COUNT("*")))
}

func (a *InsuranceCompanyAdapter) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count insurance companies", err)
	}
	return count, nil
}

// Update updates an insurer
func (a *InsuranceCompanyAdapter) Update(ctx context.Context, company *entities.InsuranceCompany) error {
	company.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Update(insuranceCompanyTable).
		Set(goqu.Record{
			"nombre_comercial": company.NombreComercial,
			"nombre_juridico":  company.NombreJuridico,
			"rut":              company.RUT,
			"updated_at":       company.UpdatedAt,
		}).
		Where(goqu.Ex{"id": company.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update insurance company", err)
	}

	return checkRowsAffected(result, fmt.Sprintf("insurance company with id %d not found", company.ID))
}

// Delete removes an insurer
func (a *InsuranceCompanyAdapter) Delete(ctx context.Context, id int64) error {
	query, args, err := a.db.Delete(insuranceCompanyTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete insurance company", err)
	}

	return checkRowsAffected(result, fmt.Sprintf("insurance company with id %d not found", id))
}

func insuranceCompanySearch(search string) exp.Expression {
	pattern := likePattern(search)
	return goqu.Or(
		goqu.C("nombre_comercial").ILike(pattern),
		goqu.C("nombre_juridico").ILike(pattern),
		goqu.C("rut").ILike(pattern),
	)
}

func checkRowsAffected(result sql.Result, notFound string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}

func scanInsuranceCompany(scanner rowScanner) (*entities.InsuranceCompany, error) {
	company := &entities.InsuranceCompany{}
	err := scanner.Scan(
		&company.ID,
		&company.NombreComercial,
		&company.NombreJuridico,
		&company.RUT,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return company, nil
}
