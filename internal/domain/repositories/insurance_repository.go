package repositories

import (
	"context"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// InsuranceCompanyFilter narrows an insurer listing
type InsuranceCompanyFilter struct {
	Search  string
	OrderBy []string
	Limit   int
	Offset  int
}

// InsuranceCompanyRepository defines the interface for insurer data operations
type InsuranceCompanyRepository interface {
	Create(ctx context.Context, company *entities.InsuranceCompany) error
	GetByID(ctx context.Context, id int64) (*entities.InsuranceCompany, error)
	List(ctx context.Context, filter InsuranceCompanyFilter) ([]*entities.InsuranceCompany, error)
	Count(ctx context.Context, search string) (int, error)
	CountAll(ctx context.Context) (int, error)
	Update(ctx context.Context, company *entities.InsuranceCompany) error
	Delete(ctx context.Context, id int64) error
}
