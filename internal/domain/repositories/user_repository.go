package repositories

import (
	"context"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// UserRepository defines the interface for doctor and admin lookups
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// ListByRole retrieves non-deleted users with role, ordered by first name
	ListByRole(ctx context.Context, role entities.UserRole) ([]*entities.User, error)

	// ListActive retrieves every non-deleted user
	ListActive(ctx context.Context) ([]*entities.User, error)
}
