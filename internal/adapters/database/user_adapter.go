package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const userTable = "users"

var userColumns = []any{
	"id", "email", "first_name", "last_name", "phone", "role",
	"is_deleted", "created_at", "updated_at",
}

// UserAdapter implements UserRepository
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, args, err := a.db.Select(userColumns...).
		From(userTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user, err := scanUser(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	return user, nil
}

// ListByRole retrieves non-deleted users with the given role
func (a *UserAdapter) ListByRole(ctx context.Context, role entities.UserRole) ([]*entities.User, error) {
	return a.list(ctx, goqu.Ex{"is_deleted": false, "role": string(role)})
}

// ListActive retrieves every non-deleted user
func (a *UserAdapter) ListActive(ctx context.Context) ([]*entities.User, error) {
	return a.list(ctx, goqu.Ex{"is_deleted": false})
}

func (a *UserAdapter) list(ctx context.Context, where goqu.Ex) ([]*entities.User, error) {
	query, args, err := a.db.Select(userColumns...).
		From(userTable).
		Where(where).
		Order(goqu.I("first_name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list users", err)
	}
	defer rows.Close()

	users := []*entities.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan user", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating users", err)
	}

	return users, nil
}

func scanUser(scanner rowScanner) (*entities.User, error) {
	user := &entities.User{}
	var role string
	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&role,
		&user.IsDeleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = entities.UserRole(role)
	return user, nil
}
