package entities

import (
	"strings"
	"time"
)

// UserRole is the role of a hospital user
type UserRole string

const (
	UserRoleAdmin      UserRole = "Admin"
	UserRoleResident   UserRole = "Resident"
	UserRoleSupervisor UserRole = "Supervisor"
)

// User represents a doctor or administrator
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     *string   `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Phone     *string   `json:"phone" db:"phone"`
	Role      UserRole  `json:"role" db:"role"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user can see and reopen every episode
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
