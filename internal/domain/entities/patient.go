package entities

import (
	"time"
)

// Patient represents a patient attended in the emergency room
type Patient struct {
	ID                 string    `json:"id" db:"id"`
	RUT                string    `json:"rut" db:"rut"`
	FirstName          string    `json:"first_name" db:"first_name"`
	LastName           string    `json:"last_name" db:"last_name"`
	MotherLastName     *string   `json:"mother_last_name" db:"mother_last_name"`
	Email              *string   `json:"email" db:"email"`
	Age                *int      `json:"age" db:"age"`
	Sex                *string   `json:"sex" db:"sex"`
	Height             *float64  `json:"height" db:"height"`
	Weight             *float64  `json:"weight" db:"weight"`
	InsuranceCompanyID *int64    `json:"insurance_company_id" db:"insurance_company_id"`
	IsDeleted          bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins the patient's names
func (p *Patient) FullName() string {
	name := p.FirstName + " " + p.LastName
	if p.MotherLastName != nil && *p.MotherLastName != "" {
		name += " " + *p.MotherLastName
	}
	return name
}
