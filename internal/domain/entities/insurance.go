package entities

import (
	"time"
)

// InsuranceCompany represents a health insurer (Isapre or Fonasa)
type InsuranceCompany struct {
	ID              int64     `json:"id" db:"id"`
	NombreComercial *string   `json:"nombre_comercial" db:"nombre_comercial"`
	NombreJuridico  string    `json:"nombre_juridico" db:"nombre_juridico"`
	RUT             *string   `json:"rut" db:"rut"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName prefers the commercial name
func (c *InsuranceCompany) DisplayName() string {
	if c.NombreComercial != nil && *c.NombreComercial != "" {
		return *c.NombreComercial
	}
	return c.NombreJuridico
}
