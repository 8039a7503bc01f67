package entities

import (
	"time"
)

// ClosingReason is why an episode was closed
type ClosingReason string

const (
	ClosingReasonDeath           ClosingReason = "Muerte"
	ClosingReasonHospitalization ClosingReason = "Hospitalización"
	ClosingReasonDischarge       ClosingReason = "Alta"
	ClosingReasonTransfer        ClosingReason = "Traslado"
)

// ValidClosingReasons lists the accepted closing reasons in display order
var ValidClosingReasons = []ClosingReason{
	ClosingReasonDeath,
	ClosingReasonHospitalization,
	ClosingReasonDischarge,
	ClosingReasonTransfer,
}

// Valid reports whether r is an accepted closing reason
func (r ClosingReason) Valid() bool {
	for _, valid := range ValidClosingReasons {
		if r == valid {
			return true
		}
	}
	return false
}

// ClinicalAttention is one emergency-room episode evaluated under the Ley de Urgencia.
// Whether the law applies is never stored; see AppliesUrgencyLaw.
type ClinicalAttention struct {
	ID                    string         `json:"id" db:"id"`
	IDEpisodio            *string        `json:"id_episodio" db:"id_episodio"`
	PatientID             string         `json:"patient_id" db:"patient_id"`
	ResidentDoctorID      string         `json:"resident_doctor_id" db:"resident_doctor_id"`
	SupervisorDoctorID    *string        `json:"supervisor_doctor_id" db:"supervisor_doctor_id"`
	Diagnostic            string         `json:"diagnostic" db:"diagnostic"`
	AIResult              *bool          `json:"ai_result" db:"ai_result"`
	AIReason              *string        `json:"ai_reason" db:"ai_reason"`
	AIConfidence          *float64       `json:"ai_confidence" db:"ai_confidence"`
	AIOutput              *UrgencyOutput `json:"ai_output,omitempty" db:"ai_output"`
	MedicApproved         *bool          `json:"medic_approved" db:"medic_approved"`
	SupervisorApproved    *bool          `json:"supervisor_approved" db:"supervisor_approved"`
	SupervisorObservation *string        `json:"supervisor_observation" db:"supervisor_observation"`
	OverwrittenReason     *string        `json:"overwritten_reason" db:"overwritten_reason"`
	OverwrittenByID       *string        `json:"overwritten_by_id" db:"overwritten_by_id"`
	Pertinencia           *bool          `json:"pertinencia" db:"pertinencia"`
	IsDeleted             bool           `json:"is_deleted" db:"is_deleted"`
	DeletedAt             *time.Time     `json:"deleted_at" db:"deleted_at"`
	DeletedByID           *string        `json:"deleted_by_id" db:"deleted_by_id"`
	IsClosed              bool           `json:"is_closed" db:"is_closed"`
	ClosedAt              *time.Time     `json:"closed_at" db:"closed_at"`
	ClosedByID            *string        `json:"closed_by_id" db:"closed_by_id"`
	ClosingReason         *string        `json:"closing_reason" db:"closing_reason"`
	CreatedAt             time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at" db:"updated_at"`
}

// AppliesUrgencyLaw reconciles the AI verdict with the human reviews
func (c *ClinicalAttention) AppliesUrgencyLaw() *bool {
	return ReconcileUrgencyLaw(c.AIResult, c.MedicApproved, c.SupervisorApproved)
}

// IsOverwritten reports whether a resident rejected the AI verdict with a reason
func (c *ClinicalAttention) IsOverwritten() bool {
	return c.OverwrittenReason != nil && *c.OverwrittenReason != ""
}

// ApprovalFilter selects episodes by the state of one review
type ApprovalFilter string

const (
	ApprovalPending  ApprovalFilter = "pending"
	ApprovalApproved ApprovalFilter = "approved"
	ApprovalRejected ApprovalFilter = "rejected"
)

// Valid reports whether f is empty or a known filter value
func (f ApprovalFilter) Valid() bool {
	switch f {
	case "", ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}
