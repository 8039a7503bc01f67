package repositories

import (
	"context"
	"time"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// ClinicalAttentionFilter narrows an episode listing. Zero values are ignored.
type ClinicalAttentionFilter struct {
	ResidentDoctorID string

	// VisibleToUserID restricts results to episodes where the user is the
	// resident or the supervisor.
	VisibleToUserID string

	// Search matches the diagnostic text or the patient's rut or names.
	Search string

	PatientSearch      string
	DoctorSearch       string
	MedicApproved      entities.ApprovalFilter
	SupervisorApproved entities.ApprovalFilter

	// OrderBy holds column names, "-" prefixed for descending order.
	OrderBy []string
	Limit   int
	Offset  int
}

// ClinicalAttentionRow is an episode joined with the names of its participants
type ClinicalAttentionRow struct {
	entities.ClinicalAttention
	Patient          *entities.Patient
	ResidentDoctor   *entities.User
	SupervisorDoctor *entities.User
	ClosedBy         *entities.User
	DeletedBy        *entities.User
	OverwrittenBy    *entities.User
}

// AIEvaluation holds the fields written when an urgency evaluation finishes
type AIEvaluation struct {
	Result     bool
	Reason     string
	Confidence float64
	Output     *entities.UrgencyOutput
}

// ClinicalAttentionUpdate carries a partial update. Nil fields are left as is;
// the Clear* flags write NULL.
type ClinicalAttentionUpdate struct {
	IDEpisodio            *string
	PatientID             *string
	ResidentDoctorID      *string
	SupervisorDoctorID    *string
	Diagnostic            *string
	MedicApproved         *bool
	SupervisorApproved    *bool
	SupervisorObservation *string
	OverwrittenReason     *string
	OverwrittenByID       *string
	Pertinencia           *bool
	IsDeleted             *bool

	ClearOverwritten bool
}

// IsEmpty reports whether the update would change nothing
func (u ClinicalAttentionUpdate) IsEmpty() bool {
	return u.IDEpisodio == nil && u.PatientID == nil && u.ResidentDoctorID == nil &&
		u.SupervisorDoctorID == nil && u.Diagnostic == nil && u.MedicApproved == nil &&
		u.SupervisorApproved == nil && u.SupervisorObservation == nil &&
		u.OverwrittenReason == nil && u.OverwrittenByID == nil && u.Pertinencia == nil &&
		u.IsDeleted == nil && !u.ClearOverwritten
}

// MetricsWindow restricts metric aggregation to a creation-date range
type MetricsWindow struct {
	Start *time.Time
	End   *time.Time
}

// EpisodeOutcome is the slice of an episode the metrics need
type EpisodeOutcome struct {
	ResidentDoctorID   string
	AIResult           *bool
	MedicApproved      *bool
	SupervisorApproved *bool
	Pertinencia        *bool
}

// ClinicalAttentionRepository defines the interface for episode persistence
type ClinicalAttentionRepository interface {
	// Create inserts a new episode
	Create(ctx context.Context, attention *entities.ClinicalAttention) error

	// GetByID retrieves an episode, deleted ones included
	GetByID(ctx context.Context, id string) (*entities.ClinicalAttention, error)

	// GetDetail retrieves an episode joined with its participants
	GetDetail(ctx context.Context, id string) (*ClinicalAttentionRow, error)

	// GetByEpisodeNumber retrieves the first episode with the given id_episodio
	GetByEpisodeNumber(ctx context.Context, idEpisodio string) (*entities.ClinicalAttention, error)

	// List returns the page of non-deleted episodes matching filter
	List(ctx context.Context, filter ClinicalAttentionFilter) ([]*ClinicalAttentionRow, error)

	// Count returns how many non-deleted episodes match filter, paging ignored
	Count(ctx context.Context, filter ClinicalAttentionFilter) (int, error)

	// CountAll returns the number of episodes, optionally for one resident
	CountAll(ctx context.Context, residentDoctorID string) (int, error)

	// Update applies a partial update
	Update(ctx context.Context, id string, update ClinicalAttentionUpdate) error

	// SaveAIEvaluation persists the result of an urgency evaluation
	SaveAIEvaluation(ctx context.Context, id string, evaluation AIEvaluation) error

	// SoftDelete marks an episode deleted
	SoftDelete(ctx context.Context, id, deletedByID string, at time.Time) error

	// Close marks an episode closed
	Close(ctx context.Context, id, closedByID string, reason entities.ClosingReason, at time.Time) error

	// Reopen clears the closing fields
	Reopen(ctx context.Context, id string) error

	// ListOutcomes returns non-deleted episodes in the window, optionally
	// limited to the given residents or the given patients.
	ListOutcomes(ctx context.Context, window MetricsWindow, residentIDs, patientIDs []string) ([]EpisodeOutcome, error)
}
