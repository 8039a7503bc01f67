package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 200
)

// ClinicalAttentionService manages the lifecycle of emergency-room episodes
type ClinicalAttentionService struct {
	repo       repositories.ClinicalAttentionRepository
	patients   repositories.PatientRepository
	users      repositories.UserRepository
	evaluation *UrgencyEvaluationTask
	scheduler  TaskScheduler
	eventBus   providers.EventBus
	now        func() time.Time
}

// NewClinicalAttentionService creates a new episode service.
// evaluation, scheduler and eventBus are optional.
func NewClinicalAttentionService(
	repo repositories.ClinicalAttentionRepository,
	patients repositories.PatientRepository,
	users repositories.UserRepository,
	evaluation *UrgencyEvaluationTask,
	scheduler TaskScheduler,
	eventBus providers.EventBus,
) *ClinicalAttentionService {
	return &ClinicalAttentionService{
		repo:       repo,
		patients:   patients,
		users:      users,
		evaluation: evaluation,
		scheduler:  scheduler,
		eventBus:   eventBus,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for close and delete timestamps
func (s *ClinicalAttentionService) SetClock(now func() time.Time) {
	s.now = now
}

// PatientSummary is the patient as embedded in an episode view
type PatientSummary struct {
	ID        string  `json:"id"`
	RUT       string  `json:"rut"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
}

// UserSummary is a doctor or admin as embedded in an episode view
type UserSummary struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// ClinicalAttentionView is an episode with its derived fields and participants
type ClinicalAttentionView struct {
	entities.ClinicalAttention
	AppliesUrgencyLaw *bool           `json:"applies_urgency_law"`
	IsOverwritten     bool            `json:"is_overwritten"`
	Patient           *PatientSummary `json:"patient"`
	ResidentDoctor    *UserSummary    `json:"resident_doctor"`
	SupervisorDoctor  *UserSummary    `json:"supervisor_doctor"`
	ClosedBy          *UserSummary    `json:"closed_by"`
	DeletedBy         *UserSummary    `json:"deleted_by"`
	OverwrittenBy     *UserSummary    `json:"overwritten_by"`
}

func newClinicalAttentionView(row *repositories.ClinicalAttentionRow) *ClinicalAttentionView {
	view := &ClinicalAttentionView{
		ClinicalAttention: row.ClinicalAttention,
		AppliesUrgencyLaw: row.AppliesUrgencyLaw(),
		IsOverwritten:     row.IsOverwritten(),
		ResidentDoctor:    newUserSummary(row.ResidentDoctor),
		SupervisorDoctor:  newUserSummary(row.SupervisorDoctor),
		ClosedBy:          newUserSummary(row.ClosedBy),
		DeletedBy:         newUserSummary(row.DeletedBy),
		OverwrittenBy:     newUserSummary(row.OverwrittenBy),
	}
	if row.Patient != nil {
		view.Patient = &PatientSummary{
			ID:        row.Patient.ID,
			RUT:       row.Patient.RUT,
			FirstName: row.Patient.FirstName,
			LastName:  row.Patient.LastName,
			Email:     row.Patient.Email,
		}
	}
	return view
}

func newUserSummary(u *entities.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
	}
}

// ListClinicalAttentionsParams are the listing inputs as received from a caller
type ListClinicalAttentionsParams struct {
	Page               int
	PageSize           int
	Search             string
	Order              string
	ResidentDoctorID   string
	PatientSearch      string
	DoctorSearch       string
	MedicApproved      entities.ApprovalFilter
	SupervisorApproved entities.ApprovalFilter
	// CurrentUserID, when set and not an admin, limits results to episodes
	// where that user is the resident or the supervisor.
	CurrentUserID string
}

// ClinicalAttentionList is one page of episodes
type ClinicalAttentionList struct {
	// Count is the number of episodes matching the filters
	Count int `json:"count"`
	// Total is the number of episodes overall, or for the resident filter
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
	Results  []*ClinicalAttentionView `json:"results"`
}

// List returns one filtered, ordered page of non-deleted episodes
func (s *ClinicalAttentionService) List(ctx context.Context, params ListClinicalAttentionsParams) (*ClinicalAttentionList, error) {
	if params.Page == 0 {
		params.Page = defaultPage
	}
	if params.PageSize == 0 {
		params.PageSize = defaultPageSize
	}
	if params.Page < 1 {
		return nil, apperrors.NewValidationError("page must be at least 1")
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("page_size must be between 1 and %d", maxPageSize))
	}

	filter := repositories.ClinicalAttentionFilter{
		ResidentDoctorID: params.ResidentDoctorID,
		Search:           strings.TrimSpace(params.Search),
		PatientSearch:    strings.TrimSpace(params.PatientSearch),
		DoctorSearch:     strings.TrimSpace(params.DoctorSearch),
		OrderBy:          ParseOrder(params.Order, "-created_at"),
		Limit:            params.PageSize,
		Offset:           (params.Page - 1) * params.PageSize,
	}
	if params.MedicApproved.Valid() {
		filter.MedicApproved = params.MedicApproved
	}
	if params.SupervisorApproved.Valid() {
		filter.SupervisorApproved = params.SupervisorApproved
	}

	if params.CurrentUserID != "" {
		user, err := s.users.GetByID(ctx, params.CurrentUserID)
		switch {
		case err == nil:
			if !user.IsAdmin() {
				filter.VisibleToUserID = user.ID
			}
		case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		default:
			return nil, err
		}
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountAll(ctx, params.ResidentDoctorID)
	if err != nil {
		return nil, err
	}

	results := make([]*ClinicalAttentionView, 0, len(rows))
	for _, row := range rows {
		results = append(results, newClinicalAttentionView(row))
	}

	return &ClinicalAttentionList{
		Count:    count,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		Results:  results,
	}, nil
}

// ParseOrder splits "field,-field" into order terms. Relation paths and
// empty terms are dropped; fallback is used when nothing remains.
func ParseOrder(order string, fallback ...string) []string {
	var terms []string
	for _, field := range strings.Split(order, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" || strings.Contains(field, ".") {
			continue
		}
		terms = append(terms, field)
	}
	if len(terms) == 0 {
		return fallback
	}
	return terms
}

// Get returns an episode with its participants
func (s *ClinicalAttentionService) Get(ctx context.Context, id string) (*ClinicalAttentionView, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("clinical attention id is required")
	}
	row, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return newClinicalAttentionView(row), nil
}

// NestedPatientInput creates a patient together with an episode
type NestedPatientInput struct {
	RUT       string `json:"rut"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (p *NestedPatientInput) validate() error {
	if strings.TrimSpace(p.RUT) == "" || strings.TrimSpace(p.FirstName) == "" ||
		strings.TrimSpace(p.LastName) == "" || strings.TrimSpace(p.Email) == "" {
		return apperrors.NewValidationError("patient rut, first_name, last_name and email are required")
	}
	return nil
}

// CreateClinicalAttentionInput holds the fields of a new episode.
// Exactly one of PatientID and Patient is expected.
type CreateClinicalAttentionInput struct {
	IDEpisodio         *string
	PatientID          string
	Patient            *NestedPatientInput
	ResidentDoctorID   string
	SupervisorDoctorID *string
	Diagnostic         string
}

// Create stores a new episode and schedules its urgency evaluation
func (s *ClinicalAttentionService) Create(ctx context.Context, input CreateClinicalAttentionInput) (*ClinicalAttentionView, error) {
	if input.PatientID == "" && input.Patient == nil {
		return nil, apperrors.NewValidationError("patient_id is required")
	}
	if input.ResidentDoctorID == "" {
		return nil, apperrors.NewValidationError("resident_doctor_id is required")
	}
	if strings.TrimSpace(input.Diagnostic) == "" {
		return nil, apperrors.NewValidationError("diagnostic is required")
	}

	patientID := input.PatientID
	if input.Patient != nil {
		created, err := s.createNestedPatient(ctx, input.Patient)
		if err != nil {
			return nil, err
		}
		patientID = created
	}

	attention := &entities.ClinicalAttention{
		ID:                 uuid.NewString(),
		IDEpisodio:         input.IDEpisodio,
		PatientID:          patientID,
		ResidentDoctorID:   input.ResidentDoctorID,
		SupervisorDoctorID: input.SupervisorDoctorID,
		Diagnostic:         input.Diagnostic,
	}
	if err := s.repo.Create(ctx, attention); err != nil {
		return nil, err
	}

	observability.RecordEpisodeTransition("created")
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(attention.ID, entities.EpisodeEventCreated, nil))
	s.scheduleEvaluation(ctx, attention.ID, attention.Diagnostic)

	return s.Get(ctx, attention.ID)
}

func (s *ClinicalAttentionService) createNestedPatient(ctx context.Context, input *NestedPatientInput) (string, error) {
	if err := input.validate(); err != nil {
		return "", err
	}
	email := strings.TrimSpace(input.Email)
	patient := &entities.Patient{
		ID:        uuid.NewString(),
		RUT:       strings.TrimSpace(input.RUT),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     &email,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return "", err
	}
	return patient.ID, nil
}

func (s *ClinicalAttentionService) scheduleEvaluation(ctx context.Context, id, diagnostic string) {
	if s.evaluation == nil || s.scheduler == nil {
		return
	}
	if err := s.evaluation.Schedule(s.scheduler, id, diagnostic); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("episode_id", id).
			Msg("Could not schedule urgency evaluation")
	}
}

// UpdateClinicalAttentionInput is a partial update; nil fields are left as is
type UpdateClinicalAttentionInput struct {
	IDEpisodio            *string
	PatientID             *string
	Patient               *NestedPatientInput
	ResidentDoctorID      *string
	SupervisorDoctorID    *string
	Diagnostic            *string
	IsDeleted             *bool
	MedicApproved         *bool
	OverwrittenReason     *string
	OverwrittenByID       *string
	SupervisorApproved    *bool
	SupervisorObservation *string
	Pertinencia           *bool
}

// Update applies a partial update. The urgency evaluation is re-run only when
// the diagnostic text changes. editorID, when set, is recorded as the
// overwriting user unless the input names one.
func (s *ClinicalAttentionService) Update(ctx context.Context, id string, input UpdateClinicalAttentionInput, editorID string) (*ClinicalAttentionView, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update := repositories.ClinicalAttentionUpdate{
		IDEpisodio:            input.IDEpisodio,
		MedicApproved:         input.MedicApproved,
		OverwrittenReason:     input.OverwrittenReason,
		SupervisorApproved:    input.SupervisorApproved,
		SupervisorObservation: input.SupervisorObservation,
		Pertinencia:           input.Pertinencia,
		IsDeleted:             input.IsDeleted,
	}

	switch {
	case input.Patient != nil:
		patientID, err := s.createNestedPatient(ctx, input.Patient)
		if err != nil {
			return nil, err
		}
		update.PatientID = &patientID
	case input.PatientID != nil && *input.PatientID != "":
		update.PatientID = input.PatientID
	}
	if input.ResidentDoctorID != nil && *input.ResidentDoctorID != "" {
		update.ResidentDoctorID = input.ResidentDoctorID
	}
	if input.SupervisorDoctorID != nil && *input.SupervisorDoctorID != "" {
		update.SupervisorDoctorID = input.SupervisorDoctorID
	}

	reevaluate := false
	if input.Diagnostic != nil {
		update.Diagnostic = input.Diagnostic
		reevaluate = *input.Diagnostic != current.Diagnostic
	}

	switch {
	case input.OverwrittenByID != nil && *input.OverwrittenByID != "":
		update.OverwrittenByID = input.OverwrittenByID
	case editorID != "":
		update.OverwrittenByID = &editorID
	}

	if update.IsEmpty() {
		return s.Get(ctx, id)
	}
	if err := s.repo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	observability.RecordEpisodeTransition("updated")
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(id, entities.EpisodeEventUpdated, nil))
	if reevaluate {
		s.scheduleEvaluation(ctx, id, *input.Diagnostic)
	}

	return s.Get(ctx, id)
}

// MedicApproval records the resident's review of the AI verdict.
// A rejection needs a reason and marks the episode as overwritten.
func (s *ClinicalAttentionService) MedicApproval(ctx context.Context, id, medicID string, approved bool, reason string) (*ClinicalAttentionView, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	update := repositories.ClinicalAttentionUpdate{MedicApproved: &approved}
	if approved {
		update.ClearOverwritten = true
	} else {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, apperrors.NewValidationError("Debe entregar una razón al rechazar el diagnóstico")
		}
		update.OverwrittenReason = &reason
		if medicID != "" {
			update.OverwrittenByID = &medicID
		}
	}

	if err := s.repo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	if approved {
		observability.RecordEpisodeTransition("medic_approved")
	} else {
		observability.RecordEpisodeTransition("medic_rejected")
	}
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(id, entities.EpisodeEventUpdated, map[string]any{
		"medic_approved": approved,
	}))

	return s.Get(ctx, id)
}

// SupervisorApproval records the supervisor's review of the resident's decision
func (s *ClinicalAttentionService) SupervisorApproval(ctx context.Context, id, supervisorID string, approved bool, observation *string) (*ClinicalAttentionView, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update := repositories.ClinicalAttentionUpdate{
		SupervisorApproved:    &approved,
		SupervisorObservation: observation,
	}
	if current.SupervisorDoctorID == nil && supervisorID != "" {
		update.SupervisorDoctorID = &supervisorID
	}

	if err := s.repo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	observability.RecordEpisodeTransition("supervisor_reviewed")
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(id, entities.EpisodeEventUpdated, map[string]any{
		"supervisor_approved": approved,
	}))

	return s.Get(ctx, id)
}

// Delete soft-deletes an episode
func (s *ClinicalAttentionService) Delete(ctx context.Context, id, deletedByID string) error {
	if deletedByID == "" {
		return apperrors.NewValidationError("deleted_by_id is required")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, deletedByID, s.now()); err != nil {
		return err
	}

	observability.RecordEpisodeTransition("deleted")
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(id, entities.EpisodeEventUpdated, map[string]any{
		"is_deleted": true,
	}))
	return nil
}

// ActionResult acknowledges a state transition
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Close ends an episode with one of the accepted closing reasons
func (s *ClinicalAttentionService) Close(ctx context.Context, id, closedByID string, reason entities.ClosingReason) (*ActionResult, error) {
	if !reason.Valid() {
		names := make([]string, 0, len(entities.ValidClosingReasons))
		for _, r := range entities.ValidClosingReasons {
			names = append(names, string(r))
		}
		return nil, apperrors.NewValidationError("Razón de cierre inválida. Debe ser una de: " + strings.Join(names, ", "))
	}

	attention, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if attention.IsDeleted {
		return nil, apperrors.NewValidationError("No se puede cerrar una atención eliminada")
	}
	if attention.IsClosed {
		return nil, apperrors.NewValidationError("La atención ya está cerrada")
	}

	if err := s.repo.Close(ctx, id, closedByID, reason, s.now()); err != nil {
		return nil, err
	}

	observability.RecordEpisodeTransition("closed")
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(id, entities.EpisodeEventUpdated, map[string]any{
		"is_closed":      true,
		"closing_reason": reason,
	}))
	return &ActionResult{Success: true, Message: "Atención cerrada exitosamente"}, nil
}

// Reopen clears the closing fields of an episode. Only admins may reopen.
func (s *ClinicalAttentionService) Reopen(ctx context.Context, id, reopenedByID string) (*ActionResult, error) {
	user, err := s.users.GetByID(ctx, reopenedByID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("Usuario no encontrado")
		}
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, apperrors.NewForbiddenError("Solo los administradores pueden reabrir episodios")
	}

	attention, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if attention.IsDeleted {
		return nil, apperrors.NewValidationError("No se puede reabrir una atención eliminada")
	}
	if !attention.IsClosed {
		return nil, apperrors.NewValidationError("La atención no está cerrada")
	}

	if err := s.repo.Reopen(ctx, id); err != nil {
		return nil, err
	}

	observability.RecordEpisodeTransition("reopened")
	publishEpisodeEvent(ctx, s.eventBus, entities.NewEpisodeEvent(id, entities.EpisodeEventUpdated, map[string]any{
		"is_closed": false,
	}))
	return &ActionResult{Success: true, Message: "Atención reabierta exitosamente"}, nil
}
