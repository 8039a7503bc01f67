package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const clinicalAttentionTable = "clinical_attentions"

var clinicalAttentionColumns = []string{
	"id", "id_episodio", "patient_id", "resident_doctor_id", "supervisor_doctor_id",
	"diagnostic", "ai_result", "ai_reason", "ai_confidence", "ai_output",
	"medic_approved", "supervisor_approved", "supervisor_observation",
	"overwritten_reason", "overwritten_by_id", "pertinencia",
	"is_deleted", "deleted_at", "deleted_by_id",
	"is_closed", "closed_at", "closed_by_id", "closing_reason",
	"created_at", "updated_at",
}

// orderable columns; anything else in an order term is ignored
var clinicalAttentionOrderColumns = map[string]bool{
	"id_episodio": true, "diagnostic": true, "created_at": true, "updated_at": true,
	"medic_approved": true, "supervisor_approved": true, "ai_result": true,
	"ai_confidence": true, "pertinencia": true, "is_closed": true, "closed_at": true,
}

// participant joins, in scan order
var participantJoins = []struct {
	alias  string
	column string
}{
	{"rd", "resident_doctor_id"},
	{"sd", "supervisor_doctor_id"},
	{"cb", "closed_by_id"},
	{"db", "deleted_by_id"},
	{"ob", "overwritten_by_id"},
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ClinicalAttentionAdapter implements ClinicalAttentionRepository
type ClinicalAttentionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewClinicalAttentionAdapter creates a new clinical attention adapter
func NewClinicalAttentionAdapter(client *postgres.Client) repositories.ClinicalAttentionRepository {
	return &ClinicalAttentionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new episode
func (a *ClinicalAttentionAdapter) Create(ctx context.Context, attention *entities.ClinicalAttention) error {
	now := time.Now().UTC()
	if attention.CreatedAt.IsZero() {
		attention.CreatedAt = now
	}
	attention.UpdatedAt = now

	output, err := marshalUrgencyOutput(attention.AIOutput)
	if err != nil {
		return apperrors.NewInternalError("failed to encode ai output", err)
	}

	record := goqu.Record{
		"id":                     attention.ID,
		"id_episodio":            attention.IDEpisodio,
		"patient_id":             attention.PatientID,
		"resident_doctor_id":     attention.ResidentDoctorID,
		"supervisor_doctor_id":   attention.SupervisorDoctorID,
		"diagnostic":             attention.Diagnostic,
		"ai_result":              attention.AIResult,
		"ai_reason":              attention.AIReason,
		"ai_confidence":          attention.AIConfidence,
		"ai_output":              output,
		"medic_approved":         attention.MedicApproved,
		"supervisor_approved":    attention.SupervisorApproved,
		"supervisor_observation": attention.SupervisorObservation,
		"overwritten_reason":     attention.OverwrittenReason,
		"overwritten_by_id":      attention.OverwrittenByID,
		"pertinencia":            attention.Pertinencia,
		"is_deleted":             false,
		"is_closed":              false,
		"created_at":             attention.CreatedAt,
		"updated_at":             attention.UpdatedAt,
	}

	query, args, err := a.db.Insert(clinicalAttentionTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create clinical attention", err)
	}

	return nil
}

// GetByID retrieves an episode by ID
func (a *ClinicalAttentionAdapter) GetByID(ctx context.Context, id string) (*entities.ClinicalAttention, error) {
	return a.getByField(ctx, "id", id)
}

// GetByEpisodeNumber retrieves the first episode carrying the external episode number
func (a *ClinicalAttentionAdapter) GetByEpisodeNumber(ctx context.Context, idEpisodio string) (*entities.ClinicalAttention, error) {
	return a.getByField(ctx, "id_episodio", idEpisodio)
}

func (a *ClinicalAttentionAdapter) getByField(ctx context.Context, field, value string) (*entities.ClinicalAttention, error) {
	query, args, err := a.db.Select(columnList("", clinicalAttentionColumns)...).
		From(clinicalAttentionTable).
		Where(goqu.Ex{field: value}).
		Order(goqu.I("created_at").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	attention := &entities.ClinicalAttention{}
	err = scanClinicalAttention(a.client.DB().QueryRowContext(ctx, query, args...), attention)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("clinical attention with %s %s not found", field, value))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get clinical attention", err)
	}

	return attention, nil
}

// GetDetail retrieves an episode joined with its patient and doctors
func (a *ClinicalAttentionAdapter) GetDetail(ctx context.Context, id string) (*repositories.ClinicalAttentionRow, error) {
	defer a.client.ObserveQuery(ctx, "clinical_attentions.get_detail", time.Now())

	query, args, err := a.detailDataset().
		Where(goqu.I("ca.id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row, err := scanClinicalAttentionRow(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("clinical attention with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get clinical attention", err)
	}

	return row, nil
}

// List retrieves one page of non-deleted episodes
func (a *ClinicalAttentionAdapter) List(ctx context.Context, filter repositories.ClinicalAttentionFilter) ([]*repositories.ClinicalAttentionRow, error) {
	defer a.client.ObserveQuery(ctx, "clinical_attentions.list", time.Now())

	ds := a.detailDataset().Where(a.filterExpressions(filter)...)

	orderBy := orderExpressions("ca", filter.OrderBy, clinicalAttentionOrderColumns)
	if len(orderBy) == 0 {
		orderBy = []exp.OrderedExpression{goqu.I("ca.created_at").Desc()}
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
		return nil, apperrors.NewInternalError("failed to list clinical attentions", err)
	}
	defer rows.Close()

	results := []*repositories.ClinicalAttentionRow{}
	for rows.Next() {
		row, err := scanClinicalAttentionRow(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan clinical attention", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating clinical attentions", err)
	}

	return results, nil
}

// Count returns how many non-deleted episodes match the filter
func (a *ClinicalAttentionAdapter) Count(ctx context.Context, filter repositories.ClinicalAttentionFilter) (int, error) {
	defer a.client.ObserveQuery(ctx, "clinical_attentions.count", time.Now())

	query, args, err := a.db.From(goqu.T(clinicalAttentionTable).As("ca")).
		Select(goqu.COUNT("*")).
		Where(a.filterExpressions(filter)...).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count clinical attentions", err)
	}
	return count, nil
}

// CountAll returns the number of episodes, optionally for one resident
func (a *ClinicalAttentionAdapter) CountAll(ctx context.Context, residentDoctorID string) (int, error) {
	ds := a.db.From(clinicalAttentionTable).Select(goqu.COUNT("*"))
	if residentDoctorID != "" {
		ds = ds.Where(goqu.Ex{"resident_doctor_id": residentDoctorID})
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count clinical attentions", err)
	}
	return count, nil
}

// Update applies a partial update
func (a *ClinicalAttentionAdapter) Update(ctx context.Context, id string, update repositories.ClinicalAttentionUpdate) error {
	record := goqu.Record{"updated_at": time.Now().UTC()}

	setIf := func(column string, value any, present bool) {
		if present {
			record[column] = value
		}
	}
	setIf("id_episodio", update.IDEpisodio, update.IDEpisodio != nil)
	setIf("patient_id", update.PatientID, update.PatientID != nil)
	setIf("resident_doctor_id", update.ResidentDoctorID, update.ResidentDoctorID != nil)
	setIf("supervisor_doctor_id", update.SupervisorDoctorID, update.SupervisorDoctorID != nil)
	setIf("diagnostic", update.Diagnostic, update.Diagnostic != nil)
	setIf("medic_approved", update.MedicApproved, update.MedicApproved != nil)
	setIf("supervisor_approved", update.SupervisorApproved, update.SupervisorApproved != nil)
	setIf("supervisor_observation", update.SupervisorObservation, update.SupervisorObservation != nil)
	setIf("overwritten_reason", update.OverwrittenReason, update.OverwrittenReason != nil)
	setIf("overwritten_by_id", update.OverwrittenByID, update.OverwrittenByID != nil)
	setIf("pertinencia", update.Pertinencia, update.Pertinencia != nil)
	setIf("is_deleted", update.IsDeleted, update.IsDeleted != nil)

	if update.ClearOverwritten {
		record["overwritten_reason"] = nil
		record["overwritten_by_id"] = nil
	}

	return a.updateByID(ctx, id, record, "update")
}

// SaveAIEvaluation stores the outcome of an urgency evaluation
func (a *ClinicalAttentionAdapter) SaveAIEvaluation(ctx context.Context, id string, evaluation repositories.AIEvaluation) error {
	output, err := marshalUrgencyOutput(evaluation.Output)
	if err != nil {
		return apperrors.NewInternalError("failed to encode ai output", err)
	}

	return a.updateByID(ctx, id, goqu.Record{
		"ai_result":     evaluation.Result,
		"ai_reason":     evaluation.Reason,
		"ai_confidence": evaluation.Confidence,
		"ai_output":     output,
		"updated_at":    time.Now().UTC(),
	}, "save ai evaluation for")
}

// SoftDelete marks an episode deleted
func (a *ClinicalAttentionAdapter) SoftDelete(ctx context.Context, id, deletedByID string, at time.Time) error {
	return a.updateByID(ctx, id, goqu.Record{
		"is_deleted":    true,
		"deleted_at":    at,
		"deleted_by_id": deletedByID,
		"updated_at":    at,
	}, "delete")
}

// Close marks an episode closed
func (a *ClinicalAttentionAdapter) Close(ctx context.Context, id, closedByID string, reason entities.ClosingReason, at time.Time) error {
	return a.updateByID(ctx, id, goqu.Record{
		"is_closed":      true,
		"closed_at":      at,
		"closed_by_id":   closedByID,
		"closing_reason": string(reason),
		"updated_at":     at,
	}, "close")
}

// Reopen clears the closing fields
func (a *ClinicalAttentionAdapter) Reopen(ctx context.Context, id string) error {
	return a.updateByID(ctx, id, goqu.Record{
		"is_closed":      false,
		"closed_at":      nil,
		"closed_by_id":   nil,
		"closing_reason": nil,
		"updated_at":     time.Now().UTC(),
	}, "reopen")
}

func (a *ClinicalAttentionAdapter) updateByID(ctx context.Context, id string, record goqu.Record, action string) error {
	query, args, err := a.db.Update(clinicalAttentionTable).
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to %s clinical attention", action), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("clinical attention with id %s not found", id))
	}

	return nil
}

// ListOutcomes returns the review state of non-deleted episodes for metrics
func (a *ClinicalAttentionAdapter) ListOutcomes(ctx context.Context, window repositories.MetricsWindow, residentIDs, patientIDs []string) ([]repositories.EpisodeOutcome, error) {
	defer a.client.ObserveQuery(ctx, "clinical_attentions.list_outcomes", time.Now())

	ds := a.db.Select(
		"resident_doctor_id", "ai_result", "medic_approved", "supervisor_approved", "pertinencia",
	).From(clinicalAttentionTable).
		Where(goqu.Ex{"is_deleted": false})

	if window.Start != nil {
		ds = ds.Where(goqu.C("created_at").Gte(*window.Start))
	}
	if window.End != nil {
		ds = ds.Where(goqu.C("created_at").Lte(*window.End))
	}
	if len(residentIDs) > 0 {
		ds = ds.Where(goqu.C("resident_doctor_id").In(residentIDs))
	}
	if len(patientIDs) > 0 {
		ds = ds.Where(goqu.C("patient_id").In(patientIDs))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build outcomes query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list episode outcomes", err)
	}
	defer rows.Close()

	outcomes := []repositories.EpisodeOutcome{}
	for rows.Next() {
		var outcome repositories.EpisodeOutcome
		if err := rows.Scan(
			&outcome.ResidentDoctorID,
			&outcome.AIResult,
			&outcome.MedicApproved,
			&outcome.SupervisorApproved,
			&outcome.Pertinencia,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan episode outcome", err)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating episode outcomes", err)
	}

	return outcomes, nil
}

func (a *ClinicalAttentionAdapter) detailDataset() *goqu.SelectDataset {
	columns := columnList("ca", clinicalAttentionColumns)
	columns = append(columns, columnList("p", []string{"id", "rut", "first_name", "last_name", "email"})...)

	ds := a.db.From(goqu.T(clinicalAttentionTable).As("ca")).
		LeftJoin(goqu.T(patientTable).As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("ca.patient_id"))))

	for _, join := range participantJoins {
		ds = ds.LeftJoin(
			goqu.T(userTable).As(join.alias),
			goqu.On(goqu.I(join.alias+".id").Eq(goqu.I("ca."+join.column))),
		)
		columns = append(columns, columnList(join.alias, []string{"id", "first_name", "last_name", "email", "phone"})...)
	}

	return ds.Select(columns...)
}

func (a *ClinicalAttentionAdapter) filterExpressions(filter repositories.ClinicalAttentionFilter) []exp.Expression {
	exprs := []exp.Expression{goqu.I("ca.is_deleted").IsFalse()}

	if filter.ResidentDoctorID != "" {
		exprs = append(exprs, goqu.I("ca.resident_doctor_id").Eq(filter.ResidentDoctorID))
	}

	if filter.VisibleToUserID != "" {
		exprs = append(exprs, goqu.Or(
			goqu.I("ca.resident_doctor_id").Eq(filter.VisibleToUserID),
			goqu.I("ca.supervisor_doctor_id").Eq(filter.VisibleToUserID),
		))
	}

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		exprs = append(exprs, goqu.Or(
			goqu.I("ca.diagnostic").ILike(pattern),
			goqu.I("ca.patient_id").In(a.patientSearch(pattern)),
		))
	}

	if filter.PatientSearch != "" {
		exprs = append(exprs, goqu.I("ca.patient_id").In(a.patientSearch(likePattern(filter.PatientSearch))))
	}

	if filter.DoctorSearch != "" {
		doctors := a.db.From(userTable).Select("id").Where(goqu.Or(
			goqu.C("first_name").ILike(likePattern(filter.DoctorSearch)),
			goqu.C("last_name").ILike(likePattern(filter.DoctorSearch)),
		))
		exprs = append(exprs, goqu.Or(
			goqu.I("ca.resident_doctor_id").In(doctors),
			goqu.I("ca.supervisor_doctor_id").In(doctors),
		))
	}

	if expr := approvalExpression("ca.medic_approved", filter.MedicApproved); expr != nil {
		exprs = append(exprs, expr)
	}
	if expr := approvalExpression("ca.supervisor_approved", filter.SupervisorApproved); expr != nil {
		exprs = append(exprs, expr)
	}

	return exprs
}

func (a *ClinicalAttentionAdapter) patientSearch(pattern string) *goqu.SelectDataset {
	return a.db.From(patientTable).Select("id").Where(goqu.Or(
		goqu.C("rut").ILike(pattern),
		goqu.C("first_name").ILike(pattern),
		goqu.C("last_name").ILike(pattern),
	))
}

func approvalExpression(column string, filter entities.ApprovalFilter) exp.Expression {
	switch filter {
	case entities.ApprovalPending:
		return goqu.I(column).IsNull()
	case entities.ApprovalApproved:
		return goqu.I(column).IsTrue()
	case entities.ApprovalRejected:
		return goqu.I(column).IsFalse()
	}
	return nil
}

// orderExpressions turns "field" / "-field" terms into ORDER BY clauses,
// dropping anything not in allowed.
func orderExpressions(alias string, terms []string, allowed map[string]bool) []exp.OrderedExpression {
	var out []exp.OrderedExpression
	for _, term := range terms {
		desc := strings.HasPrefix(term, "-")
		column := strings.TrimPrefix(term, "-")
		if !allowed[column] {
			continue
		}
		if alias != "" {
			column = alias + "." + column
		}
		if desc {
			out = append(out, goqu.I(column).Desc())
		} else {
			out = append(out, goqu.I(column).Asc())
		}
	}
	return out
}

func likePattern(term string) string {
	return "%" + strings.TrimSpace(term) + "%"
}

func columnList(alias string, columns []string) []any {
	out := make([]any, 0, len(columns))
	for _, column := range columns {
		if alias != "" {
			column = alias + "." + column
		}
		out = append(out, goqu.I(column))
	}
	return out
}

// marshalUrgencyOutput returns the jsonb literal for output, or an untyped nil
// so the column is written as NULL.
func marshalUrgencyOutput(output *entities.UrgencyOutput) (any, error) {
	if output == nil {
		return nil, nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func clinicalAttentionScanTargets(attention *entities.ClinicalAttention, output *[]byte) []any {
	return []any{
		&attention.ID,
		&attention.IDEpisodio,
		&attention.PatientID,
		&attention.ResidentDoctorID,
		&attention.SupervisorDoctorID,
		&attention.Diagnostic,
		&attention.AIResult,
		&attention.AIReason,
		&attention.AIConfidence,
		output,
		&attention.MedicApproved,
		&attention.SupervisorApproved,
		&attention.SupervisorObservation,
		&attention.OverwrittenReason,
		&attention.OverwrittenByID,
		&attention.Pertinencia,
		&attention.IsDeleted,
		&attention.DeletedAt,
		&attention.DeletedByID,
		&attention.IsClosed,
		&attention.ClosedAt,
		&attention.ClosedByID,
		&attention.ClosingReason,
		&attention.CreatedAt,
		&attention.UpdatedAt,
	}
}

func decodeUrgencyOutput(attention *entities.ClinicalAttention, output []byte) error {
	if len(output) > 0 {
		parsed := &entities.UrgencyOutput{}
		if err := json.Unmarshal(output, parsed); err != nil {
			return fmt.Errorf("decode ai_output: %w", err)
		}
		attention.AIOutput = parsed
	}
	return nil
}

func scanClinicalAttention(scanner rowScanner, attention *entities.ClinicalAttention) error {
	var output []byte
	if err := scanner.Scan(clinicalAttentionScanTargets(attention, &output)...); err != nil {
		return err
	}
	return decodeUrgencyOutput(attention, output)
}

type nullUser struct {
	id, firstName, lastName, email, phone sql.NullString
}

func (u *nullUser) targets() []any {
	return []any{&u.id, &u.firstName, &u.lastName, &u.email, &u.phone}
}

func (u *nullUser) user() *entities.User {
	if !u.id.Valid {
		return nil
	}
	return &entities.User{
		ID:        u.id.String,
		FirstName: u.firstName.String,
		LastName:  u.lastName.String,
		Email:     nullStringPtr(u.email),
		Phone:     nullStringPtr(u.phone),
	}
}

func scanClinicalAttentionRow(scanner rowScanner) (*repositories.ClinicalAttentionRow, error) {
	row := &repositories.ClinicalAttentionRow{}

	var output []byte
	targets := clinicalAttentionScanTargets(&row.ClinicalAttention, &output)

	var patientID, patientRUT, patientFirst, patientLast, patientEmail sql.NullString
	targets = append(targets, &patientID, &patientRUT, &patientFirst, &patientLast, &patientEmail)

	users := make([]nullUser, len(participantJoins))
	for i := range users {
		targets = append(targets, users[i].targets()...)
	}

	if err := scanner.Scan(targets...); err != nil {
		return nil, err
	}
	if err := decodeUrgencyOutput(&row.ClinicalAttention, output); err != nil {
		return nil, err
	}

	if patientID.Valid {
		row.Patient = &entities.Patient{
			ID:        patientID.String,
			RUT:       patientRUT.String,
			FirstName: patientFirst.String,
			LastName:  patientLast.String,
			Email:     nullStringPtr(patientEmail),
		}
	}

	row.ResidentDoctor = users[0].user()
	row.SupervisorDoctor = users[1].user()
	row.ClosedBy = users[2].user()
	row.DeletedBy = users[3].user()
	row.OverwrittenBy = users[4].user()

	return row, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
