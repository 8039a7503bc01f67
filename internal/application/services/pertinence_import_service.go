package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

var (
	episodeHeaders    = map[string]bool{"episodio": true, `"episodio"`: true, "id_episodio": true}
	validationHeaders = map[string]bool{"validación": true, "validacion": true, "pertinencia": true}
)

// ImportResult summarizes a pertinence import
type ImportResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// PertinenceRow is one insurer decision about an episode
type PertinenceRow struct {
	Line       int
	Episode    string
	Validation string
}

// PertinenceImportService applies insurer pertinence decisions to episodes
type PertinenceImportService struct {
	repo     repositories.ClinicalAttentionRepository
	patients repositories.PatientRepository
}

// NewPertinenceImportService creates a new import service
func NewPertinenceImportService(repo repositories.ClinicalAttentionRepository, patients repositories.PatientRepository) *PertinenceImportService {
	return &PertinenceImportService{repo: repo, patients: patients}
}

// ImportCSV reads an uploaded CSV and applies it for one insurer
func (s *PertinenceImportService) ImportCSV(ctx context.Context, insuranceCompanyID int64, r io.Reader) (*ImportResult, error) {
	rows, err := ParsePertinenceCSV(r)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, insuranceCompanyID, rows)
}

// ParsePertinenceCSV extracts the episode and validation columns. Headers are
// matched case-insensitively; comma and semicolon separators are accepted.
func ParsePertinenceCSV(r io.Reader) ([]PertinenceRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("could not read file: %v", err))
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid CSV: %v", err))
	}
	if len(records) == 0 {
		return nil, apperrors.NewValidationError("El archivo debe incluir columnas: 'Episodio' y 'Validación'")
	}

	episodeCol, validationCol := -1, -1
	for i, cell := range records[0] {
		header := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case episodeHeaders[header]:
			episodeCol = i
		case validationHeaders[header]:
			validationCol = i
		}
	}
	if episodeCol < 0 || validationCol < 0 {
		return nil, apperrors.NewValidationError("El archivo debe incluir columnas: 'Episodio' y 'Validación'")
	}

	rows := make([]PertinenceRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row := PertinenceRow{Line: i + 2}
		if episodeCol < len(record) {
			row.Episode = strings.TrimSpace(record[episodeCol])
		}
		if validationCol < len(record) {
			row.Validation = strings.TrimSpace(record[validationCol])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}

// ParsePertinence maps a validation cell to a pertinence value.
// ok is false when the cell is not understood and the row must be skipped.
func ParsePertinence(value string) (pertinent bool, ok bool) {
	switch v := strings.ToUpper(strings.TrimSpace(value)); v {
	case "PERTINENTE":
		return true, true
	case "NO PERTINENTE":
		return false, true
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return false, false
		}
		return n != 0, true
	}
}

// Import applies rows for one insurer. Rows whose value is not understood,
// whose episode is unknown, or whose patient belongs to another insurer are skipped.
func (s *PertinenceImportService) Import(ctx context.Context, insuranceCompanyID int64, rows []PertinenceRow) (*ImportResult, error) {
	logger := observability.LoggerFromContext(ctx).With().Int64("insurance_company_id", insuranceCompanyID).Logger()
	result := &ImportResult{}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		updated, err := s.applyRow(ctx, insuranceCompanyID, row)
		if err != nil {
			logger.Warn().Err(err).Int("line", row.Line).Str("episode", row.Episode).Msg("Skipping pertinence row")
		}
		if updated {
			result.Updated++
		} else {
			result.Skipped++
		}
	}

	observability.RecordPertinenceImport(result.Updated, result.Skipped)
	logger.Info().Int("updated", result.Updated).Int("skipped", result.Skipped).Msg("Pertinence import completed")
	return result, nil
}

func (s *PertinenceImportService) applyRow(ctx context.Context, insuranceCompanyID int64, row PertinenceRow) (bool, error) {
	pertinent, ok := ParsePertinence(row.Validation)
	if !ok {
		return false, fmt.Errorf("invalid validation value %q", row.Validation)
	}
	if row.Episode == "" {
		return false, errors.New("empty episode")
	}

	attention, err := s.repo.GetByEpisodeNumber(ctx, row.Episode)
	if err != nil {
		return false, err
	}

	patient, err := s.patients.GetByID(ctx, attention.PatientID)
	if err != nil {
		return false, err
	}
	if patient.InsuranceCompanyID == nil || *patient.InsuranceCompanyID != insuranceCompanyID {
		return false, errors.New("insurance mismatch")
	}

	if err := s.repo.Update(ctx, attention.ID, repositories.ClinicalAttentionUpdate{Pertinencia: &pertinent}); err != nil {
		return false, err
	}
	return true, nil
}
