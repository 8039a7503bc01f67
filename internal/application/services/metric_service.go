package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
)

const (
	metricsCacheTTLSeconds = 60
	metricsCachePrefix     = "metrics:"
	metricsDateLayout      = "2006-01-02"
	unknownUserName        = "Usuario Desconocido"
	unknownInsurerName     = "Desconocida"
)

// MetricService aggregates how urgency decisions held up against insurer review
type MetricService struct {
	repo     repositories.ClinicalAttentionRepository
	users    repositories.UserRepository
	patients repositories.PatientRepository
	insurers repositories.InsuranceCompanyRepository
	cache    providers.CacheProvider
}

// NewMetricService creates a new metric service. cache may be nil.
func NewMetricService(
	repo repositories.ClinicalAttentionRepository,
	users repositories.UserRepository,
	patients repositories.PatientRepository,
	insurers repositories.InsuranceCompanyRepository,
	cache providers.CacheProvider,
) *MetricService {
	return &MetricService{
		repo:     repo,
		users:    users,
		patients: patients,
		insurers: insurers,
		cache:    cache,
	}
}

// ParseMetricsWindow turns optional YYYY-MM-DD bounds into an inclusive
// creation-date window covering whole days.
func ParseMetricsWindow(start, end string) (repositories.MetricsWindow, error) {
	var window repositories.MetricsWindow
	if start != "" {
		t, err := time.Parse(metricsDateLayout, start)
		if err != nil {
			return window, apperrors.NewValidationError("start_date must use the YYYY-MM-DD format")
		}
		window.Start = &t
	}
	if end != "" {
		t, err := time.Parse(metricsDateLayout, end)
		if err != nil {
			return window, apperrors.NewValidationError("end_date must use the YYYY-MM-DD format")
		}
		t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		window.End = &t
	}
	return window, nil
}

// AllUsers returns one entry per active user, including users without
// episodes, sorted by name.
func (s *MetricService) AllUsers(ctx context.Context, start, end string) ([]entities.MetricStats, error) {
	window, err := ParseMetricsWindow(start, end)
	if err != nil {
		return nil, err
	}

	var cached []entities.MetricStats
	key := metricsCacheKey("users", "all", start, end)
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.repo.ListOutcomes(ctx, window, nil, nil)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]repositories.EpisodeOutcome, len(users))
	for _, u := range users {
		grouped[u.ID] = nil
	}
	for _, o := range outcomes {
		if _, ok := grouped[o.ResidentDoctorID]; ok {
			grouped[o.ResidentDoctorID] = append(grouped[o.ResidentDoctorID], o)
		}
	}

	results := make([]entities.MetricStats, 0, len(users))
	for _, u := range users {
		results = append(results, ComputeMetricStats(grouped[u.ID], u.ID, u.FullName()))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	s.setCached(ctx, key, results)
	return results, nil
}

// User returns the stats of the episodes a user attended as resident
func (s *MetricService) User(ctx context.Context, userID, start, end string) (*entities.MetricStats, error) {
	window, err := ParseMetricsWindow(start, end)
	if err != nil {
		return nil, err
	}

	var cached entities.MetricStats
	key := metricsCacheKey("users", userID, start, end)
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	name := unknownUserName
	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		name = user.FullName()
	case !apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		return nil, err
	}

	outcomes, err := s.repo.ListOutcomes(ctx, window, []string{userID}, nil)
	if err != nil {
		return nil, err
	}

	stats := ComputeMetricStats(outcomes, userID, name)
	s.setCached(ctx, key, stats)
	return &stats, nil
}

// Insurance returns the stats of the episodes of an insurer's patients
func (s *MetricService) Insurance(ctx context.Context, companyID int64, start, end string) (*entities.MetricStats, error) {
	window, err := ParseMetricsWindow(start, end)
	if err != nil {
		return nil, err
	}

	id := strconv.FormatInt(companyID, 10)
	var cached entities.MetricStats
	key := metricsCacheKey("insurance", id, start, end)
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	name := unknownInsurerName
	company, err := s.insurers.GetByID(ctx, companyID)
	switch {
	case err == nil:
		name = company.NombreJuridico
	case !apperrors.IsType(err, apperrors.ErrorTypeNotFound):
		return nil, err
	}

	patientIDs, err := s.patients.ListIDsByInsuranceCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var outcomes []repositories.EpisodeOutcome
	if len(patientIDs) > 0 {
		outcomes, err = s.repo.ListOutcomes(ctx, window, nil, patientIDs)
		if err != nil {
			return nil, err
		}
	}

	stats := ComputeMetricStats(outcomes, id, name)
	s.setCached(ctx, key, stats)
	return &stats, nil
}

// ComputeMetricStats buckets outcomes by the reconciled urgency decision and
// the AI verdict, and reports which share of each bucket insurers rejected.
// A nil pertinence is pending review and never counts as rejected.
func ComputeMetricStats(outcomes []repositories.EpisodeOutcome, id, name string) entities.MetricStats {
	var urgencyLaw, urgencyLawRejected, aiYes, aiYesRejected, aiNoMedicYes, aiNoMedicYesRejected int

	for _, o := range outcomes {
		applies := entities.ReconcileUrgencyLaw(o.AIResult, o.MedicApproved, o.SupervisorApproved)
		rejected := o.Pertinencia != nil && !*o.Pertinencia
		appliesYes := applies != nil && *applies

		if appliesYes {
			urgencyLaw++
			if rejected {
				urgencyLawRejected++
			}
		}
		if o.AIResult != nil && *o.AIResult {
			aiYes++
			if rejected {
				aiYesRejected++
			}
		}
		if o.AIResult != nil && !*o.AIResult && appliesYes {
			aiNoMedicYes++
			if rejected {
				aiNoMedicYesRejected++
			}
		}
	}

	return entities.MetricStats{
		ID:                          id,
		Name:                        name,
		TotalEpisodes:               len(outcomes),
		TotalUrgencyLaw:             urgencyLaw,
		PercentUrgencyLawRejected:   percentage(urgencyLawRejected, urgencyLaw),
		TotalAIYes:                  aiYes,
		PercentAIYesRejected:        percentage(aiYesRejected, aiYes),
		TotalAINoMedicYes:           aiNoMedicYes,
		PercentAINoMedicYesRejected: percentage(aiNoMedicYesRejected, aiNoMedicYes),
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func metricsCacheKey(kind, id, start, end string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", metricsCachePrefix, kind, id, start, end)
}

func (s *MetricService) getCached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Metrics cache read failed")
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *MetricService) setCached(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, metricsCacheTTLSeconds); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Metrics cache write failed")
	}
}
