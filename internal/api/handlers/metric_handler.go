package handlers

import (
	"context"
	"net/http"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// MetricReporter computes review metrics over an optional date window
type MetricReporter interface {
	AllUsers(ctx context.Context, start, end string) ([]entities.MetricStats, error)
	User(ctx context.Context, userID, start, end string) (*entities.MetricStats, error)
	Insurance(ctx context.Context, companyID int64, start, end string) (*entities.MetricStats, error)
}

// MetricHandler handles metric requests. Dates are YYYY-MM-DD.
type MetricHandler struct {
	metrics MetricReporter
}

// NewMetricHandler creates a new metric handler
func NewMetricHandler(metrics MetricReporter) *MetricHandler {
	return &MetricHandler{metrics: metrics}
}

// UsersMetrics handles GET /api/v1/metrics/users
func (h *MetricHandler) UsersMetrics(w http.ResponseWriter, r *http.Request) {
	start, end := dateWindow(r)
	stats, err := h.metrics.AllUsers(r.Context(), start, end)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// UserMetrics handles GET /api/v1/metrics/users/{id}
func (h *MetricHandler) UserMetrics(w http.ResponseWriter, r *http.Request) {
	start, end := dateWindow(r)
	stats, err := h.metrics.User(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// InsuranceMetrics handles GET /api/v1/metrics/insurance/{id}
func (h *MetricHandler) InsuranceMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	start, end := dateWindow(r)
	stats, err := h.metrics.Insurance(r.Context(), id, start, end)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func dateWindow(r *http.Request) (string, string) {
	query := r.URL.Query()
	return query.Get("start_date"), query.Get("end_date")
}
