package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iic3964/leyurgencia/backend/internal/api/handlers"
	"github.com/iic3964/leyurgencia/backend/internal/api/routes"
	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// stubEpisodes implements only Get; other methods panic if routed to.
type stubEpisodes struct {
	handlers.ClinicalAttentionService
	requested string
}

func (s *stubEpisodes) Get(ctx context.Context, id string) (*services.ClinicalAttentionView, error) {
	s.requested = id
	return &services.ClinicalAttentionView{ClinicalAttention: entities.ClinicalAttention{ID: id}}, nil
}

func newTestRouter(episodes *stubEpisodes, opts routes.Options) http.Handler {
	return routes.NewRouter(routes.Handlers{
		ClinicalAttention: handlers.NewClinicalAttentionHandler(episodes, nil),
		Directory:         handlers.NewDirectoryHandler(nil, nil),
		InsuranceCompany:  handlers.NewInsuranceCompanyHandler(nil),
		Metric:            handlers.NewMetricHandler(nil),
		Urgency:           handlers.NewUrgencyHandler(nil),
		SSE:               handlers.NewSSEHandler(nil),
	}, opts).SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := newTestRouter(&stubEpisodes{}, routes.Options{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		router := newTestRouter(&stubEpisodes{}, routes.Options{
			HealthCheck: func(r *http.Request) error { return errors.New("connection refused") },
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRouter_EpisodeRoutes(t *testing.T) {
	t.Run("episode by id", func(t *testing.T) {
		episodes := &stubEpisodes{}
		router := newTestRouter(episodes, routes.Options{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clinical-attentions/ep-42", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ep-42", episodes.requested)
	})

	t.Run("events is not an episode id", func(t *testing.T) {
		episodes := &stubEpisodes{}
		router := newTestRouter(episodes, routes.Options{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clinical-attentions/events", nil))

		// the SSE handler answers 503 without an event bus
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Empty(t, episodes.requested)
	})

	t.Run("pertinence import lives under the insurer", func(t *testing.T) {
		router := newTestRouter(&stubEpisodes{}, routes.Options{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/insurance-companies/7/pertinence-import", nil))

		// no file uploaded, rejected before the importer is reached
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		router := newTestRouter(&stubEpisodes{}, routes.Options{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/clinical-attentions/ep-42", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(&stubEpisodes{}, routes.Options{AllowedOrigins: []string{"https://urgencia.example.cl"}})

	t.Run("preflight from an allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/clinical-attentions", nil)
		req.Header.Set("Origin", "https://urgencia.example.cl")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://urgencia.example.cl", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-User-ID")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/clinical-attentions", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
