package routes

import (
	"net/http"

	"github.com/iic3964/leyurgencia/backend/internal/api/handlers"
	"github.com/iic3964/leyurgencia/backend/internal/api/middleware"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
)

// Handlers groups the route handlers. SSE may be nil when no event bus is configured.
type Handlers struct {
	ClinicalAttention *handlers.ClinicalAttentionHandler
	Directory         *handlers.DirectoryHandler
	InsuranceCompany  *handlers.InsuranceCompanyHandler
	Metric            *handlers.MetricHandler
	Urgency           *handlers.UrgencyHandler
	SSE               *handlers.SSEHandler
}

// Options configures the middleware chain
type Options struct {
	AllowedOrigins  []string
	CacheMiddleware *middleware.CacheMiddleware
	Metrics         *observability.Metrics
	// HealthCheck, when set, backs /health; a failure answers 503.
	HealthCheck func(r *http.Request) error
}

// Router holds all route handlers
type Router struct {
	mux      *http.ServeMux
	handlers Handlers
	opts     Options
}

// NewRouter creates a new router
func NewRouter(h Handlers, opts Options) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		handlers: h,
		opts:     opts,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.health)
	r.mux.Handle("GET /metrics", observability.PrometheusHandler())

	ca := r.handlers.ClinicalAttention
	r.mux.HandleFunc("GET /api/v1/clinical-attentions", ca.ListClinicalAttentions)
	r.mux.HandleFunc("POST /api/v1/clinical-attentions", ca.CreateClinicalAttention)
	r.mux.HandleFunc("GET /api/v1/clinical-attentions/{id}", ca.GetClinicalAttention)
	r.mux.HandleFunc("PATCH /api/v1/clinical-attentions/{id}", ca.UpdateClinicalAttention)
	r.mux.HandleFunc("DELETE /api/v1/clinical-attentions/{id}", ca.DeleteClinicalAttention)
	r.mux.HandleFunc("POST /api/v1/clinical-attentions/{id}/medic-approval", ca.MedicApproval)
	r.mux.HandleFunc("POST /api/v1/clinical-attentions/{id}/supervisor-approval", ca.SupervisorApproval)
	r.mux.HandleFunc("POST /api/v1/clinical-attentions/{id}/close", ca.CloseClinicalAttention)
	r.mux.HandleFunc("POST /api/v1/clinical-attentions/{id}/reopen", ca.ReopenClinicalAttention)

	// more specific than {id}, so the mux prefers it
	if r.handlers.SSE != nil {
		r.mux.HandleFunc("GET /api/v1/clinical-attentions/events", r.handlers.SSE.StreamEpisodeEvents)
	}

	dir := r.handlers.Directory
	r.mux.HandleFunc("GET /api/v1/patients", dir.ListPatients)
	r.mux.HandleFunc("GET /api/v1/doctors/residents", dir.ListResidents)
	r.mux.HandleFunc("GET /api/v1/doctors/supervisors", dir.ListSupervisors)

	ic := r.handlers.InsuranceCompany
	r.mux.HandleFunc("GET /api/v1/insurance-companies", ic.ListInsuranceCompanies)
	r.mux.HandleFunc("POST /api/v1/insurance-companies", ic.CreateInsuranceCompany)
	r.mux.HandleFunc("GET /api/v1/insurance-companies/{id}", ic.GetInsuranceCompany)
	r.mux.HandleFunc("PATCH /api/v1/insurance-companies/{id}", ic.UpdateInsuranceCompany)
	r.mux.HandleFunc("PUT /api/v1/insurance-companies/{id}", ic.UpdateInsuranceCompany)
	r.mux.HandleFunc("DELETE /api/v1/insurance-companies/{id}", ic.DeleteInsuranceCompany)
	r.mux.HandleFunc("POST /api/v1/insurance-companies/{id}/pertinence-import", ca.ImportPertinence)

	m := r.handlers.Metric
	r.mux.HandleFunc("GET /api/v1/metrics/users", m.UsersMetrics)
	r.mux.HandleFunc("GET /api/v1/metrics/users/{id}", m.UserMetrics)
	r.mux.HandleFunc("GET /api/v1/metrics/insurance/{id}", m.InsuranceMetrics)

	r.mux.HandleFunc("POST /api/v1/ai/urgency", r.handlers.Urgency.EvaluateUrgency)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.opts.CacheMiddleware != nil {
		handler = r.opts.CacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.opts.Metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.opts.AllowedOrigins)(handler)

	return handler
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if r.opts.HealthCheck != nil {
		if err := r.opts.HealthCheck(req); err != nil {
			observability.LoggerFromContext(req.Context()).Warn().Err(err).Msg("Health check failed")
			http.Error(w, "UNAVAILABLE", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		return
	}
}
