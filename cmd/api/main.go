package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iic3964/leyurgencia/backend/internal/adapters/cache"
	"github.com/iic3964/leyurgencia/backend/internal/adapters/database"
	"github.com/iic3964/leyurgencia/backend/internal/adapters/events"
	"github.com/iic3964/leyurgencia/backend/internal/adapters/providers/completion"
	"github.com/iic3964/leyurgencia/backend/internal/api/handlers"
	"github.com/iic3964/leyurgencia/backend/internal/api/middleware"
	"github.com/iic3964/leyurgencia/backend/internal/api/routes"
	"github.com/iic3964/leyurgencia/backend/internal/application/services"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/postgres"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/clients/redis"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	"github.com/iic3964/leyurgencia/backend/pkg/config"
	"github.com/iic3964/leyurgencia/backend/pkg/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	pgClient.SetMetrics(metrics)

	// Redis backs the metrics cache and the episode event bus; both are optional
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; running without cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
		}
	}

	episodeRepo := database.NewClinicalAttentionAdapter(pgClient)
	patientRepo := database.NewPatientAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)
	insurerRepo := database.NewInsuranceCompanyAdapter(pgClient)

	completionProvider, err := completion.NewCompletionProvider(&cfg.AI)
	if err != nil {
		log.Error().Err(err).Str("provider", cfg.AI.Provider).Msg("Failed to build completion provider; urgency evaluation unavailable")
		completionProvider = nil
	}
	if !cfg.AI.Enabled() {
		log.Warn().Msg("Live urgency reasoning disabled; evaluations return the placeholder verdict")
	}

	reasoningService := services.NewUrgencyReasoningService(completionProvider, services.UrgencyReasoningConfig{
		Enabled: cfg.AI.Enabled(),
	})

	runner := tasks.NewRunner(tasks.Config{
		Workers:  cfg.Tasks.Workers,
		Timeout:  cfg.Tasks.Timeout,
		OnFinish: observability.RecordBackgroundTask,
	})

	evaluationTask := services.NewUrgencyEvaluationTask(reasoningService, episodeRepo, eventBus)
	episodeService := services.NewClinicalAttentionService(episodeRepo, patientRepo, userRepo, evaluationTask, runner, eventBus)
	importService := services.NewPertinenceImportService(episodeRepo, patientRepo)
	patientService := services.NewPatientService(patientRepo)
	doctorService := services.NewDoctorService(userRepo)
	insurerService := services.NewInsuranceCompanyService(insurerRepo)
	metricService := services.NewMetricService(episodeRepo, userRepo, patientRepo, insurerRepo, cacheProvider)

	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
			cacheInvalidationService = nil
		}
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, middleware.DefaultCacheRoutes, metrics)
	}

	router := routes.NewRouter(routes.Handlers{
		ClinicalAttention: handlers.NewClinicalAttentionHandler(episodeService, importService),
		Directory:         handlers.NewDirectoryHandler(patientService, doctorService),
		InsuranceCompany:  handlers.NewInsuranceCompanyHandler(insurerService),
		Metric:            handlers.NewMetricHandler(metricService),
		Urgency:           handlers.NewUrgencyHandler(reasoningService),
		SSE:               handlers.NewSSEHandler(eventBus),
	}, routes.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		CacheMiddleware: cacheMiddleware,
		Metrics:         metrics,
		HealthCheck: func(r *http.Request) error {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			return pgClient.Ping(ctx)
		},
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// the urgency endpoint waits on the model, with retries
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Env).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Closing the bus first ends open SSE streams so Shutdown can return
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}
	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// in-flight urgency evaluations still write their verdicts
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Background tasks did not finish before shutdown")
	}

	log.Info().Msg("Server stopped")
}
