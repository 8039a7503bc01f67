package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	apperrors "github.com/iic3964/leyurgencia/backend/pkg/errors"
	"github.com/iic3964/leyurgencia/backend/pkg/retry"
)

const (
	defaultUrgencyMaxAttempts  = 3
	defaultUrgencyInitialDelay = time.Second
)

// UrgencyReasoningConfig controls how the reasoning service reaches the model.
type UrgencyReasoningConfig struct {
	// Enabled is false when live model access is switched off or no
	// credential is configured; Evaluate then returns the placeholder.
	Enabled      bool
	MaxAttempts  int
	InitialDelay time.Duration
	// Sleep overrides the wait between attempts (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

// UrgencyReasoningService asks a completion provider whether the Ley de
// Urgencia applies to a free-text clinical case.
type UrgencyReasoningService struct {
	provider providers.CompletionProvider
	cfg      UrgencyReasoningConfig
}

// NewUrgencyReasoningService creates a reasoning service. provider may be nil
// when the service is disabled.
func NewUrgencyReasoningService(provider providers.CompletionProvider, cfg UrgencyReasoningConfig) *UrgencyReasoningService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultUrgencyMaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultUrgencyInitialDelay
	}
	return &UrgencyReasoningService{provider: provider, cfg: cfg}
}

// Enabled reports whether Evaluate will call the model.
func (s *UrgencyReasoningService) Enabled() bool {
	return s.cfg.Enabled
}

// Evaluate returns the structured urgency judgement for caseText.
func (s *UrgencyReasoningService) Evaluate(ctx context.Context, caseText string) (*entities.UrgencyOutput, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "urgency.evaluate")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	if !s.cfg.Enabled {
		observability.RecordUrgencyEvaluation("fallback", 0, time.Since(start))
		return entities.PlaceholderUrgencyOutput(), nil
	}

	if s.provider == nil {
		err := apperrors.NewUnavailableError("urgency reasoning provider is not configured", providers.ErrCompletionUnavailable)
		observability.RecordError(span, err)
		observability.RecordUrgencyEvaluation("unavailable", 0, time.Since(start))
		return nil, err
	}

	req := BuildUrgencyCompletionRequest(StripTriageSections(caseText))
	observability.SetSpanAttributes(span,
		attribute.String("ai.provider", s.provider.Name()),
		attribute.Int("case.length", len(caseText)),
	)

	attempts := 0
	var resp *providers.CompletionResponse
	retryCfg := retry.Config{
		MaxAttempts:   s.cfg.MaxAttempts,
		InitialDelay:  s.cfg.InitialDelay,
		BackoffFactor: 2,
		ShouldRetry:   providers.IsTransientCompletionError,
		Sleep:         s.cfg.Sleep,
	}
	err := retry.DoWithLog(ctx, retryCfg, s.provider.Name(), func() error {
		attempts++
		r, err := s.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("next_delay", next).
			Str("provider", s.provider.Name()).
			Msg("Transient completion failure, retrying")
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordUrgencyEvaluation("failed", attempts, time.Since(start))
		logger.Error().Err(err).Int("attempts", attempts).Msg("Urgency reasoning failed")
		return nil, apperrors.NewExternalError(fmt.Sprintf("urgency reasoning failed after %d attempt(s)", attempts), err)
	}

	output := ParseUrgencyOutput(resp.Text)
	if strings.TrimSpace(resp.Text) == "" {
		logger.Warn().Str("provider", s.provider.Name()).Msg("Empty completion text, using defaulted judgement")
	}

	span.SetAttributes(
		attribute.String("urgency.flag", string(output.UrgencyFlag)),
		attribute.Int("urgency.attempts", attempts),
	)
	observability.RecordUrgencyEvaluation("success", attempts, time.Since(start))
	observability.RecordUrgencyFlag(string(output.UrgencyFlag))

	logger.Debug().
		Str("flag", string(output.UrgencyFlag)).
		Float64("confidence", output.UrgencyConfidence).
		Int("attempts", attempts).
		Msg("Urgency reasoning completed")

	return output, nil
}
