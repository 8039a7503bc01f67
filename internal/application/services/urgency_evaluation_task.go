package services

import (
	"context"
	"fmt"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/repositories"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	"github.com/iic3964/leyurgencia/backend/pkg/tasks"
)

// UrgencyEvaluationTaskName labels background urgency evaluations
const UrgencyEvaluationTaskName = "urgency_evaluation"

// UrgencyEvaluator produces an urgency judgement for a case text
type UrgencyEvaluator interface {
	Evaluate(ctx context.Context, caseText string) (*entities.UrgencyOutput, error)
}

// TaskScheduler runs work outside the request path
type TaskScheduler interface {
	Submit(name string, fn tasks.Func) error
}

// UrgencyEvaluationTask evaluates an episode's diagnostic and stores the verdict
type UrgencyEvaluationTask struct {
	evaluator UrgencyEvaluator
	repo      repositories.ClinicalAttentionRepository
	eventBus  providers.EventBus
}

// NewUrgencyEvaluationTask creates the task. eventBus may be nil.
func NewUrgencyEvaluationTask(evaluator UrgencyEvaluator, repo repositories.ClinicalAttentionRepository, eventBus providers.EventBus) *UrgencyEvaluationTask {
	return &UrgencyEvaluationTask{
		evaluator: evaluator,
		repo:      repo,
		eventBus:  eventBus,
	}
}

// Run evaluates diagnostic and writes the AI fields of the episode.
// On failure the episode keeps whatever AI fields it had.
func (t *UrgencyEvaluationTask) Run(ctx context.Context, episodeID, diagnostic string) error {
	logger := observability.LoggerFromContext(ctx).With().Str("episode_id", episodeID).Logger()

	output, err := t.evaluator.Evaluate(ctx, diagnostic)
	if err != nil {
		logger.Error().Err(err).Msg("Urgency evaluation failed")
		publishEpisodeEvent(ctx, t.eventBus, entities.NewEpisodeEvent(episodeID, entities.EpisodeEventAIFailed, map[string]any{
			"error": err.Error(),
		}))
		return fmt.Errorf("evaluate episode %s: %w", episodeID, err)
	}

	evaluation := repositories.AIEvaluation{
		Result:     output.Applies(),
		Reason:     output.Rationale,
		Confidence: output.UrgencyConfidence,
		Output:     output,
	}
	if err := t.repo.SaveAIEvaluation(ctx, episodeID, evaluation); err != nil {
		logger.Error().Err(err).Msg("Failed to save urgency evaluation")
		return fmt.Errorf("save evaluation for episode %s: %w", episodeID, err)
	}

	logger.Info().
		Str("urgency_flag", string(output.UrgencyFlag)).
		Bool("ai_result", evaluation.Result).
		Msg("Updated AI result for episode")

	publishEpisodeEvent(ctx, t.eventBus, entities.NewEpisodeEvent(episodeID, entities.EpisodeEventAIEvaluated, map[string]any{
		"ai_result":     evaluation.Result,
		"urgency_flag":  output.UrgencyFlag,
		"ai_confidence": evaluation.Confidence,
	}))
	return nil
}

// Schedule submits Run to scheduler. Only a rejected submission is reported.
func (t *UrgencyEvaluationTask) Schedule(scheduler TaskScheduler, episodeID, diagnostic string) error {
	return scheduler.Submit(UrgencyEvaluationTaskName, func(ctx context.Context) error {
		return t.Run(ctx, episodeID, diagnostic)
	})
}

// publishEpisodeEvent fans an event out to the episode channel and the global
// channel. Delivery is best effort.
func publishEpisodeEvent(ctx context.Context, bus providers.EventBus, event *entities.EpisodeEvent) {
	if bus == nil {
		return
	}
	logger := observability.LoggerFromContext(ctx)
	for _, channel := range []string{providers.GetEpisodeChannel(event.EpisodeID), providers.EventChannelEpisodeUpdates} {
		if err := bus.Publish(ctx, channel, event); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Str("event_type", string(event.Type)).Msg("Failed to publish episode event")
		}
	}
}
