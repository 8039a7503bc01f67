package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
)

// CacheInvalidationService drops cached metrics when episodes change
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for episode events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelEpisodeUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to episode updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.EpisodeEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.EpisodeEvent) {
	// A failed evaluation leaves the stored verdict untouched.
	if event.Type == entities.EpisodeEventAIFailed {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.InvalidateMetrics(ctx); err != nil {
		log.Warn().Err(err).Str("episode_id", event.EpisodeID).Msg("Failed to invalidate metrics cache")
		return
	}
	log.Debug().Str("episode_id", event.EpisodeID).Str("event_type", string(event.Type)).Msg("Invalidated metrics cache")
}

// InvalidateMetrics drops every cached metric
func (s *CacheInvalidationService) InvalidateMetrics(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, metricsCachePrefix+"*"); err != nil {
		return fmt.Errorf("failed to invalidate metrics cache: %w", err)
	}
	return nil
}
