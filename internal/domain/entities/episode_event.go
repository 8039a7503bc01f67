package entities

import (
	"time"

	"github.com/google/uuid"
)

// EpisodeEventType represents the type of clinical attention event
type EpisodeEventType string

const (
	EpisodeEventCreated     EpisodeEventType = "episode.created"
	EpisodeEventUpdated     EpisodeEventType = "episode.updated"
	EpisodeEventAIEvaluated EpisodeEventType = "episode.ai_evaluated"
	EpisodeEventAIFailed    EpisodeEventType = "episode.ai_failed"
)

// EpisodeEvent is a real-time notification about a clinical attention
type EpisodeEvent struct {
	ID        string           `json:"id"`
	Type      EpisodeEventType `json:"type"`
	EpisodeID string           `json:"episode_id"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   map[string]any   `json:"payload,omitempty"`
}

// NewEpisodeEvent creates a new episode event
func NewEpisodeEvent(episodeID string, eventType EpisodeEventType, payload map[string]any) *EpisodeEvent {
	return &EpisodeEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		EpisodeID: episodeID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
