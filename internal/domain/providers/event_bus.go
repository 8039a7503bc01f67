package providers

import (
	"context"

	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to episode events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.EpisodeEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.EpisodeEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelEpisodeUpdates carries every episode event
	EventChannelEpisodeUpdates = "episode:updates"

	// EventChannelEpisodePrefix is the prefix for episode-specific channels
	EventChannelEpisodePrefix = "episode:"
)

// GetEpisodeChannel returns the channel name for a specific episode
func GetEpisodeChannel(episodeID string) string {
	return EventChannelEpisodePrefix + episodeID
}
