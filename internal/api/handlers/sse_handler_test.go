package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iic3964/leyurgencia/backend/internal/api/handlers"
	"github.com/iic3964/leyurgencia/backend/internal/domain/entities"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
)

// MockEventBus is an in-memory event bus for handler tests
type MockEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *entities.EpisodeEvent
	published   []*entities.EpisodeEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.EpisodeEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.EpisodeEvent) error {
	m.mu.Lock()
	m.published = append(m.published, event)
	channels := append([]chan *entities.EpisodeEvent(nil), m.subscribers[channel]...)
	m.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.EpisodeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.EpisodeEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	subs := m.subscribers
	m.subscribers = make(map[string][]chan *entities.EpisodeEvent)
	m.mu.Unlock()
	for _, channels := range subs {
		for _, ch := range channels {
			close(ch)
		}
	}
	return nil
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[channel])
}

func streamUntilCancelled(t *testing.T, handler *handlers.SSEHandler, target string, during func()) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.StreamEpisodeEvents(w, req)
		close(done)
	}()

	during()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after cancel")
	}
	return w
}

func TestSSEHandler_StreamEpisodeEvents(t *testing.T) {
	t.Run("establishes the stream", func(t *testing.T) {
		eventBus := NewMockEventBus()
		handler := handlers.NewSSEHandler(eventBus)

		w := streamUntilCancelled(t, handler, "/api/v1/clinical-attentions/events", func() {
			require.Eventually(t, func() bool {
				return eventBus.SubscriberCount(providers.EventChannelEpisodeUpdates) == 1
			}, time.Second, 5*time.Millisecond)
		})

		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
		assert.Contains(t, w.Body.String(), "event: connected")
		assert.Equal(t, 0, handler.GetClientCount())
	})

	t.Run("forwards episode events", func(t *testing.T) {
		eventBus := NewMockEventBus()
		handler := handlers.NewSSEHandler(eventBus)
		channel := providers.GetEpisodeChannel("episode-1")

		w := streamUntilCancelled(t, handler, "/api/v1/clinical-attentions/events?episode_id=episode-1", func() {
			require.Eventually(t, func() bool {
				return eventBus.SubscriberCount(channel) == 1 && handler.GetClientCount() == 1
			}, time.Second, 5*time.Millisecond)

			event := entities.NewEpisodeEvent("episode-1", entities.EpisodeEventAIEvaluated, map[string]any{"ai_result": true})
			require.NoError(t, eventBus.Publish(context.Background(), channel, event))
			time.Sleep(50 * time.Millisecond)
		})

		body := w.Body.String()
		assert.Contains(t, body, "event: episode.ai_evaluated")
		assert.Contains(t, body, `"episode_id":"episode-1"`)
	})

	t.Run("sends heartbeats", func(t *testing.T) {
		eventBus := NewMockEventBus()
		handler := handlers.NewSSEHandler(eventBus)
		handler.SetHeartbeatInterval(10 * time.Millisecond)

		w := streamUntilCancelled(t, handler, "/api/v1/clinical-attentions/events", func() {
			time.Sleep(60 * time.Millisecond)
		})

		assert.Contains(t, w.Body.String(), "event: heartbeat")
	})

	t.Run("without an event bus", func(t *testing.T) {
		handler := handlers.NewSSEHandler(nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/clinical-attentions/events", nil)
		w := httptest.NewRecorder()

		handler.StreamEpisodeEvents(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
