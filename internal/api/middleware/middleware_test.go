package middleware_test

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iic3964/leyurgencia/backend/internal/api/middleware"
	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	return nil
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"count":1}`))
	})
}

func TestCacheMiddleware(t *testing.T) {
	t.Run("second request is served from cache", func(t *testing.T) {
		cache := newMemoryCache()
		calls := 0
		handler := middleware.NewCacheMiddleware(cache, middleware.DefaultCacheRoutes, nil).
			Middleware(countingHandler(&calls, http.StatusOK))

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/doctors/residents", nil))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/doctors/residents", nil))

		assert.Equal(t, 1, calls)
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
		assert.Equal(t, `{"count":1}`, second.Body.String())
		for _, ttl := range cache.ttls {
			assert.Equal(t, 300, ttl)
		}
	})

	t.Run("episode listings are not cached", func(t *testing.T) {
		cache := newMemoryCache()
		calls := 0
		handler := middleware.NewCacheMiddleware(cache, middleware.DefaultCacheRoutes, nil).
			Middleware(countingHandler(&calls, http.StatusOK))

		for i := 0; i < 2; i++ {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/clinical-attentions", nil))
		}

		assert.Equal(t, 2, calls)
		assert.Empty(t, cache.data)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		cache := newMemoryCache()
		calls := 0
		handler := middleware.NewCacheMiddleware(cache, middleware.DefaultCacheRoutes, nil).
			Middleware(countingHandler(&calls, http.StatusInternalServerError))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))

		assert.Empty(t, cache.data)
	})
}

func TestCompression(t *testing.T) {
	body := `{"results":[]}`
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	handler := middleware.Compression(next)

	t.Run("gzips JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		reader, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))
	})

	t.Run("leaves event streams alone", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/clinical-attentions/events", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("Accept", "text/event-stream")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, body, w.Body.String())
	})
}

func TestLoggingMiddleware_KeepsFlusher(t *testing.T) {
	var flushable bool
	handler := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clinical-attentions/events", nil))

	assert.True(t, flushable)
	assert.Equal(t, http.StatusTeapot, w.Code)
}
