package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type completionInstruments struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	completionOnce    sync.Once
	completionMetrics *completionInstruments
)

func ensureCompletionMetrics() *completionInstruments {
	completionOnce.Do(func() {
		meter := otel.Meter(instrumentationName + "/ai")

		requestCount, err := meter.Int64Counter(
			"ai.completion.request.count",
			metric.WithDescription("Number of LLM completion requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.completion.request.duration",
			metric.WithDescription("LLM completion request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.completion.request.errors",
			metric.WithDescription("Number of failed LLM completion requests"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.completion.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the client-side rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		completionMetrics = &completionInstruments{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
	})
	return completionMetrics
}

// RecordCompletionRequest records one LLM HTTP round-trip
func RecordCompletionRequest(ctx context.Context, provider, model string, statusCode int, duration time.Duration, err error) {
	m := ensureCompletionMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordCompletionRateLimitWait records time blocked on the client rate limiter
func RecordCompletionRateLimitWait(ctx context.Context, provider, model string, wait time.Duration) {
	m := ensureCompletionMetrics()
	if m == nil {
		return
	}
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	))
}
