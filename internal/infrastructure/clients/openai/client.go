package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iic3964/leyurgencia/backend/internal/domain/providers"
	"github.com/iic3964/leyurgencia/backend/internal/infrastructure/observability"
	"github.com/iic3964/leyurgencia/backend/pkg/config"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	defaultTemperature = 0.2
)

// Client implements providers.CompletionProvider with the OpenAI Responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.AIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", providers.ErrCompletionUnavailable)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPM >= 0 {
		rpm, burst := cfg.RateLimitRPM, cfg.RateLimitBurst
		if rpm == 0 {
			rpm = 60
		}
		if burst <= 0 {
			burst = 5
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return providerName
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends one request to /responses and returns the first output text.
func (c *Client) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			observability.RecordCompletionRequest(ctx, providerName, c.model, 0, 0, err)
			return nil, err
		}
		observability.RecordCompletionRateLimitWait(ctx, providerName, c.model, time.Since(waitStart))
	}

	input := make([]map[string]string, 0, 2)
	if req.System != "" {
		input = append(input, map[string]string{"role": "system", "content": req.System})
	}
	input = append(input, map[string]string{"role": "user", "content": req.User})

	payload := map[string]interface{}{
		"model":             c.model,
		"input":             input,
		"temperature":       req.TemperatureOr(defaultTemperature),
		"max_output_tokens": 1500,
	}
	if req.ResponseFormat == providers.ResponseFormatJSON {
		payload["text"] = map[string]interface{}{
			"format": map[string]string{"type": "json_object"},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		observability.RecordCompletionRequest(ctx, providerName, c.model, 0, time.Since(start), err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, providers.ClassifyCompletionError(providerName, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		ce := providers.ClassifyCompletionError(providerName, resp.StatusCode, msg, nil)
		observability.RecordCompletionRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), ce)
		return nil, ce
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observability.RecordCompletionRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		err := errors.New("openai response missing output text")
		observability.RecordCompletionRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	observability.RecordCompletionRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), nil)
	return &providers.CompletionResponse{
		Text:     text,
		Provider: providerName,
		Model:    c.model,
	}, nil
}
