package gemini

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
	providerName       = "gemini"
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = 0.2
	maxErrorBody       = 4096
)

// Client implements providers.CompletionProvider against the Gemini REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Gemini client.
func NewClient(cfg *config.AIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", providers.ErrCompletionUnavailable)
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
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// newLimiter returns nil (unlimited) for a negative rpm.
func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm < 0 {
		return nil
	}
	if rpm == 0 {
		rpm = 60
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// Name returns the provider name
func (c *Client) Name() string {
	return providerName
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends one generateContent request and returns the candidate text.
func (c *Client) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			observability.RecordCompletionRequest(ctx, providerName, c.model, 0, 0, err)
			return nil, err
		}
		observability.RecordCompletionRateLimitWait(ctx, providerName, c.model, time.Since(waitStart))
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.User}}}},
		GenerationConfig: generationConfig{
			Temperature: req.TemperatureOr(defaultTemperature),
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.ResponseFormat == providers.ResponseFormatJSON {
		payload.GenerationConfig.ResponseMIMEType = "application/json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

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
		msg := readErrorMessage(resp.Body)
		ce := providers.ClassifyCompletionError(providerName, resp.StatusCode, msg, nil)
		observability.RecordCompletionRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), ce)
		return nil, ce
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		observability.RecordCompletionRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	text := candidateText(decoded)
	if text == "" {
		err := errors.New("gemini response missing candidate text")
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			err = fmt.Errorf("gemini blocked the prompt: %s", decoded.PromptFeedback.BlockReason)
		}
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

func candidateText(resp generateResponse) string {
	for _, candidate := range resp.Candidates {
		var sb strings.Builder
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Status != "" {
			return envelope.Error.Status + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
