package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrCompletionUnavailable is returned when no completion provider can be built,
// typically because the API key is missing.
var ErrCompletionUnavailable = errors.New("completion provider unavailable")

// ResponseFormat hints the shape the model should answer with
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// CompletionRequest is a single system + user turn sent to an LLM
type CompletionRequest struct {
	System         string
	User           string
	ResponseFormat ResponseFormat
	// Temperature is nil to let the provider pick its default; 0 is sent as is.
	Temperature    *float64
}

// TemperatureOr returns the requested temperature, or def when none was set.
func (r CompletionRequest) TemperatureOr(def float64) float64 {
	if r.Temperature == nil {
		return def
	}
	return *r.Temperature
}

// CompletionResponse carries the raw model text
type CompletionResponse struct {
	Text     string
	Provider string
	Model    string
}

// CompletionProvider defines an LLM that answers a single completion request
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// CompletionErrorKind classifies provider failures for retry decisions
type CompletionErrorKind string

const (
	CompletionErrorUnavailable    CompletionErrorKind = "unavailable"
	CompletionErrorRateLimited    CompletionErrorKind = "rate_limited"
	CompletionErrorOverloaded     CompletionErrorKind = "overloaded"
	CompletionErrorInvalidRequest CompletionErrorKind = "invalid_request"
	CompletionErrorUnauthorized   CompletionErrorKind = "unauthorized"
	CompletionErrorUnknown        CompletionErrorKind = "unknown"
)

// CompletionError is a classified provider failure
type CompletionError struct {
	Provider   string
	Kind       CompletionErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s completion failed (%s, status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s completion failed (%s): %s", e.Provider, e.Kind, msg)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the same request may succeed
func (e *CompletionError) Transient() bool {
	switch e.Kind {
	case CompletionErrorUnavailable, CompletionErrorRateLimited, CompletionErrorOverloaded:
		return true
	}
	return false
}

// ClassifyCompletionError builds a CompletionError from an HTTP status and/or a
// transport error. Without a usable status the error text is scanned for the
// usual transience markers.
func ClassifyCompletionError(provider string, statusCode int, message string, err error) *CompletionError {
	ce := &CompletionError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		ce.Kind = CompletionErrorRateLimited
	case statusCode == http.StatusServiceUnavailable, statusCode == http.StatusBadGateway,
		statusCode == http.StatusGatewayTimeout:
		ce.Kind = CompletionErrorUnavailable
	case statusCode == http.StatusInternalServerError:
		ce.Kind = kindFromText(message, CompletionErrorUnavailable)
	case statusCode == 529:
		ce.Kind = CompletionErrorOverloaded
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		ce.Kind = CompletionErrorUnauthorized
	case statusCode >= 400 && statusCode < 500:
		ce.Kind = CompletionErrorInvalidRequest
	default:
		text := message
		if err != nil {
			text = transportText(err) + " " + message
		}
		ce.Kind = kindFromText(text, CompletionErrorUnknown)
	}
	return ce
}

// IsTransientCompletionError decides whether err is worth retrying. Classified
// errors answer for themselves; anything else falls back to marker matching.
func IsTransientCompletionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Transient()
	}
	return kindFromText(transportText(err), CompletionErrorUnknown) != CompletionErrorUnknown
}

func kindFromText(text string, fallback CompletionErrorKind) CompletionErrorKind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "overload"):
		return CompletionErrorOverloaded
	case strings.Contains(lower, "rate"):
		return CompletionErrorRateLimited
	case strings.Contains(lower, "503"), strings.Contains(lower, "unavailable"):
		return CompletionErrorUnavailable
	}
	return fallback
}

// transportText drops the request URL from *url.Error so that path segments
// such as ":generateContent" do not match the markers.
func transportText(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
