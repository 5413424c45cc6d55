package providers

import (
	"fmt"
	"strings"
	"time"
)

// ProviderError represents a general provider error.
// It includes the provider name, HTTP status code, and underlying error.
type ProviderError struct {
	// Provider is the name of the provider that returned the error.
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable).
	StatusCode int

	// Message is the error message.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code carried by the error.
func (e *ProviderError) HTTPStatus() int { return e.StatusCode }

// AuthError represents an authentication failure (HTTP 401).
type AuthError struct {
	// Provider is the name of the provider that rejected authentication.
	Provider string

	// Message is the error message from the provider.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// HTTPStatus returns 401.
func (e *AuthError) HTTPStatus() int { return 401 }

// ForbiddenError represents an authorization failure (HTTP 403).
type ForbiddenError struct {
	// Provider is the name of the provider that denied access.
	Provider string

	// Message is the error message from the provider.
	Message string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("provider %q access forbidden: %s", e.Provider, e.Message)
}

// HTTPStatus returns 403.
func (e *ForbiddenError) HTTPStatus() int { return 403 }

// QuotaError represents an exhausted balance or quota (HTTP 402).
type QuotaError struct {
	// Provider is the name of the provider reporting the exhausted quota.
	Provider string

	// Message is the error message from the provider.
	Message string
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("provider %q insufficient balance: %s", e.Provider, e.Message)
}

// HTTPStatus returns 402.
func (e *QuotaError) HTTPStatus() int { return 402 }

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the provider.
type RateLimitError struct {
	// Provider is the name of the provider that rate limited the request.
	Provider string

	// RetryAfter is the duration to wait before retrying (if provided).
	RetryAfter time.Duration

	// Message is the error message from the provider.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// HTTPStatus returns 429.
func (e *RateLimitError) HTTPStatus() int { return 429 }

// TimeoutError represents a request timeout (HTTP 408/504 or deadline).
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred.
	Provider string

	// Timeout is the configured timeout duration.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// HTTPStatus returns 408.
func (e *TimeoutError) HTTPStatus() int { return 408 }

// UnavailableError represents a provider-side failure (HTTP 5xx).
type UnavailableError struct {
	// Provider is the name of the unavailable provider.
	Provider string

	// StatusCode is the upstream HTTP status (500, 502, 503).
	StatusCode int

	// Reason describes why the provider is unavailable.
	Reason string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %q unavailable (status %d): %s", e.Provider, e.StatusCode, e.Reason)
}

// HTTPStatus returns the upstream status code.
func (e *UnavailableError) HTTPStatus() int { return e.StatusCode }

// ModelNotFoundError represents an unknown model error (HTTP 404).
type ModelNotFoundError struct {
	// Provider is the name of the provider.
	Provider string

	// Model is the requested model identifier.
	Model string
}

// Error implements the error interface.
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

// HTTPStatus returns 404.
func (e *ModelNotFoundError) HTTPStatus() int { return 404 }

// InvalidRequestError represents a request the provider rejected (HTTP 400)
// or that failed local validation before dispatch. Never retried.
type InvalidRequestError struct {
	// Provider is the provider name ("" for local validation).
	Provider string

	// Field is the invalid field, when known.
	Field string

	// Message describes what is invalid.
	Message string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// HTTPStatus returns 400.
func (e *InvalidRequestError) HTTPStatus() int { return 400 }

// UnsupportedError is returned when the resolved provider does not offer
// the requested capability. Fails fast and is never retried.
type UnsupportedError struct {
	// Provider is the provider name.
	Provider string

	// Capability is the missing capability.
	Capability Capability
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("provider %q does not support capability %q", e.Provider, e.Capability)
}

// ValidationError represents a usage or request validation failure with a
// list of individual messages. Fatal to the operation it guards.
type ValidationError struct {
	// Field is the name of the invalid field (optional).
	Field string

	// Messages lists every validation failure found.
	Messages []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %q: %s", e.Field, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages, "; "))
}

// ParseError represents a malformed provider response.
// Retried once by the resilience layer, then surfaced.
type ParseError struct {
	// Provider is the name of the provider that returned the malformed response.
	Provider string

	// RawResponse is the raw response body that failed to parse.
	RawResponse string

	// Cause is the underlying parse error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// StreamError represents an error that occurred during streaming.
// It is delivered through the stream channel in the final chunk.
type StreamError struct {
	// Provider is the name of the provider where the error occurred.
	Provider string

	// Message is the error message.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ConfigError represents a gateway configuration error: missing credential,
// missing model cost info, or an invalid provider for a credential.
// Fatal to the call.
type ConfigError struct {
	// Provider is the provider with invalid configuration.
	Provider string

	// Field is the configuration field that is invalid.
	Field string

	// Message describes the configuration error.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}
