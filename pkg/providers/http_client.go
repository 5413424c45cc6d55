package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ClientConfig contains configuration for a single provider adapter.
type ClientConfig struct {
	// Name is the adapter identifier (e.g., "openai", "anthropic").
	Name string

	// Type is the provider type (openai, anthropic, cohere, ...).
	Type string

	// BaseURL is the API endpoint base URL. Adapters set their default
	// when empty and accept an override otherwise.
	BaseURL string

	// Credential is the resolved upstream credential.
	Credential Credential

	// Timeout is the per-request client timeout. Zero disables the
	// transport-level timeout; the resilience layer owns deadlines.
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains pooled.
	IdleConnTimeout time.Duration
}

// HTTPClient is the base implementation for HTTP-based provider adapters.
// It owns a pooled transport and maps upstream HTTP failures onto the
// canonical error taxonomy. Retry and deadline policy live in the
// resilience wrappers, not here; each call is a single attempt.
//
// Concrete adapters embed this struct and implement the Client methods
// they support.
type HTTPClient struct {
	// config contains the adapter configuration.
	config ClientConfig

	// client is the HTTP client with connection pooling.
	client *http.Client
}

// NewHTTPClient creates a new base HTTP client with connection pooling.
func NewHTTPClient(config ClientConfig) *HTTPClient {
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// GetName returns the adapter's configured name.
func (c *HTTPClient) GetName() string {
	return c.config.Name
}

// GetType returns the adapter's provider type.
func (c *HTTPClient) GetType() string {
	return c.config.Type
}

// Config returns the adapter configuration.
func (c *HTTPClient) Config() ClientConfig {
	return c.config
}

// Do performs a single HTTP request attempt and maps non-2xx statuses to
// the canonical error taxonomy. The caller owns the response body on
// success.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("sending request to provider",
		"provider", c.config.Name,
		"method", method,
		"url", url,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		// A caller-cancelled request is not a provider timeout; it must
		// not classify as retryable or reach the error tracker.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{
				Provider: c.config.Name,
				Timeout:  c.config.Timeout,
			}
		}
		return nil, fmt.Errorf("provider %q request failed: %w", c.config.Name, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	return nil, c.statusError(resp, string(errorBody))
}

// statusError maps a non-2xx upstream response to a typed error.
func (c *HTTPClient) statusError(resp *http.Response, body string) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &AuthError{Provider: c.config.Name, Message: body}
	case http.StatusPaymentRequired:
		return &QuotaError{Provider: c.config.Name, Message: body}
	case http.StatusForbidden:
		return &ForbiddenError{Provider: c.config.Name, Message: body}
	case http.StatusNotFound:
		return &ModelNotFoundError{Provider: c.config.Name, Model: body}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &TimeoutError{Provider: c.config.Name, Timeout: c.config.Timeout}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   c.config.Name,
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    body,
		}
	case http.StatusBadRequest:
		return &InvalidRequestError{Provider: c.config.Name, Message: body}
	default:
		if resp.StatusCode >= 500 {
			return &UnavailableError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Reason:     body,
			}
		}
		return &ProviderError{
			Provider:   c.config.Name,
			StatusCode: resp.StatusCode,
			Message:    body,
		}
	}
}

// DoJSON performs a JSON request and decodes the response.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: c.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    c.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// DoRaw performs a request and returns the raw response body.
// Used for binary payloads (audio synthesis).
func (c *HTTPClient) DoRaw(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	resp, err := c.Do(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ParseError{
			Provider: c.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}
	return data, nil
}

// Close closes idle connections in the transport pool.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	slog.Debug("provider client closed", "provider", c.config.Name)
	return nil
}

// ParseRetryAfter parses a Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}

// Unimplemented provides default Client methods that fail with the
// canonical Unsupported error. Adapters embed it so they only implement
// the capabilities their provider offers.
type Unimplemented struct {
	// Provider is the adapter name reported in errors.
	Provider string
}

// Chat fails with Unsupported.
func (u Unimplemented) Chat(ctx context.Context, req *Request) (*Response, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapChat}
}

// StreamChat fails with Unsupported.
func (u Unimplemented) StreamChat(ctx context.Context, req *Request) (<-chan *StreamChunk, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapChat}
}

// Embedding fails with Unsupported.
func (u Unimplemented) Embedding(ctx context.Context, req *Request) (*Response, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapEmbeddings}
}

// Image fails with Unsupported.
func (u Unimplemented) Image(ctx context.Context, req *Request) (*Response, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapImageGeneration}
}

// Video fails with Unsupported.
func (u Unimplemented) Video(ctx context.Context, req *Request) (*Response, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapVideoGeneration}
}

// TTS fails with Unsupported.
func (u Unimplemented) TTS(ctx context.Context, req *Request) (*Response, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapTextToSpeech}
}

// STT fails with Unsupported.
func (u Unimplemented) STT(ctx context.Context, req *Request) (*Response, error) {
	return nil, &UnsupportedError{Provider: u.Provider, Capability: CapTranscription}
}
