package sagemaker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/polygate/polygate/pkg/providers"
)

// signingService is the SigV4 service name for both the runtime and
// control plane.
const signingService = "sagemaker"

// userAgent identifies the gateway on signed requests. Set before
// signing so the header participates in the signature.
const userAgent = "polygate"

// Client is the SageMaker provider adapter.
// It implements the providers.Client interface for real-time inference
// endpoints, where the request model names the endpoint.
type Client struct {
	providers.Unimplemented

	config     providers.ClientConfig
	httpClient *http.Client
	signer     *v4.Signer
	creds      aws.Credentials

	runtimeURL string
	controlURL string
}

// tgiRequest is the text-generation-inference invocation payload.
type tgiRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters tgiParameters `json:"parameters"`
}

// tgiParameters tunes a text-generation-inference call.
type tgiParameters struct {
	Temperature  float64  `json:"temperature,omitempty"`
	TopP         float64  `json:"top_p,omitempty"`
	MaxNewTokens int      `json:"max_new_tokens,omitempty"`
	Stop         []string `json:"stop,omitempty"`
}

// tgiResponse is one generation in a text-generation-inference response.
type tgiResponse struct {
	GeneratedText string `json:"generated_text"`
}

// listEndpointsResponse is the control-plane ListEndpoints response.
type listEndpointsResponse struct {
	Endpoints []struct {
		EndpointName   string `json:"EndpointName"`
		EndpointStatus string `json:"EndpointStatus"`
	} `json:"Endpoints"`
}

// NewClient creates a new SageMaker adapter. The credential's APIKey
// and SecretKey carry the AWS access key pair, and Region selects the
// endpoint region.
func NewClient(config providers.ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "sagemaker",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" || config.Credential.SecretKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "credential",
			Message:  "AWS access key id and secret key are required for SageMaker",
		}
	}
	if config.Credential.Region == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "region",
			Message:  "AWS region is required for SageMaker",
		}
	}
	if config.Type == "" {
		config.Type = "sagemaker"
	}

	region := config.Credential.Region
	runtimeURL := fmt.Sprintf("https://runtime.sagemaker.%s.amazonaws.com", region)
	controlURL := fmt.Sprintf("https://api.sagemaker.%s.amazonaws.com", region)
	// A base URL override points both planes at one host (tests, proxies).
	if config.BaseURL != "" {
		runtimeURL = config.BaseURL
		controlURL = config.BaseURL
	}

	c := &Client{
		Unimplemented: providers.Unimplemented{Provider: config.Name},
		config:        config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: config.Timeout,
		},
		signer: v4.NewSigner(),
		creds: aws.Credentials{
			AccessKeyID:     config.Credential.APIKey,
			SecretAccessKey: config.Credential.SecretKey,
		},
		runtimeURL: runtimeURL,
		controlURL: controlURL,
	}

	slog.Info("SageMaker provider initialized",
		"provider", config.Name,
		"region", region,
	)
	return c, nil
}

// do signs and sends one request, mapping non-2xx statuses to the
// canonical error taxonomy.
func (c *Client) do(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	payloadHash := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, c.creds, req,
		hex.EncodeToString(payloadHash[:]), signingService, c.config.Credential.Region, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	slog.Debug("sending request to provider",
		"provider", c.config.Name,
		"url", url,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &providers.TimeoutError{Provider: c.config.Name, Timeout: c.config.Timeout}
		}
		return nil, fmt.Errorf("provider %q request failed: %w", c.config.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &providers.ParseError{
			Provider: c.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, c.statusError(resp.StatusCode, string(data))
}

// statusError maps an AWS response status to a typed error.
func (c *Client) statusError(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &providers.AuthError{Provider: c.config.Name, Message: body}
	case status == http.StatusNotFound:
		return &providers.ModelNotFoundError{Provider: c.config.Name, Model: body}
	case status == http.StatusTooManyRequests:
		return &providers.RateLimitError{Provider: c.config.Name, Message: body}
	case status == http.StatusBadRequest:
		return &providers.InvalidRequestError{Provider: c.config.Name, Message: body}
	case status >= 500:
		return &providers.UnavailableError{Provider: c.config.Name, StatusCode: status, Reason: body}
	default:
		return &providers.ProviderError{Provider: c.config.Name, StatusCode: status, Message: body}
	}
}

// invoke posts a payload to the model's invocations URL.
func (c *Client) invoke(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/endpoints/%s/invocations", c.runtimeURL, endpoint)
	return c.do(ctx, url, body, nil)
}

// Chat sends a chat request to the endpoint. Messages are flattened
// into a single prompt in the text-generation-inference convention.
func (c *Client) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	prompt := flattenMessages(req.Messages)
	body, err := json.Marshal(&tgiRequest{
		Inputs: prompt,
		Parameters: tgiParameters{
			Temperature:  req.Temperature,
			TopP:         req.TopP,
			MaxNewTokens: req.MaxTokens,
			Stop:         req.Stop,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.invoke(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}

	text, err := parseGeneratedText(raw)
	if err != nil {
		return nil, &providers.ParseError{
			Provider:    c.config.Name,
			RawResponse: string(raw),
			Cause:       err,
		}
	}

	promptTokens := providers.EstimateTokens(prompt)
	doneTokens := providers.EstimateTokens(text)
	return &providers.Response{
		Kind:         providers.KindChat,
		Model:        req.Model,
		Provider:     c.config.Name,
		Content:      text,
		FinishReason: providers.FinishReasonStop,
		Created:      time.Now().Unix(),
		Usage: providers.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: doneTokens,
			TotalTokens:      promptTokens + doneTokens,
			Estimated:        true,
		},
	}, nil
}

// Embedding computes embedding vectors via a text-embeddings-inference
// style endpoint.
func (c *Client) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]interface{}{"inputs": req.Input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.invoke(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}

	var vectors [][]float64
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, &providers.ParseError{
			Provider:    c.config.Name,
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal embeddings: %w", err),
		}
	}

	var promptTokens int
	for _, text := range req.Input {
		promptTokens += providers.EstimateTokens(text)
	}
	return &providers.Response{
		Kind:       providers.KindEmbedding,
		Model:      req.Model,
		Provider:   c.config.Name,
		Embeddings: vectors,
		Created:    time.Now().Unix(),
		Usage: providers.Usage{
			PromptTokens: promptTokens,
			TotalTokens:  promptTokens,
			Estimated:    true,
		},
	}, nil
}

// ListModels lists the in-service endpoints via the control plane.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	body := []byte(`{"StatusEquals":"InService"}`)
	headers := map[string]string{
		"Content-Type": "application/x-amz-json-1.1",
		"X-Amz-Target": "SageMaker.ListEndpoints",
	}

	raw, err := c.do(ctx, c.controlURL+"/", body, headers)
	if err != nil {
		return nil, err
	}

	var list listEndpointsResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &providers.ParseError{
			Provider:    c.config.Name,
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal endpoint list: %w", err),
		}
	}

	models := make([]string, len(list.Endpoints))
	for i, endpoint := range list.Endpoints {
		models[i] = endpoint.EndpointName
	}
	return models, nil
}

// VerifyAuth probes the control plane's ListEndpoints call to check the
// configured key pair.
func (c *Client) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	check := &providers.AuthCheck{CheckedAt: time.Now()}
	if _, err := c.ListModels(ctx); err != nil {
		kind, _ := providers.KindOf(err)
		check.Reason = string(kind)
		check.Detail = err.Error()
		return check, nil
	}
	check.OK = true
	return check, nil
}

// Capabilities returns the capability set this adapter offers.
func (c *Client) Capabilities() providers.CapabilitySet {
	return providers.CapabilitySet{
		providers.CapChat,
		providers.CapTextGeneration,
		providers.CapEmbeddings,
	}
}

// GetName returns the adapter's configured name.
func (c *Client) GetName() string { return c.config.Name }

// GetType returns the adapter's provider type.
func (c *Client) GetType() string { return c.config.Type }

// Close closes idle connections in the transport pool.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	slog.Debug("provider client closed", "provider", c.config.Name)
	return nil
}

// flattenMessages renders a conversation as a single prompt with role
// prefixes, ending with the assistant turn.
func flattenMessages(messages []providers.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case providers.RoleSystem:
			b.WriteString("System: ")
		case providers.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}

// parseGeneratedText accepts both the array and object forms of the
// text-generation-inference response.
func parseGeneratedText(raw []byte) (string, error) {
	var many []tgiResponse
	if err := json.Unmarshal(raw, &many); err == nil {
		if len(many) == 0 {
			return "", fmt.Errorf("response contains no generations")
		}
		return many[0].GeneratedText, nil
	}

	var one tgiResponse
	if err := json.Unmarshal(raw, &one); err != nil {
		return "", fmt.Errorf("failed to unmarshal generation: %w", err)
	}
	return one.GeneratedText, nil
}
