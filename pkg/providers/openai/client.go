package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/polygate/polygate/pkg/providers"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

// Client is the OpenAI provider adapter.
// It implements the providers.Client interface against OpenAI's REST API.
type Client struct {
	*providers.HTTPClient

	// extra headers attached to every request. Used by OpenAI-compatible
	// wrappers that require attribution headers.
	extra map[string]string
}

// NewClient creates a new OpenAI adapter.
func NewClient(config providers.ClientConfig) (*Client, error) {
	return NewClientWithHeaders(config, nil)
}

// NewClientWithHeaders creates an adapter that attaches extra headers to
// every request.
func NewClientWithHeaders(config providers.ClientConfig, extra map[string]string) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenAI",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Type == "" {
		config.Type = "openai"
	}

	c := &Client{
		HTTPClient: providers.NewHTTPClient(config),
		extra:      extra,
	}

	slog.Info("OpenAI provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return c, nil
}

// headers returns the authorization headers for every call.
func (c *Client) headers() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.Config().Credential.APIKey,
	}
	for key, value := range c.extra {
		headers[key] = value
	}
	return headers
}

// Chat sends a non-streaming chat completion request.
func (c *Client) Chat(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.Config().BaseURL)
	var openaiResp OpenAIResponse
	if err := c.DoJSON(ctx, "POST", url, transformRequest(req), &openaiResp, c.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(req, &openaiResp)
	if err != nil {
		return nil, &providers.ParseError{Provider: c.GetName(), Cause: err}
	}
	resp.Provider = c.GetName()

	slog.Debug("chat request succeeded",
		"provider", c.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// StreamChat sends a streaming chat completion request.
func (c *Client) StreamChat(ctx context.Context, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	openaiReq := transformRequest(req)
	openaiReq.Stream = true
	openaiReq.StreamOptions = &OpenAIStreamOptions{IncludeUsage: true}

	url := fmt.Sprintf("%s/v1/chat/completions", c.Config().BaseURL)
	headers := c.headers()
	headers["Accept"] = "text/event-stream"

	stream, err := newStreamReader(ctx, c.HTTPClient, url, openaiReq, headers)
	if err != nil {
		return nil, err
	}

	ch := make(chan *providers.StreamChunk)
	go pump(ctx, c.GetName(), stream, ch)
	return ch, nil
}

// Embedding computes embedding vectors for the request inputs.
func (c *Client) Embedding(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.Config().BaseURL)
	openaiReq := &OpenAIEmbeddingRequest{
		Model: req.Model,
		Input: req.Input,
		User:  req.User,
	}

	var openaiResp OpenAIEmbeddingResponse
	if err := c.DoJSON(ctx, "POST", url, openaiReq, &openaiResp, c.headers()); err != nil {
		return nil, err
	}

	resp := &providers.Response{
		Kind:       providers.KindEmbedding,
		Model:      openaiResp.Model,
		Provider:   c.GetName(),
		Embeddings: make([][]float64, len(openaiResp.Data)),
		Usage:      transformUsage(openaiResp.Usage),
		Created:    time.Now().Unix(),
	}
	for _, item := range openaiResp.Data {
		if item.Index >= 0 && item.Index < len(resp.Embeddings) {
			resp.Embeddings[item.Index] = item.Embedding
		}
	}
	return resp, nil
}

// Image generates images from the request prompt.
func (c *Client) Image(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/images/generations", c.Config().BaseURL)
	openaiReq := &OpenAIImageRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		N:       req.N,
		Size:    req.Size,
		Quality: req.Quality,
		User:    req.User,
	}

	var openaiResp OpenAIImageResponse
	if err := c.DoJSON(ctx, "POST", url, openaiReq, &openaiResp, c.headers()); err != nil {
		return nil, err
	}

	resp := &providers.Response{
		Kind:     providers.KindImage,
		Model:    req.Model,
		Provider: c.GetName(),
		Images:   make([]providers.GeneratedImage, len(openaiResp.Data)),
		Created:  openaiResp.Created,
		Usage: providers.Usage{
			ImageCount:      len(openaiResp.Data),
			ImageQuality:    req.Quality,
			ImageResolution: req.Size,
		},
	}
	for i, img := range openaiResp.Data {
		resp.Images[i] = providers.GeneratedImage{
			URL:           img.URL,
			B64:           img.B64JSON,
			RevisedPrompt: img.RevisedPrompt,
		}
	}
	return resp, nil
}

// Video is not offered by this adapter.
func (c *Client) Video(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return nil, &providers.UnsupportedError{Provider: c.GetName(), Capability: providers.CapVideoGeneration}
}

// TTS synthesizes speech from the request prompt.
func (c *Client) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/audio/speech", c.Config().BaseURL)
	openaiReq := &OpenAISpeechRequest{
		Model:          req.Model,
		Input:          req.Prompt,
		Voice:          req.Voice,
		ResponseFormat: req.AudioFormat,
	}
	body, err := json.Marshal(openaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	audio, err := c.DoRaw(ctx, "POST", url, body, c.headers())
	if err != nil {
		return nil, err
	}

	format := req.AudioFormat
	if format == "" {
		format = "mp3"
	}
	return &providers.Response{
		Kind:        providers.KindTTS,
		Model:       req.Model,
		Provider:    c.GetName(),
		AudioData:   audio,
		AudioFormat: format,
		Created:     time.Now().Unix(),
		Usage: providers.Usage{
			AudioCharacters: len(req.Prompt),
		},
	}, nil
}

// STT transcribes the request audio payload.
func (c *Client) STT(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	format := req.AudioFormat
	if format == "" {
		format = "mp3"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.WriteField("model", req.Model); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	headers := c.headers()
	headers["Content-Type"] = writer.FormDataContentType()

	url := fmt.Sprintf("%s/v1/audio/transcriptions", c.Config().BaseURL)
	raw, err := c.DoRaw(ctx, "POST", url, buf.Bytes(), headers)
	if err != nil {
		return nil, err
	}

	var transcription OpenAITranscription
	if err := json.Unmarshal(raw, &transcription); err != nil {
		return nil, &providers.ParseError{
			Provider:    c.GetName(),
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal transcription: %w", err),
		}
	}

	return &providers.Response{
		Kind:     providers.KindSTT,
		Model:    req.Model,
		Provider: c.GetName(),
		Text:     transcription.Text,
		Created:  time.Now().Unix(),
		Usage: providers.Usage{
			AudioSeconds: transcription.Duration,
		},
	}, nil
}

// ListModels returns the model ids the provider exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v1/models", c.Config().BaseURL)
	var list OpenAIModelList
	if err := c.DoJSON(ctx, "GET", url, nil, &list, c.headers()); err != nil {
		return nil, err
	}

	models := make([]string, len(list.Data))
	for i, m := range list.Data {
		models[i] = m.ID
	}
	return models, nil
}

// VerifyAuth probes GET /v1/models to check the configured credential.
func (c *Client) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	check := &providers.AuthCheck{CheckedAt: time.Now()}
	if _, err := c.ListModels(ctx); err != nil {
		check.Reason, check.Detail = authFailure(err)
		return check, nil
	}
	check.OK = true
	return check, nil
}

// authFailure maps a probe error to a machine-readable reason.
func authFailure(err error) (reason, detail string) {
	kind, _ := providers.KindOf(err)
	return string(kind), err.Error()
}

// Capabilities returns the capability set this adapter offers.
func (c *Client) Capabilities() providers.CapabilitySet {
	return providers.CapabilitySet{
		providers.CapChat,
		providers.CapTextGeneration,
		providers.CapEmbeddings,
		providers.CapImageGeneration,
		providers.CapVision,
		providers.CapFunctionCalling,
		providers.CapToolUsage,
		providers.CapJSONMode,
		providers.CapTextToSpeech,
		providers.CapTranscription,
		providers.CapRealtime,
	}
}
