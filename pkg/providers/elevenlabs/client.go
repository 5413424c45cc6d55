package elevenlabs

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

// DefaultBaseURL is the ElevenLabs API endpoint.
const DefaultBaseURL = "https://api.elevenlabs.io"

// DefaultVoiceID is used when a request names no voice.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// Client is the ElevenLabs provider adapter.
// It implements the providers.Client interface for speech synthesis
// and transcription.
type Client struct {
	*providers.HTTPClient
	providers.Unimplemented
}

// elevenSpeechRequest represents a text-to-speech request.
type elevenSpeechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// elevenTranscription represents a speech-to-text response.
type elevenTranscription struct {
	Text  string `json:"text"`
	Words []struct {
		End float64 `json:"end"`
	} `json:"words,omitempty"`
}

// elevenModel represents one entry of GET /v1/models.
type elevenModel struct {
	ModelID string `json:"model_id"`
}

// NewClient creates a new ElevenLabs adapter.
func NewClient(config providers.ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "elevenlabs",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Credential.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for ElevenLabs",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Type == "" {
		config.Type = "elevenlabs"
	}

	c := &Client{
		HTTPClient:    providers.NewHTTPClient(config),
		Unimplemented: providers.Unimplemented{Provider: config.Name},
	}

	slog.Info("ElevenLabs provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)
	return c, nil
}

// headers returns the authentication headers for every call.
func (c *Client) headers() map[string]string {
	return map[string]string{
		"xi-api-key": c.Config().Credential.APIKey,
	}
}

// TTS synthesizes speech from the request prompt.
func (c *Client) TTS(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	if err := providers.ValidateRequest(req); err != nil {
		return nil, err
	}

	voice := req.Voice
	if voice == "" {
		voice = DefaultVoiceID
	}

	body, err := json.Marshal(&elevenSpeechRequest{
		Text:    req.Prompt,
		ModelID: req.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.Config().BaseURL, voice)
	if req.AudioFormat != "" {
		url += "?output_format=" + req.AudioFormat
	}

	audio, err := c.DoRaw(ctx, "POST", url, body, c.headers())
	if err != nil {
		return nil, err
	}

	format := req.AudioFormat
	if format == "" {
		format = "mp3_44100_128"
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
	if err := writer.WriteField("model_id", req.Model); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	headers := c.headers()
	headers["Content-Type"] = writer.FormDataContentType()

	url := fmt.Sprintf("%s/v1/speech-to-text", c.Config().BaseURL)
	raw, err := c.DoRaw(ctx, "POST", url, buf.Bytes(), headers)
	if err != nil {
		return nil, err
	}

	var transcription elevenTranscription
	if err := json.Unmarshal(raw, &transcription); err != nil {
		return nil, &providers.ParseError{
			Provider:    c.GetName(),
			RawResponse: string(raw),
			Cause:       fmt.Errorf("failed to unmarshal transcription: %w", err),
		}
	}

	resp := &providers.Response{
		Kind:     providers.KindSTT,
		Model:    req.Model,
		Provider: c.GetName(),
		Text:     transcription.Text,
		Created:  time.Now().Unix(),
	}
	// Duration is not reported directly; the last word's end offset is
	// the closest proxy.
	if n := len(transcription.Words); n > 0 {
		resp.Usage.AudioSeconds = transcription.Words[n-1].End
	}
	return resp, nil
}

// ListModels returns the model ids the provider exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v1/models", c.Config().BaseURL)
	var list []elevenModel
	if err := c.DoJSON(ctx, "GET", url, nil, &list, c.headers()); err != nil {
		return nil, err
	}

	models := make([]string, len(list))
	for i, m := range list {
		models[i] = m.ModelID
	}
	return models, nil
}

// VerifyAuth probes GET /v1/user to check the configured credential.
func (c *Client) VerifyAuth(ctx context.Context) (*providers.AuthCheck, error) {
	check := &providers.AuthCheck{CheckedAt: time.Now()}

	url := fmt.Sprintf("%s/v1/user", c.Config().BaseURL)
	if err := c.DoJSON(ctx, "GET", url, nil, nil, c.headers()); err != nil {
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
		providers.CapTextToSpeech,
		providers.CapTranscription,
	}
}
