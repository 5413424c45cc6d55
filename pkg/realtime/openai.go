package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenAI realtime protocol constants.
const (
	openaiRealtimeURL         = "wss://api.openai.com/v1/realtime"
	openaiRealtimeSubprotocol = "openai-beta.realtime-v1"
)

// Whitelists for OpenAI realtime session validation.
var (
	openaiRealtimeVoices = map[string]bool{
		"alloy": true, "ash": true, "ballad": true, "coral": true,
		"echo": true, "sage": true, "shimmer": true, "verse": true,
	}
	openaiRealtimeFormats = map[string]bool{
		"pcm16": true, "g711_ulaw": true, "g711_alaw": true,
	}
)

// OpenAITranslator maps canonical session frames to the OpenAI
// realtime wire protocol.
type OpenAITranslator struct{}

// Provider implements Translator.
func (t *OpenAITranslator) Provider() string { return "openai" }

// Validate implements Translator.
func (t *OpenAITranslator) Validate(cfg SessionConfig) ValidationResult {
	var result ValidationResult

	if cfg.Model == "" {
		result.Errors = append(result.Errors, "model is required")
	} else if !strings.Contains(cfg.Model, "realtime") {
		result.Errors = append(result.Errors, fmt.Sprintf("model %q is not a realtime model", cfg.Model))
	}
	if cfg.APIKey == "" {
		result.Errors = append(result.Errors, "api key is required")
	}
	if cfg.Voice != "" && !openaiRealtimeVoices[cfg.Voice] {
		result.Errors = append(result.Errors, fmt.Sprintf("voice %q is not supported", cfg.Voice))
	}
	if cfg.InputAudioFormat != "" && !openaiRealtimeFormats[cfg.InputAudioFormat] {
		result.Errors = append(result.Errors, fmt.Sprintf("input audio format %q is not supported", cfg.InputAudioFormat))
	}
	if cfg.OutputAudioFormat != "" && !openaiRealtimeFormats[cfg.OutputAudioFormat] {
		result.Errors = append(result.Errors, fmt.Sprintf("output audio format %q is not supported", cfg.OutputAudioFormat))
	}
	if cfg.Temperature != 0 && (cfg.Temperature < 0.6 || cfg.Temperature > 1.2) {
		result.Warnings = append(result.Warnings, "temperature outside 0.6..1.2 may be clamped upstream")
	}
	return result
}

// Target implements Translator.
func (t *OpenAITranslator) Target(cfg SessionConfig) DialTarget {
	base := cfg.BaseURL
	if base == "" {
		base = openaiRealtimeURL
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	return DialTarget{
		URL:          base + "?model=" + cfg.Model,
		Header:       header,
		Subprotocols: []string{openaiRealtimeSubprotocol},
	}
}

// InitMessages implements Translator: a single session.update carrying
// the session configuration.
func (t *OpenAITranslator) InitMessages(cfg SessionConfig) ([][]byte, error) {
	session := map[string]interface{}{}
	if cfg.Voice != "" {
		session["voice"] = cfg.Voice
	}
	if cfg.Instructions != "" {
		session["instructions"] = cfg.Instructions
	}
	if cfg.InputAudioFormat != "" {
		session["input_audio_format"] = cfg.InputAudioFormat
	}
	if cfg.OutputAudioFormat != "" {
		session["output_audio_format"] = cfg.OutputAudioFormat
	}
	if cfg.Temperature != 0 {
		session["temperature"] = cfg.Temperature
	}
	if len(session) == 0 {
		return nil, nil
	}

	msg, err := json.Marshal(map[string]interface{}{
		"type":    "session.update",
		"session": session,
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{msg}, nil
}

// EncodeFrame implements Translator.
func (t *OpenAITranslator) EncodeFrame(f Frame) ([]byte, error) {
	switch frame := f.(type) {
	case AudioAppend:
		return json.Marshal(map[string]interface{}{
			"type":  "input_audio_buffer.append",
			"audio": base64.StdEncoding.EncodeToString(frame.Audio),
		})

	case TextInput:
		return json.Marshal(map[string]interface{}{
			"type": "conversation.item.create",
			"item": map[string]interface{}{
				"type": "message",
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "input_text", "text": frame.Text},
				},
			},
		})

	case FunctionResponse:
		return json.Marshal(map[string]interface{}{
			"type": "conversation.item.create",
			"item": map[string]interface{}{
				"type":    "function_call_output",
				"call_id": frame.CallID,
				"output":  frame.Output,
			},
		})

	case ResponseRequest:
		response := map[string]interface{}{}
		if frame.Instructions != "" {
			response["instructions"] = frame.Instructions
		}
		if frame.Temperature != 0 {
			response["temperature"] = frame.Temperature
		}
		return json.Marshal(map[string]interface{}{
			"type":     "response.create",
			"response": response,
		})

	case SessionUpdate:
		return json.Marshal(map[string]interface{}{
			"type":    "session.update",
			"session": frame.Patch,
		})

	default:
		return nil, fmt.Errorf("openai realtime: unsupported frame %T", f)
	}
}

// openaiWireEvent is the envelope of every OpenAI realtime server
// message.
type openaiWireEvent struct {
	Type    string `json:"type"`
	Delta   string `json:"delta"`
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	ItemID  string `json:"item_id"`
	Audio   string `json:"audio"`
	Message string `json:"message"`
	Error   *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeEvent implements Translator.
func (t *OpenAITranslator) DecodeEvent(data []byte) (Event, error) {
	var wire openaiWireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("openai realtime: malformed event: %w", err)
	}

	switch wire.Type {
	case "response.audio.delta":
		audio, err := base64.StdEncoding.DecodeString(wire.Delta)
		if err != nil {
			return nil, fmt.Errorf("openai realtime: bad audio delta: %w", err)
		}
		return AudioDelta{Audio: audio}, nil

	case "response.audio.done":
		return AudioDelta{IsFinal: true}, nil

	case "response.text.delta", "response.audio_transcript.delta":
		return TextDelta{Text: wire.Delta}, nil

	case "response.function_call_arguments.delta":
		return FunctionCallDelta{CallID: wire.CallID, Name: wire.Name, ArgsDelta: wire.Delta}, nil

	case "response.function_call_arguments.done":
		return FunctionCallDelta{CallID: wire.CallID, Name: wire.Name, IsFinal: true}, nil

	case "error":
		event := ErrorEvent{Code: "unknown", Message: wire.Message, Severity: "error"}
		if wire.Error != nil {
			event.Code = wire.Error.Code
			event.Message = wire.Error.Message
			event.Terminal = wire.Error.Type == "invalid_request_error"
		}
		return event, nil

	case "session.created", "session.updated", "response.created", "response.done",
		"input_audio_buffer.speech_started", "input_audio_buffer.speech_stopped",
		"input_audio_buffer.committed":
		return Status{Kind: wire.Type}, nil

	default:
		// Unmapped event types are skipped, not errors.
		return nil, nil
	}
}
