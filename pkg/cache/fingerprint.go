package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/polygate/polygate/pkg/providers"
)

// Fingerprint computes the stable cache key for a request. The key
// covers every field that can change the response: model alias, the
// ordered messages and inputs, generation parameters, tool schemas,
// and extension fields. Map-valued fields serialize with sorted keys,
// so the same request always produces the same fingerprint.
func Fingerprint(req *providers.Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("fingerprint: nil request")
	}

	canonical := map[string]interface{}{
		"kind":  string(req.Kind),
		"model": req.Model,
	}
	if len(req.Messages) > 0 {
		canonical["messages"] = req.Messages
	}
	if len(req.Input) > 0 {
		canonical["input"] = req.Input
	}
	if req.Prompt != "" {
		canonical["prompt"] = req.Prompt
	}
	if req.Temperature != 0 {
		canonical["temperature"] = req.Temperature
	}
	if req.MaxTokens != 0 {
		canonical["max_tokens"] = req.MaxTokens
	}
	if req.TopP != 0 {
		canonical["top_p"] = req.TopP
	}
	if req.N != 0 {
		canonical["n"] = req.N
	}
	if req.Size != "" {
		canonical["size"] = req.Size
	}
	if req.Quality != "" {
		canonical["quality"] = req.Quality
	}
	if req.Voice != "" {
		canonical["voice"] = req.Voice
	}
	if req.AudioFormat != "" {
		canonical["audio_format"] = req.AudioFormat
	}
	if len(req.Tools) > 0 {
		canonical["tools"] = req.Tools
	}
	if req.ToolChoice != nil {
		canonical["tool_choice"] = req.ToolChoice
	}
	if len(req.Stop) > 0 {
		canonical["stop"] = req.Stop
	}
	if len(req.Extensions) > 0 {
		canonical["extensions"] = req.Extensions
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
