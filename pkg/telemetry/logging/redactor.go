package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Secret-bearing attribute keys that are always masked.
var secretKeys = map[string]bool{
	"api_key":    true,
	"apikey":     true,
	"secret_key": true,
	"secret":     true,
	"password":   true,
	"token":      true,
}

// Value patterns masked regardless of the attribute key.
var secretPatterns = []*regexp.Regexp{
	// OpenAI / Anthropic / Cohere style keys
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]+`),
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]+`),
	// AWS access key ids
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
}

const mask = "***"

// RedactAttr is a slog ReplaceAttr function that masks credential
// material before it reaches the handler.
func RedactAttr(groups []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, mask)
	}
	if a.Value.Kind() == slog.KindString {
		if redacted := RedactString(a.Value.String()); redacted != a.Value.String() {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// RedactString masks secret-shaped substrings in a value.
func RedactString(s string) string {
	for _, pattern := range secretPatterns {
		s = pattern.ReplaceAllString(s, mask)
	}
	return s
}
