package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/polygate/polygate/pkg/providers"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(providers.ClientConfig{
		Name:       "elevenlabs",
		BaseURL:    server.URL,
		Credential: providers.Credential{APIKey: "xi-test"},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestTTSReturnsRawAudio(t *testing.T) {
	audio := []byte{0xFF, 0xF3, 0x01, 0x02}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/") {
			t.Errorf("path = %q, want /v1/text-to-speech/{voice}", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "xi-test" {
			t.Errorf("xi-api-key = %q", got)
		}
		w.Write(audio)
	}))

	resp, err := client.TTS(context.Background(), &providers.Request{
		Kind:   providers.KindTTS,
		Model:  "eleven_multilingual_v2",
		Prompt: "Hello world",
		Voice:  "21m00Tcm4TlvDq8ikWAM",
	})
	if err != nil {
		t.Fatalf("TTS() error = %v", err)
	}
	if !bytes.Equal(resp.AudioData, audio) {
		t.Error("audio payload not passed through")
	}
	if resp.Usage.AudioCharacters != len("Hello world") {
		t.Errorf("audio characters = %d, want prompt length", resp.Usage.AudioCharacters)
	}
}

func TestSTTParsesTranscription(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech-to-text" {
			t.Errorf("path = %q, want /v1/speech-to-text", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q, want multipart", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"text": "hello there", "words": [{"end": 0.4}, {"end": 1.2}]}`))
	}))

	resp, err := client.STT(context.Background(), &providers.Request{
		Kind:  providers.KindSTT,
		Model: "scribe_v1",
		Audio: []byte{0x01, 0x02},
	})
	if err != nil {
		t.Fatalf("STT() error = %v", err)
	}
	if resp.Text != "hello there" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Usage.AudioSeconds != 1.2 {
		t.Errorf("audio seconds = %v, want last word end offset", resp.Usage.AudioSeconds)
	}
}

func TestVerifyAuthProbesUserEndpoint(t *testing.T) {
	var gotPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"subscription": {"tier": "free"}}`))
	}))

	check, err := client.VerifyAuth(context.Background())
	if err != nil {
		t.Fatalf("VerifyAuth() error = %v", err)
	}
	if !check.OK {
		t.Errorf("check.OK = false, reason %q", check.Reason)
	}
	if gotPath != "/v1/user" {
		t.Errorf("probe path = %q, want /v1/user", gotPath)
	}
}

func TestChatUnsupported(t *testing.T) {
	client := testClient(t, http.NotFoundHandler())

	_, err := client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "eleven_multilingual_v2",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	var unsupported *providers.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Chat() error = %v, want UnsupportedError", err)
	}
}
