package sagemaker

import (
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
		Name:    "sagemaker",
		BaseURL: server.URL,
		Credential: providers.Credential{
			APIKey:    "AKIAEXAMPLE",
			SecretKey: "secret",
			Region:    "us-east-1",
		},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresKeyPairAndRegion(t *testing.T) {
	tests := []struct {
		name  string
		cred  providers.Credential
		field string
	}{
		{"missing secret", providers.Credential{APIKey: "AKIA", Region: "us-east-1"}, "credential"},
		{"missing region", providers.Credential{APIKey: "AKIA", SecretKey: "s"}, "region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(providers.ClientConfig{Name: "sagemaker", Credential: tt.cred})
			var cfgErr *providers.ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Fatalf("NewClient() error = %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
}

func TestChatSignsAndParsesGeneration(t *testing.T) {
	var gotPath, gotAuth, gotAgent string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`[{"generated_text": "A signed answer"}]`))
	}))

	resp, err := client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "llama-endpoint",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "question"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if gotPath != "/endpoints/llama-endpoint/invocations" {
		t.Errorf("path = %q, want invocations URL", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256") {
		t.Errorf("Authorization = %q, want SigV4 signature", gotAuth)
	}
	if gotAgent != "polygate" {
		t.Errorf("User-Agent = %q, want polygate", gotAgent)
	}
	if resp.Content != "A signed answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if !resp.Usage.Estimated || resp.Usage.TotalTokens == 0 {
		t.Errorf("usage = %+v, want estimated counts", resp.Usage)
	}
}

func TestChatAcceptsObjectResponse(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text": "object form"}`))
	}))

	resp, err := client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "llama-endpoint",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "question"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "object form" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestEmbedding(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[0.1, 0.2], [0.3, 0.4]]`))
	}))

	resp, err := client.Embedding(context.Background(), &providers.Request{
		Kind:  providers.KindEmbedding,
		Model: "embed-endpoint",
		Input: []string{"first", "second"},
	})
	if err != nil {
		t.Fatalf("Embedding() error = %v", err)
	}
	if len(resp.Embeddings) != 2 || !resp.Usage.Estimated {
		t.Errorf("response = %+v", resp)
	}
}

func TestListModelsUsesControlPlane(t *testing.T) {
	var gotTarget string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.Header.Get("X-Amz-Target")
		w.Write([]byte(`{"Endpoints": [{"EndpointName": "llama-endpoint", "EndpointStatus": "InService"}]}`))
	}))

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if gotTarget != "SageMaker.ListEndpoints" {
		t.Errorf("X-Amz-Target = %q", gotTarget)
	}
	if len(models) != 1 || models[0] != "llama-endpoint" {
		t.Errorf("models = %v", models)
	}
}

func TestForbiddenMapsToAuthError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "signature does not match"}`, http.StatusForbidden)
	}))

	_, err := client.Chat(context.Background(), &providers.Request{
		Kind:     providers.KindChat,
		Model:    "llama-endpoint",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "question"}},
	})
	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Chat() error = %v, want AuthError", err)
	}
}
