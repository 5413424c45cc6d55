package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// slowServer never answers; requests end only through their context.
func slowServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDoCancellationIsNotATimeout(t *testing.T) {
	server := slowServer(t)
	client := NewHTTPClient(ClientConfig{Name: "slow", BaseURL: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Do(ctx, "GET", server.URL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Fatalf("Do() error = %v, cancellation must not map to a timeout", err)
	}
	if kind, _ := KindOf(err); IsTracked(kind) {
		t.Errorf("KindOf() = %v, cancellation must not be tracked", kind)
	}
}

func TestDoDeadlineMapsToTimeout(t *testing.T) {
	server := slowServer(t)
	client := NewHTTPClient(ClientConfig{Name: "slow", BaseURL: server.URL, Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, "GET", server.URL, nil, nil)
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Do() error = %v, want *TimeoutError", err)
	}
	if timeoutErr.Provider != "slow" {
		t.Errorf("Provider = %q, want slow", timeoutErr.Provider)
	}
}
