package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaCompletePayload(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{
			Model:    "mistral",
			Response: "  {\"thoughts\": \"t\"}  \n",
			Done:     true,
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, 5*time.Second)
	temp := 0.7
	resp, err := provider.Complete(context.Background(), Request{
		Model:       "mistral",
		Prompt:      "hello",
		Format:      FormatJSON,
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got.Model != "mistral" || got.Prompt != "hello" {
		t.Errorf("request = %+v", got)
	}
	if got.Stream {
		t.Error("streaming must be disabled")
	}
	if got.Format != "json" {
		t.Errorf("format = %q, want %q", got.Format, "json")
	}
	if got.Options["temperature"] != 0.7 {
		t.Errorf("options = %v, want temperature 0.7", got.Options)
	}

	if resp.Text != `{"thoughts": "t"}` {
		t.Errorf("text = %q, want trimmed payload", resp.Text)
	}
	if resp.Provider != "ollama" {
		t.Errorf("provider = %q", resp.Provider)
	}
	if !strings.HasPrefix(resp.ID, "resp_") {
		t.Errorf("response ID = %q, want resp_ prefix", resp.ID)
	}
}

func TestOllamaCompleteOmitsEmptyOptions(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, 5*time.Second)
	if _, err := provider.Complete(context.Background(), Request{Model: "m", Prompt: "p"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, ok := raw["options"]; ok {
		t.Error("options should be omitted when no sampling knobs are set")
	}
	if _, ok := raw["format"]; ok {
		t.Error("format should be omitted when unset")
	}
}

func TestOllamaConnectionRefused(t *testing.T) {
	// A server that is immediately closed leaves a port nothing listens on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := NewOllamaProvider(url, 2*time.Second)
	_, err := provider.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsConnectionError(err) {
		t.Fatalf("err = %T (%v), want *ConnectionError", err, err)
	}
	if !strings.Contains(err.Error(), "is it running?") {
		t.Errorf("err = %q, want the is-it-running hint", err.Error())
	}
	if IsRetryable(err) {
		t.Error("connection errors must not be retryable")
	}
}

func TestOllamaHTTPErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantType string
	}{
		{404, "*llm.NotFoundError"},
		{429, "*llm.RateLimitError"},
		{500, "*llm.ServerError"},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tt.status == 429 {
				w.Header().Set("Retry-After", "3")
			}
			w.WriteHeader(tt.status)
			w.Write([]byte("model error"))
		}))
		provider := NewOllamaProvider(server.URL, 2*time.Second)
		_, err := provider.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
		server.Close()
		if err == nil {
			t.Fatalf("status %d: expected an error", tt.status)
		}
		if got := fmt.Sprintf("%T", err); got != tt.wantType {
			t.Errorf("status %d: type = %s, want %s", tt.status, got, tt.wantType)
		}
		if tt.status == 429 {
			var rl *RateLimitError
			if !errors.As(err, &rl) || rl.RetryAfter == nil || *rl.RetryAfter != 3 {
				t.Errorf("Retry-After header not propagated: %v", err)
			}
		}
	}
}

func TestOllamaTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, 50*time.Millisecond)
	_, err := provider.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var te *RequestTimeoutError
	if !errors.As(err, &te) {
		t.Errorf("err = %T (%v), want *RequestTimeoutError", err, err)
	}
}

func TestOllamaCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := NewOllamaProvider(server.URL, 5*time.Second)
	_, err := provider.Complete(ctx, Request{Model: "m", Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled passed through", err)
	}
}
