package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		retryable bool
	}{
		{400, "*llm.InvalidRequestError", false},
		{401, "*llm.AuthenticationError", false},
		{403, "*llm.AccessDeniedError", false},
		{404, "*llm.NotFoundError", false},
		{408, "*llm.RequestTimeoutError", true},
		{413, "*llm.ContextLengthError", false},
		{422, "*llm.InvalidRequestError", false},
		{429, "*llm.RateLimitError", true},
		{500, "*llm.ServerError", true},
		{502, "*llm.ServerError", true},
		{503, "*llm.ServerError", true},
		{504, "*llm.ServerError", true},
		{418, "*llm.ProviderError", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := ErrorFromStatusCode(tt.status, "boom", "ollama", nil)
			if got := fmt.Sprintf("%T", err); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestConnectionErrorIsNeverRetryable(t *testing.T) {
	err := &ConnectionError{SDKError: SDKError{Message: "could not connect"}}
	if IsRetryable(err) {
		t.Error("an unreachable backend must not be retried")
	}
	if !IsConnectionError(err) {
		t.Error("IsConnectionError should match the bare error")
	}
	wrapped := fmt.Errorf("obtain response: %w", err)
	if !IsConnectionError(wrapped) {
		t.Error("IsConnectionError should see through wrapping")
	}
}

func TestSDKErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &ConnectionError{SDKError: SDKError{Message: "could not connect", Cause: cause}}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
	if msg := err.Error(); msg != "could not connect: dial tcp: connection refused" {
		t.Errorf("Error() = %q", msg)
	}
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	after := 2.5
	err := ErrorFromStatusCode(429, "slow down", "openai", &after)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("type = %T, want *RateLimitError", err)
	}
	if rl.RetryAfter == nil || *rl.RetryAfter != 2.5 {
		t.Errorf("RetryAfter = %v, want 2.5", rl.RetryAfter)
	}
	if rl.Provider != "openai" {
		t.Errorf("Provider = %q", rl.Provider)
	}
}
