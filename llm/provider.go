package llm

import "context"

// FormatJSON asks the backend to constrain its output to a JSON document.
const FormatJSON = "json"

// Request is a single blocking completion call. The agent sends exactly one
// of these per loop iteration; there is no streaming surface.
type Request struct {
	// Model is the backend model identifier.
	Model string `json:"model"`
	// Prompt is the full prompt text.
	Prompt string `json:"prompt"`
	// Provider routes the request when a client has several providers
	// registered. Empty means the client's default.
	Provider string `json:"provider,omitempty"`
	// Format is the desired response format ("json" or empty for plain text).
	Format string `json:"format,omitempty"`
	// Temperature overrides the provider's default sampling temperature.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens caps the response length when set.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// Response is the text payload returned by a provider.
type Response struct {
	ID       string `json:"id"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// CompletionProvider is the interface every backend adapter implements.
type CompletionProvider interface {
	// Name returns the provider identifier (e.g. "ollama", "openai").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}
