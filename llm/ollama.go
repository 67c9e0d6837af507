package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultOllamaBaseURL is the Ollama server's default listen address.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider speaks the Ollama generate API: a plain JSON POST to
// /api/generate carrying the model, the prompt, the desired response format,
// and sampling options, with streaming disabled.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaProvider creates a provider for the server at baseURL (the
// default local address if empty). timeout bounds the full request
// round-trip; zero means no client-side timeout.
func NewOllamaProvider(baseURL string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string { return "ollama" }

// generateRequest is the wire shape of an Ollama generate call.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the subset of the Ollama response the client uses.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends a blocking generate request and returns the text payload.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	payload := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
		Format: req.Format,
	}
	options := map[string]any{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		options["num_predict"] = *req.MaxTokens
	}
	if len(options) > 0 {
		payload.Options = options
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &SDKError{Message: "marshal generate request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &SDKError{Message: "build generate request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &RequestTimeoutError{SDKError: SDKError{
				Message: fmt.Sprintf("request to %s timed out", p.baseURL), Cause: err,
			}}
		}
		return nil, &ConnectionError{SDKError: SDKError{
			Message: fmt.Sprintf("could not connect to LLM API at %s (is it running?)", p.baseURL),
			Cause:   err,
		}}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &SDKError{Message: "read generate response", Cause: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, ErrorFromStatusCode(httpResp.StatusCode,
			strings.TrimSpace(string(respBody)), p.Name(),
			parseRetryAfter(httpResp.Header.Get("Retry-After")))
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return nil, &SDKError{Message: "decode generate response", Cause: err}
	}

	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    gen.Model,
		Provider: p.Name(),
		Text:     strings.TrimSpace(gen.Response),
	}, nil
}

func parseRetryAfter(header string) *float64 {
	if header == "" {
		return nil
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil {
		return nil
	}
	return &seconds
}
