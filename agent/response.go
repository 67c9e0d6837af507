package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/martinemde/prometheus/llm"
)

// ModelResponse is the parsed form of the model's output contract: a single
// JSON object with the two required top-level keys.
type ModelResponse struct {
	Thoughts string      `json:"thoughts"`
	Command  CommandSpec `json:"command"`
}

// ParseResponse parses raw model output against the output contract. It
// fails when the text is not valid JSON or when either required top-level
// key is missing; extra keys are tolerated.
func ParseResponse(text string) (*ModelResponse, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	thoughtsRaw, ok := top["thoughts"]
	if !ok {
		return nil, errors.New("response is missing required key \"thoughts\"")
	}
	commandRaw, ok := top["command"]
	if !ok {
		return nil, errors.New("response is missing required key \"command\"")
	}

	var resp ModelResponse
	if err := json.Unmarshal(thoughtsRaw, &resp.Thoughts); err != nil {
		return nil, fmt.Errorf("response key \"thoughts\" must be a string: %w", err)
	}
	if err := json.Unmarshal(commandRaw, &resp.Command); err != nil {
		return nil, fmt.Errorf("response key \"command\" must be an object with name and args: %w", err)
	}
	return &resp, nil
}

// ErrNoInput signals that a manual session supplied no response text. The
// loop treats it as a clean end of the run, not a failure.
var ErrNoInput = errors.New("no input received")

// ResponseSource obtains the raw model response for a prompt. The two
// implementations are mutually exclusive and chosen at construction time:
// automatic (backend call) or manual (a human pastes the response).
type ResponseSource interface {
	Obtain(ctx context.Context, prompt string) (string, error)
}

// AutomaticSource obtains responses from a completion backend.
type AutomaticSource struct {
	client      *llm.Client
	provider    string
	model       string
	temperature float64
}

// NewAutomaticSource creates a source that calls client synchronously with
// the given provider, model, and sampling temperature.
func NewAutomaticSource(client *llm.Client, provider, model string, temperature float64) *AutomaticSource {
	return &AutomaticSource{
		client:      client,
		provider:    provider,
		model:       model,
		temperature: temperature,
	}
}

func (s *AutomaticSource) Obtain(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Complete(ctx, llm.Request{
		Provider:    s.provider,
		Model:       s.model,
		Prompt:      prompt,
		Format:      llm.FormatJSON,
		Temperature: &s.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// ManualSource prints the prompt and blocks until a human pastes the model's
// response, reading until end-of-input. Supplying nothing ends the run
// cleanly.
type ManualSource struct {
	in  io.Reader
	out io.Writer
}

// NewManualSource creates a manual source reading from in (normally stdin)
// and printing instructions to out.
func NewManualSource(in io.Reader, out io.Writer) *ManualSource {
	return &ManualSource{in: in, out: out}
}

func (s *ManualSource) Obtain(ctx context.Context, prompt string) (string, error) {
	fmt.Fprintln(s.out, "--- MANUAL MODE ---")
	fmt.Fprintln(s.out, "The prompt that would be sent to the LLM is printed below.")
	fmt.Fprintln(s.out, "Copy it, generate a response, and paste the raw JSON back here.")
	fmt.Fprintln(s.out, strings.Repeat("-", 60))
	fmt.Fprintln(s.out, prompt)
	fmt.Fprintln(s.out, strings.Repeat("-", 60))
	fmt.Fprintln(s.out, "Paste the LLM's JSON response below, then signal end-of-input (Ctrl+D):")

	data, err := io.ReadAll(s.in)
	if err != nil {
		return "", fmt.Errorf("read manual response: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoInput
	}
	return text, nil
}
