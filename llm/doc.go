// Package llm provides the completion boundary for the agent loop: a small
// provider-agnostic client over backends that take a prompt and return text.
//
// Two adapters are included. OllamaProvider speaks the Ollama generate API
// directly over HTTP (the scaffold's default, local backend). GollmProvider
// wraps github.com/teilomillet/gollm for hosted providers (openai,
// anthropic).
//
// The Client routes requests by provider name and applies an exponential
// backoff retry policy to transient failures (rate limits, server errors,
// timeouts). An unreachable backend is a ConnectionError and is never
// retried; the caller decides whether that is fatal.
//
//	client := llm.NewClient(
//	    llm.WithProvider(llm.NewOllamaProvider("", 5*time.Minute)),
//	)
//	resp, err := client.Complete(ctx, llm.Request{
//	    Model:  "mistral",
//	    Prompt: "Say hello",
//	    Format: llm.FormatJSON,
//	})
package llm
