// Package config builds the scaffold's configuration once at startup:
// defaults, then an optional YAML file, then PROMETHEUS_-prefixed
// environment variables. The resulting struct is passed explicitly into the
// loop, prompt builder, and completion client; there are no ambient globals.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultGoal is used when no goal argument is supplied.
const DefaultGoal = "Develop a plan to achieve self-improvement and begin executing it. " +
	"Your first step should be to explore the system and your own source code."

// Config holds every tunable of the scaffold.
type Config struct {
	// Provider selects the completion backend: "ollama", "openai", or
	// "anthropic".
	Provider string `yaml:"provider" env:"PROVIDER"`
	// Model is the backend model identifier.
	Model string `yaml:"model" env:"MODEL"`
	// BaseURL is the Ollama server address (ignored by hosted providers).
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// APIKey authenticates hosted providers. Empty falls back to the
	// provider's conventional environment variable.
	APIKey string `yaml:"api_key" env:"API_KEY"`

	// StateFile is where agent state is persisted between iterations.
	StateFile string `yaml:"state_file" env:"STATE_FILE"`
	// ContextBudget is the maximum serialized history size, in characters,
	// included in a prompt.
	ContextBudget int `yaml:"context_budget" env:"CONTEXT_BUDGET"`
	// Temperature is the sampling temperature for completion requests.
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`

	// RequestTimeoutSecs bounds one completion round-trip.
	RequestTimeoutSecs int `yaml:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS"`
	// ShellTimeoutSecs bounds one execute_shell command.
	ShellTimeoutSecs int `yaml:"shell_timeout_seconds" env:"SHELL_TIMEOUT_SECONDS"`

	// LoopDetectionWindow is the number of recent commands checked for a
	// repeating pattern; zero disables detection.
	LoopDetectionWindow int `yaml:"loop_detection_window" env:"LOOP_DETECTION_WINDOW"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the baseline configuration: a local Ollama backend and the
// original scaffold's constants.
func Default() Config {
	return Config{
		Provider:            "ollama",
		Model:               "mistral",
		BaseURL:             "http://localhost:11434",
		StateFile:           "agent_state.json",
		ContextBudget:       4096,
		Temperature:         0.7,
		RequestTimeoutSecs:  300,
		ShellTimeoutSecs:    60,
		LoopDetectionWindow: 8,
		LogLevel:            "info",
	}
}

// Load builds the configuration: Default, overlaid with the YAML file at
// path (if non-empty), overlaid with PROMETHEUS_-prefixed environment
// variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "PROMETHEUS_"}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	switch c.Provider {
	case "ollama", "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("config: model must not be empty")
	}
	if c.StateFile == "" {
		return fmt.Errorf("config: state_file must not be empty")
	}
	if c.ContextBudget <= 0 {
		return fmt.Errorf("config: context_budget must be positive")
	}
	if c.LoopDetectionWindow < 0 {
		return fmt.Errorf("config: loop_detection_window must not be negative")
	}
	return nil
}

// RequestTimeout returns the completion round-trip bound.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// ShellTimeout returns the shell command bound.
func (c Config) ShellTimeout() time.Duration {
	return time.Duration(c.ShellTimeoutSecs) * time.Second
}
