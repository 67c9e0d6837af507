package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/prometheus/agent"
	"github.com/martinemde/prometheus/config"
	"github.com/martinemde/prometheus/llm"
)

var rootCmd = &cobra.Command{
	Use:   "prometheus [goal]",
	Short: "A scaffolding for a recursive, self-improving AI agent",
	Long: `Prometheus runs an autonomous agent loop: it repeatedly asks a language
model to choose one action from a fixed tool set, executes that action,
records the result, and feeds the updated history back into the next prompt.

State is persisted after every iteration, so an interrupted run resumes
where it left off.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAgent,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("manual", "m", false, "Run in manual mode, where you provide the LLM responses")
	rootCmd.Flags().String("config", "", "Path to a YAML config file")
	rootCmd.Flags().String("state-file", "", "Override the state file path")
	rootCmd.Flags().String("provider", "", "Completion provider: ollama, openai, or anthropic")
	rootCmd.Flags().String("model", "", "Override the model identifier")
	rootCmd.Flags().String("base-url", "", "Override the Ollama server address")
}

func runAgent(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	goal := config.DefaultGoal
	if len(args) > 0 {
		goal = args[0]
	}

	manual, _ := cmd.Flags().GetBool("manual")

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ws := agent.NewLocalWorkspace("", cfg.ShellTimeout())

	registry := agent.NewToolRegistry()
	agent.RegisterCoreTools(registry, ws, askFunc(client, cfg))

	state, resumed, err := agent.LoadOrNewState(cfg.StateFile, goal)
	if err != nil {
		return err
	}
	if resumed {
		fmt.Printf("Loading state from %s...\n", cfg.StateFile)
	} else {
		fmt.Println("No state file found. Initializing new state.")
	}

	var source agent.ResponseSource
	if manual {
		fmt.Println("--- RUNNING IN MANUAL MODE ---")
		source = agent.NewManualSource(os.Stdin, os.Stdout)
	} else {
		source = agent.NewAutomaticSource(client, cfg.Provider, cfg.Model, cfg.Temperature)
	}

	builder := agent.NewPromptBuilder(ws.WorkingDirectory(), ws.Platform())
	loop := agent.NewLoop(state, cfg.StateFile, registry, builder, source, agent.LoopConfig{
		ContextBudget:       cfg.ContextBudget,
		LoopDetectionWindow: cfg.LoopDetectionWindow,
		Logger:              logger,
	})

	// SIGINT/SIGTERM become a context cancellation the loop turns into a
	// persist-and-exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		renderTranscript(loop.Events(), manual)
	}()

	result, err := loop.Run(ctx)
	wg.Wait()
	if err != nil {
		return err
	}

	if result.Finished {
		fmt.Println("--- AGENT FINISHED ---")
		fmt.Printf("Final Result: %s\n", result.Final)
	} else {
		fmt.Printf("\nRun stopped. State saved to %s.\n", cfg.StateFile)
	}
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("state-file"); v != "" {
		cfg.StateFile = v
	}
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		cfg.Provider = v
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model = v
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}
}

// buildClient registers the Ollama adapter plus, when configured, the
// gollm-backed hosted provider, and routes to cfg.Provider by default.
func buildClient(cfg config.Config) (*llm.Client, error) {
	client := llm.NewClient(
		llm.WithProvider(llm.NewOllamaProvider(cfg.BaseURL, cfg.RequestTimeout())),
		llm.WithDefaultProvider(cfg.Provider),
	)

	if cfg.Provider == "openai" || cfg.Provider == "anthropic" {
		hosted, err := llm.NewGollmProvider(cfg.Provider,
			llm.WithAPIKey(cfg.APIKey),
			llm.WithModel(cfg.Model),
			llm.WithTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, err
		}
		client.RegisterProvider(hosted)
	}

	return client, nil
}

// askFunc builds the ask_llm delegate. It always calls the backend directly,
// even when the outer loop runs in manual mode.
func askFunc(client *llm.Client, cfg config.Config) agent.AskFunc {
	return func(ctx context.Context, question, model string) (string, error) {
		if model == "" {
			model = cfg.Model
		}
		resp, err := client.Complete(ctx, llm.Request{
			Provider: cfg.Provider,
			Model:    model,
			Prompt:   question,
		})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	}
}

// renderTranscript prints the human-facing view of the run from the loop's
// event stream. In manual mode the prompt itself is printed by the response
// source, so the prompt_built banner is skipped.
func renderTranscript(events <-chan agent.Event, manual bool) {
	for event := range events {
		switch event.Kind {
		case agent.EventRunStart:
			fmt.Printf("Goal: %v\n", event.Data["goal"])
		case agent.EventPromptBuilt:
			if !manual {
				fmt.Println("\nRequesting next action from LLM...")
			}
		case agent.EventTurnRecorded:
			fmt.Println("\n==================== LLM RESPONSE =====================")
			fmt.Printf("THOUGHTS: %v\n", event.Data["thoughts"])
			fmt.Printf("COMMAND: %v\n", event.Data["command"])
			fmt.Println("=====================================================")
			fmt.Printf("\nCOMMAND RESULT:\n---\n%v\n---\n", event.Data["result"])
		case agent.EventErrorTurn:
			fmt.Printf("\n%v\n", event.Data["error"])
		case agent.EventLoopWarning:
			fmt.Printf("\n[Loop detected over the last %v commands; warning the model]\n", event.Data["window"])
		case agent.EventInterrupted:
			fmt.Println("\nInterrupted. Saving state and exiting.")
		case agent.EventFatal:
			fmt.Fprintf(os.Stderr, "\nFatal: %v\n", event.Data["error"])
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
