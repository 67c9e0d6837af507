package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// LoopConfig holds the loop's tunable behavior. The zero value gets sensible
// defaults from NewLoop.
type LoopConfig struct {
	// ContextBudget is the maximum serialized size, in characters, of the
	// history included in a prompt.
	ContextBudget int
	// LoopDetectionWindow is the number of recent commands examined for a
	// repeating pattern. Zero disables detection.
	LoopDetectionWindow int
	// Logger receives diagnostics. The human-facing transcript goes through
	// the event stream instead.
	Logger *slog.Logger
}

// RunResult describes how a run ended.
type RunResult struct {
	// Finished is true when the finish tool was dispatched. False means a
	// clean stop: user interruption or end of manual input.
	Finished bool
	// Final is the finish tool's result text when Finished is set.
	Final string
}

// Loop orchestrates one agent run. Each iteration flows one direction:
// state -> prompt -> response -> parsed command -> tool result -> appended
// state -> persisted state. Execution is strictly sequential; the only
// suspension point is waiting for a response.
type Loop struct {
	state     *AgentState
	statePath string
	registry  *ToolRegistry
	builder   *PromptBuilder
	source    ResponseSource
	emitter   *EventEmitter
	logger    *slog.Logger

	budget          int
	detectionWindow int

	// warning is injected into the next prompt only; it is telemetry for the
	// model, not part of the persisted history.
	warning string
}

// NewLoop creates a loop over the given state. statePath may be empty, which
// disables persistence (used by tests).
func NewLoop(state *AgentState, statePath string, registry *ToolRegistry, builder *PromptBuilder, source ResponseSource, cfg LoopConfig) *Loop {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		state:           state,
		statePath:       statePath,
		registry:        registry,
		builder:         builder,
		source:          source,
		emitter:         NewEventEmitter(state.RunID, 64),
		logger:          cfg.Logger,
		budget:          cfg.ContextBudget,
		detectionWindow: cfg.LoopDetectionWindow,
	}
}

// Events returns the loop's event stream for host rendering.
func (l *Loop) Events() <-chan Event {
	return l.emitter.Events()
}

// State returns the loop's state. The loop owns it for the duration of Run.
func (l *Loop) State() *AgentState {
	return l.state
}

// Run executes iterations until the finish tool fires, the response source
// runs dry, the context is cancelled, or the backend fails fatally. Every
// recoverable failure ends up as a persisted turn the model sees on the next
// round; only an unreachable backend returns a non-nil error.
func (l *Loop) Run(ctx context.Context) (RunResult, error) {
	l.emitter.Emit(EventRunStart, map[string]any{
		"goal":  l.state.Goal,
		"turns": len(l.state.History),
	})
	defer l.emitter.Close()

	for {
		select {
		case <-ctx.Done():
			return l.shutdown()
		default:
		}

		_, historyJSON := RenderHistory(l.state.History, l.budget)
		prompt := l.builder.Build(l.state.Goal, l.registry.Catalog(), historyJSON)
		if l.warning != "" {
			prompt += "\n\n**Warning:** " + l.warning
			l.warning = ""
		}
		l.emitter.Emit(EventPromptBuilt, map[string]any{"chars": len(prompt)})

		text, err := l.source.Obtain(ctx, prompt)
		if err != nil {
			if errors.Is(err, ErrNoInput) {
				l.logger.Info("no response supplied, ending run")
				return l.shutdown()
			}
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return l.shutdown()
			}
			// Transport-fatal: the backend is unreachable or kept failing
			// after retries. Persist what we have and surface it.
			l.emitter.Emit(EventFatal, map[string]any{"error": err.Error()})
			l.persist()
			return RunResult{}, fmt.Errorf("obtain response: %w", err)
		}
		l.emitter.Emit(EventResponseReceived, map[string]any{"chars": len(text)})

		parsed, perr := ParseResponse(text)
		if perr != nil {
			// Protocol-recoverable: record the failure where the model will
			// see it on the next round and let it correct itself.
			msg := fmt.Sprintf("Error: %v. Raw response:\n%s", perr, text)
			l.state.Append(NewErrorTurn(msg))
			l.persist()
			l.emitter.Emit(EventErrorTurn, map[string]any{"error": msg})
			continue
		}

		// Dispatch failures (unknown command, bad arguments, tool errors)
		// come back as the turn's result text, fed back exactly like a
		// successful result.
		outcome := l.registry.Dispatch(ctx, parsed.Command.Name, parsed.Command.Args)
		l.state.Append(NewTurn(parsed.Thoughts, parsed.Command, outcome.Text))
		l.persist()
		l.emitter.Emit(EventTurnRecorded, map[string]any{
			"thoughts": parsed.Thoughts,
			"command":  parsed.Command.Name,
			"result":   outcome.Text,
			"is_error": outcome.IsError(),
		})

		if outcome.Terminal {
			l.emitter.Emit(EventFinished, map[string]any{"result": outcome.Text})
			return RunResult{Finished: true, Final: outcome.Text}, nil
		}

		if l.detectionWindow > 0 && DetectCommandLoop(l.state.History, l.detectionWindow) {
			l.warning = fmt.Sprintf(
				"Your last %d commands follow a repeating pattern with identical arguments. Try a different approach.",
				l.detectionWindow)
			l.emitter.Emit(EventLoopWarning, map[string]any{"window": l.detectionWindow})
			l.logger.Warn("command loop detected", "window", l.detectionWindow)
		}
	}
}

// shutdown is the clean exit path: persist current state, report no error.
func (l *Loop) shutdown() (RunResult, error) {
	l.emitter.Emit(EventInterrupted, nil)
	l.persist()
	return RunResult{}, nil
}

// persist flushes state to the configured path. A persistence failure cannot
// itself be persisted, so it is logged and the loop carries on; at most the
// in-flight step is lost on a crash.
func (l *Loop) persist() {
	if l.statePath == "" {
		return
	}
	if err := l.state.Save(l.statePath); err != nil {
		l.logger.Error("failed to persist state", "path", l.statePath, "error", err)
	}
}
