package agent

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// ParamType is the declared type tag of a tool parameter, as shown to the
// model in the tool catalog and enforced at dispatch time.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamBool   ParamType = "bool"
)

// Parameter declares one named argument of a tool.
type Parameter struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
}

// ToolDefinition is the serializable description of a tool. The same schema
// feeds both the prompt's tool catalog and dispatch-time argument validation,
// so the model's view of a tool and the dispatcher's never drift apart.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Executor runs a tool with validated arguments and returns its result text.
type Executor func(ctx context.Context, args map[string]any) (string, error)

// RegisteredTool pairs a definition with its executor. Terminal marks a tool
// whose successful dispatch ends the loop (the finish tool).
type RegisteredTool struct {
	Definition ToolDefinition
	Executor   Executor
	Terminal   bool
}

// OutcomeKind classifies a dispatch result.
type OutcomeKind string

const (
	OutcomeOk               OutcomeKind = "ok"
	OutcomeUnknownCommand   OutcomeKind = "unknown_command"
	OutcomeInvalidArguments OutcomeKind = "invalid_arguments"
	OutcomeToolFailure      OutcomeKind = "tool_failure"
)

// Outcome is the result of dispatching a command. Failures are values, not
// panics: every kind other than OutcomeOk carries its error text in Text so
// the loop can feed the mistake back to the model as tool output. Terminal is
// set only by a successful dispatch of a terminal tool.
type Outcome struct {
	Kind     OutcomeKind
	Text     string
	Terminal bool
}

// IsError reports whether the dispatch failed.
func (o Outcome) IsError() bool {
	return o.Kind != OutcomeOk
}

// ToolRegistry owns the full set of tools for the process lifetime and
// dispatches commands against them.
type ToolRegistry struct {
	tools map[string]*RegisteredTool
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*RegisteredTool)}
}

// Register adds or replaces a tool.
func (r *ToolRegistry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition.Name] = &tool
}

// Get returns a registered tool by name, or nil.
func (r *ToolRegistry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Catalog returns all tool definitions sorted by name, so prompt rendering
// is deterministic.
func (r *ToolRegistry) Catalog() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the names of all registered tools, sorted.
func (r *ToolRegistry) Names() []string {
	defs := r.Catalog()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Dispatch validates args against the named tool's declared schema and runs
// its executor. It never returns a Go error: unknown names, argument
// mismatches, executor errors, and executor panics all come back as Outcome
// values whose Text is safe to record as the turn's result.
func (r *ToolRegistry) Dispatch(ctx context.Context, name string, args map[string]any) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = Outcome{
				Kind: OutcomeToolFailure,
				Text: fmt.Sprintf("Error: command %q panicked: %v", name, rec),
			}
		}
	}()

	if name == "" {
		return Outcome{
			Kind: OutcomeUnknownCommand,
			Text: "Error: malformed command: 'name' is required.",
		}
	}

	tool := r.Get(name)
	if tool == nil {
		return Outcome{
			Kind: OutcomeUnknownCommand,
			Text: fmt.Sprintf("Error: unknown command %q.", name),
		}
	}

	if err := validateArgs(tool.Definition, args); err != nil {
		return Outcome{
			Kind: OutcomeInvalidArguments,
			Text: fmt.Sprintf("Error: invalid arguments for command %q: %v", name, err),
		}
	}

	text, err := tool.Executor(ctx, args)
	if err != nil {
		return Outcome{
			Kind: OutcomeToolFailure,
			Text: fmt.Sprintf("Error executing command %q: %v", name, err),
		}
	}

	return Outcome{
		Kind:     OutcomeOk,
		Text:     TruncateResult(text, DefaultResultCap),
		Terminal: tool.Terminal,
	}
}

// validateArgs checks provided args against the declared parameter schema:
// required parameters must be present, no undeclared keys are accepted, and
// JSON values must match the declared type tags.
func validateArgs(def ToolDefinition, args map[string]any) error {
	declared := make(map[string]Parameter, len(def.Parameters))
	for _, p := range def.Parameters {
		declared[p.Name] = p
	}

	for _, p := range def.Parameters {
		v, ok := args[p.Name]
		if !ok {
			if p.Required {
				return fmt.Errorf("missing required argument %q", p.Name)
			}
			continue
		}
		if err := checkType(v, p.Type); err != nil {
			return fmt.Errorf("argument %q: %v", p.Name, err)
		}
	}

	var extra []string
	for k := range args {
		if _, ok := declared[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(extra, ", "))
	}
	return nil
}

func checkType(v any, t ParamType) error {
	switch t {
	case ParamString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case ParamInt:
		// JSON numbers decode as float64.
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return fmt.Errorf("expected integer, got %v", n)
			}
		case int:
		default:
			return fmt.Errorf("expected integer, got %T", v)
		}
	case ParamBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
	default:
		return fmt.Errorf("unsupported parameter type %q", t)
	}
	return nil
}

// StringArg extracts a string argument. Validation has already run by the
// time executors see args, so the ok flag only guards optional parameters.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntArg extracts an integer argument.
func IntArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
