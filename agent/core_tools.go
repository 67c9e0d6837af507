package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AskFunc answers a one-off sub-question through the configured completion
// backend. The ask_llm tool delegates to it directly, even when the outer
// loop is running in manual mode.
type AskFunc func(ctx context.Context, question, model string) (string, error)

// RegisterCoreTools registers the agent's standard tool set on reg. The tools
// delegate filesystem and shell effects to ws; ask may be nil, which leaves
// the ask_llm tool unregistered.
func RegisterCoreTools(reg *ToolRegistry, ws Workspace, ask AskFunc) {
	registerExecuteShell(reg, ws)
	registerReadFile(reg, ws)
	registerWriteFile(reg, ws)
	registerListDirectory(reg, ws)
	if ask != nil {
		registerAskLLM(reg, ask)
	}
	registerFinish(reg)
}

func registerExecuteShell(reg *ToolRegistry, ws Workspace) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "execute_shell",
			Description: "Executes a command in the system's shell.",
			Parameters: []Parameter{
				{Name: "command", Type: ParamString, Required: true},
			},
		},
		Executor: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := StringArg(args, "command")
			result, err := ws.ExecShell(ctx, command)
			if err != nil {
				return "", err
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "STDOUT:\n%s\nSTDERR:\n%s", result.Stdout, result.Stderr)
			if result.TimedOut {
				sb.WriteString("\n[Command timed out; partial output shown above]")
			} else if result.ExitCode != 0 {
				fmt.Fprintf(&sb, "\n[Exit code: %d]", result.ExitCode)
			}
			return sb.String(), nil
		},
	})
}

func registerReadFile(reg *ToolRegistry, ws Workspace) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "read_file",
			Description: "Reads the content of a file.",
			Parameters: []Parameter{
				{Name: "path", Type: ParamString, Required: true},
			},
		},
		Executor: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := StringArg(args, "path")
			return ws.ReadFile(path)
		},
	})
}

func registerWriteFile(reg *ToolRegistry, ws Workspace) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "write_file",
			Description: "Writes content to a file, overwriting it if it exists.",
			Parameters: []Parameter{
				{Name: "path", Type: ParamString, Required: true},
				{Name: "content", Type: ParamString, Required: true},
			},
		},
		Executor: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := StringArg(args, "path")
			content, _ := StringArg(args, "content")
			if err := ws.WriteFile(path, content); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully wrote to %s.", path), nil
		},
	})
}

func registerListDirectory(reg *ToolRegistry, ws Workspace) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "list_directory",
			Description: "Lists the contents of a directory.",
			Parameters: []Parameter{
				{Name: "path", Type: ParamString, Required: true},
			},
		},
		Executor: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := StringArg(args, "path")
			names, err := ws.ListDirectory(path)
			if err != nil {
				return "", err
			}
			data, err := json.Marshal(names)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	})
}

func registerAskLLM(reg *ToolRegistry, ask AskFunc) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "ask_llm",
			Description: "Asks a question to a specified LLM, useful for sub-tasks or summarization.",
			Parameters: []Parameter{
				{Name: "question", Type: ParamString, Required: true},
				{Name: "model", Type: ParamString, Required: false},
			},
		},
		Executor: func(ctx context.Context, args map[string]any) (string, error) {
			question, _ := StringArg(args, "question")
			model, _ := StringArg(args, "model")
			return ask(ctx, question, model)
		},
	})
}

func registerFinish(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:        "finish",
			Description: "Signals that the main goal has been achieved.",
			Parameters: []Parameter{
				{Name: "result", Type: ParamString, Required: true},
			},
		},
		Executor: func(ctx context.Context, args map[string]any) (string, error) {
			result, _ := StringArg(args, "result")
			return result, nil
		},
		// Terminal: dispatching finish ends the loop instead of returning
		// control to it.
		Terminal: true,
	})
}
