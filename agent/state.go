package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CommandSpec is the action the model chose: a registered tool name plus its
// named arguments. Argument validation happens at dispatch time, never here.
type CommandSpec struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Turn is one entry in the agent's history. A normal turn records what the
// model thought, which command it ran, and what came back. An error turn
// records a failure that produced no command (for example a response that
// was not valid JSON). A Turn is immutable once appended.
type Turn struct {
	Thoughts string       `json:"thoughts,omitempty"`
	Command  *CommandSpec `json:"command,omitempty"`
	Result   string       `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// NewTurn creates a normal turn.
func NewTurn(thoughts string, command CommandSpec, result string) Turn {
	return Turn{Thoughts: thoughts, Command: &command, Result: result}
}

// NewErrorTurn creates an error turn.
func NewErrorTurn(message string) Turn {
	return Turn{Error: message}
}

// IsError reports whether the turn records a failure with no executed command.
func (t Turn) IsError() bool {
	return t.Error != ""
}

// AgentState is the persisted record of a run: the goal (immutable after
// creation) and the chronological, append-only history of turns.
type AgentState struct {
	RunID   string `json:"run_id"`
	Goal    string `json:"goal"`
	History []Turn `json:"history"`
}

// NewAgentState creates a fresh state for the given goal.
func NewAgentState(goal string) *AgentState {
	return &AgentState{
		RunID:   uuid.New().String(),
		Goal:    goal,
		History: []Turn{},
	}
}

// Append adds one turn to the history.
func (s *AgentState) Append(turn Turn) {
	s.History = append(s.History, turn)
}

// Save writes the state to path as indented JSON. The write goes to a
// temporary file in the same directory followed by a rename, so a crash
// mid-write never corrupts a previously valid state file.
func (s *AgentState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".agent_state-*")
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState reads a previously saved state from path.
func LoadState(path string) (*AgentState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	var s AgentState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load state: invalid state file %s: %w", path, err)
	}
	if s.History == nil {
		s.History = []Turn{}
	}
	return &s, nil
}

// LoadOrNewState loads the state at path if it exists, otherwise creates a
// fresh state for the given goal. The second return value reports whether an
// existing state was resumed.
func LoadOrNewState(path, goal string) (*AgentState, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return NewAgentState(goal), false, nil
		}
		return nil, false, fmt.Errorf("load state: %w", err)
	}
	s, err := LoadState(path)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}
