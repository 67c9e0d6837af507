package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent_state.json")

	state := NewAgentState("explore the workspace")
	state.Append(NewTurn("look around", CommandSpec{
		Name: "list_directory",
		Args: map[string]any{"path": "."},
	}, `["a.txt","b.txt"]`))
	state.Append(NewErrorTurn("Error: response is not valid JSON: unexpected end of JSON input. Raw response:\n{broken"))

	if err := state.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.RunID != state.RunID {
		t.Errorf("run ID = %q, want %q", loaded.RunID, state.RunID)
	}
	if loaded.Goal != state.Goal {
		t.Errorf("goal = %q, want %q", loaded.Goal, state.Goal)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(loaded.History))
	}
	if loaded.History[0].IsError() {
		t.Error("first turn should be a normal turn")
	}
	if loaded.History[0].Command == nil || loaded.History[0].Command.Name != "list_directory" {
		t.Errorf("first turn command = %+v, want list_directory", loaded.History[0].Command)
	}
	if !loaded.History[1].IsError() {
		t.Error("second turn should be an error turn")
	}
	if loaded.History[1].Command != nil {
		t.Error("error turn must not carry a command")
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent_state.json")

	state := NewAgentState("goal")
	for i := 0; i < 3; i++ {
		state.Append(NewTurn("t", CommandSpec{Name: "execute_shell", Args: map[string]any{"command": "ls"}}, "ok"))
		if err := state.Save(path); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		loaded, err := LoadState(path)
		if err != nil {
			t.Fatalf("LoadState after save %d failed: %v", i, err)
		}
		if len(loaded.History) != i+1 {
			t.Errorf("after save %d: history length = %d, want %d", i, len(loaded.History), i+1)
		}
	}

	// No temp files should survive a successful save.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the state file", len(entries))
	}
}

func TestLoadStateInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadState(path); err == nil {
		t.Error("expected error for corrupt state file")
	}
}

func TestLoadOrNewState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent_state.json")

	fresh, resumed, err := LoadOrNewState(path, "first goal")
	if err != nil {
		t.Fatalf("LoadOrNewState failed: %v", err)
	}
	if resumed {
		t.Error("expected a fresh state when no file exists")
	}
	if fresh.Goal != "first goal" {
		t.Errorf("goal = %q, want %q", fresh.Goal, "first goal")
	}
	if fresh.RunID == "" {
		t.Error("fresh state must have a run ID")
	}
	if fresh.History == nil || len(fresh.History) != 0 {
		t.Errorf("fresh history = %v, want empty", fresh.History)
	}

	if err := fresh.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A later invocation with a different goal resumes the stored one.
	loaded, resumed, err := LoadOrNewState(path, "different goal")
	if err != nil {
		t.Fatalf("LoadOrNewState failed: %v", err)
	}
	if !resumed {
		t.Error("expected resume when state file exists")
	}
	if loaded.Goal != "first goal" {
		t.Errorf("resumed goal = %q, want the persisted %q", loaded.Goal, "first goal")
	}
	if loaded.RunID != fresh.RunID {
		t.Errorf("resumed run ID = %q, want %q", loaded.RunID, fresh.RunID)
	}
}
