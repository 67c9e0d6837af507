package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// ExecResult holds the result of a shell command execution.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Workspace abstracts the host the agent acts on: shell execution and file
// operations. The loop treats it as an opaque collaborator; implementations
// may have arbitrary external side effects.
type Workspace interface {
	ExecShell(ctx context.Context, command string) (*ExecResult, error)
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	ListDirectory(path string) ([]string, error)

	WorkingDirectory() string
	Platform() string
}

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables excluded from shell commands.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// LocalWorkspace runs tools on the local machine.
type LocalWorkspace struct {
	workingDir   string
	shellTimeout time.Duration
}

// NewLocalWorkspace creates a workspace rooted at workingDir (the current
// directory if empty). shellTimeout bounds each shell command; zero means
// no timeout.
func NewLocalWorkspace(workingDir string, shellTimeout time.Duration) *LocalWorkspace {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	return &LocalWorkspace{workingDir: workingDir, shellTimeout: shellTimeout}
}

func (w *LocalWorkspace) WorkingDirectory() string { return w.workingDir }

func (w *LocalWorkspace) Platform() string { return runtime.GOOS + "/" + runtime.GOARCH }

func (w *LocalWorkspace) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.workingDir, path)
}

func (w *LocalWorkspace) ExecShell(ctx context.Context, command string) (*ExecResult, error) {
	if w.shellTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.shellTimeout)
		defer cancel()
	}

	shell := "/bin/sh"
	shellArg := "-c"
	if runtime.GOOS == "windows" {
		shell = "cmd.exe"
		shellArg = "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = w.workingDir
	cmd.Env = filterEnvironment()

	// Process group so a timeout can kill the whole pipeline.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("exec shell: %w", err)
		}
	}

	return result, nil
}

func (w *LocalWorkspace) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(w.resolvePath(path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func (w *LocalWorkspace) WriteFile(path, content string) error {
	resolved := w.resolvePath(path)
	if dir := filepath.Dir(resolved); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (w *LocalWorkspace) ListDirectory(path string) ([]string, error) {
	entries, err := os.ReadDir(w.resolvePath(path))
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
