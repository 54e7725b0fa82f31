package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandResult captures the observable output of an external tool run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandRunner executes external tools. Stage adapters depend on this
// interface so tests can substitute a stub without spawning processes.
type CommandRunner interface {
	Run(ctx context.Context, dir, binary string, args ...string) (CommandResult, error)
}

// NewCommandRunner returns the default exec-backed runner.
func NewCommandRunner() CommandRunner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, binary string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			return result, Wrap(ErrTimeout, "", binary, "command cancelled or timed out", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, Wrap(ErrExternalTool, "", binary,
				fmt.Sprintf("exit status %d: %s", exitErr.ExitCode(), firstLine(result.Stderr)), err)
		}
		return result, Wrap(ErrExternalTool, "", binary, "command failed to start", err)
	}
	return result, nil
}

// RunWithTimeout bounds a single tool invocation with its own deadline while
// still honoring cancellation from the parent context.
func RunWithTimeout(ctx context.Context, runner CommandRunner, timeout time.Duration, dir, binary string, args ...string) (CommandResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runner.Run(ctx, dir, binary, args...)
}

func firstLine(s string) string {
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line
		}
	}
	return strings.TrimSpace(s)
}
