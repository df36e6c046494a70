// Package ops implements the container operations dispatcher that wraps
// docker compose.
package ops

import (
	"context"
	"os"
	"os/exec"
)

// CommandRunner defines the interface for executing external commands.
// Implementations run docker compose invocations in the specified directory.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner implements CommandRunner using os/exec with inherited standard
// streams, so interactive commands (run, shell) behave like a direct
// invocation and interrupts reach the child.
type ExecRunner struct{}

// Run executes a command with inherited stdin/stdout/stderr.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
