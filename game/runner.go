package game

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// Invocation is one emulator process to start
type Invocation struct {
	Dir  string
	Name string
	Args []string
}

// String returns the command line for logging
func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Name}, inv.Args...), " ")
}

// Runner starts emulator processes.
type Runner interface {
	// Run starts the process and waits for it to exit.
	Run(ctx context.Context, inv Invocation) error
	// Start starts the process and returns once it is spawned.
	Start(ctx context.Context, inv Invocation) error
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	return cmd.Run()
}

// Start implements Runner. The process outlives ctx; it is reaped in the
// background.
func (ExecRunner) Start(_ context.Context, inv Invocation) error {
	cmd := exec.Command(inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("emulator exited", "error", err)
		}
	}()
	return nil
}
