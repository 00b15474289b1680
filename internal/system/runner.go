// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package system wraps the OS-level operations the updater performs:
// running external commands, detaching child processes, killing stray
// processes and tolerant filesystem helpers. Commands are always typed
// argv lists; nothing goes through a shell.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"microkvm.io/updater/internal/logging"
)

// Result holds the outcome of an external command.
type Result struct {
	ExitCode int
	// Output is the combined stdout+stderr.
	Output string
}

// Runner executes external commands.
type Runner struct {
	logger *logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(logger *logging.Logger) *Runner {
	return &Runner{logger: logger.WithComponent("system")}
}

// Run executes a command and waits for it. A non-zero exit or a failure
// to start returns an error alongside the captured result; callers
// decide whether that is fatal.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()

	res := Result{Output: string(out)}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with code %d", name, res.ExitCode)
		}
		res.ExitCode = -1
		return res, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return res, nil
}

// BestEffort executes a command whose failure must never abort the
// update. A non-zero exit is logged at warning level, except when the
// output indicates the resource is already in the desired state.
func (r *Runner) BestEffort(ctx context.Context, name string, args ...string) Result {
	res, err := r.Run(ctx, name, args...)
	if err == nil {
		return res
	}

	if alreadySettled(res.Output) {
		r.logger.Debug("Command found resource already in desired state",
			"command", name, "args", strings.Join(args, " "))
		return res
	}

	r.logger.Warn("Best-effort command failed",
		"command", name,
		"args", strings.Join(args, " "),
		"exit_code", res.ExitCode,
		"output", strings.TrimSpace(res.Output))
	return res
}

// alreadySettled reports whether command output indicates the target
// resource already exists or is already absent.
func alreadySettled(output string) bool {
	out := strings.ToLower(output)
	for _, marker := range []string{
		"file exists",
		"no such file",
		"not found",
		"not loaded",
		"is not currently loaded",
		"already",
	} {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}
