// Package proc runs external commands from an argv list with an optional
// wall-clock timeout. Commands are never passed through a shell.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"
)

// ExitTimeout is reported as the exit code of a command killed on timeout.
const ExitTimeout = 124

// waitDelay bounds how long Wait keeps draining output after the process
// group has been killed.
const waitDelay = 2 * time.Second

type RunOpts struct {
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Timeout time.Duration
	// Output receives combined stdout and stderr. Nil discards it.
	Output io.Writer
	// Stderr, when set, takes stderr away from Output.
	Stderr io.Writer
}

type RunResult struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Run executes opts.Args and waits for it to finish.
//
// A non-zero exit is not an error: it is reported in ExitCode. A timeout is
// not an error either; TimedOut is set and ExitCode is ExitTimeout. Errors
// are returned only when the command cannot be started or waited for, or
// when ctx itself is done.
func Run(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	if len(opts.Args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, opts.Args[0], opts.Args[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}
	cmd.WaitDelay = waitDelay
	setupProcessGroup(cmd)

	// The deadline may pass while Wait is still draining output from a
	// command that exited on its own; only a kill counts as a timeout.
	var killed atomic.Bool
	kill := cmd.Cancel
	cmd.Cancel = func() error {
		killed.Store(true)
		return kill()
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", String(opts.Args), err)
	}
	waitErr := cmd.Wait()
	res := &RunResult{Duration: time.Since(start)}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if killed.Load() && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = ExitTimeout
		return res, nil
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// exited cleanly but left a descendant holding the output open
		default:
			return nil, fmt.Errorf("waiting for %s: %w", String(opts.Args), waitErr)
		}
	}
	return res, nil
}

// String renders args for log messages only.
func String(args []string) string {
	return strings.Join(args, " ")
}
