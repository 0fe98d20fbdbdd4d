// Package sysenv drives the external collaborators that prepare and
// observe the machine around a trial: the environment reset script,
// machine-info collection, and the kernel log.
package sysenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/signalnine/repbench/internal/config"
	"github.com/signalnine/repbench/internal/logger"
	"github.com/signalnine/repbench/internal/proc"
)

type Env struct {
	Commands config.Commands
	Dir      string
	Vars     []string
	Settle   time.Duration
	// Console receives the reset command's output.
	Console io.Writer

	log *log.Logger
}

func New(cfg *config.Config, vars []string, console io.Writer) *Env {
	return &Env{
		Commands: cfg.Commands,
		Dir:      cfg.WorkDir,
		Vars:     vars,
		Settle:   cfg.Settle(),
		Console:  console,
	}
}

func (e *Env) logger() *log.Logger {
	if e.log == nil {
		e.log = logger.With("sysenv")
	}
	return e.log
}

// run executes one collaborator. Start failures and non-zero exits are
// logged and swallowed; only cancellation of ctx is returned. A nil stderr
// shares out.
func (e *Env) run(ctx context.Context, name string, args []string, out, stderr io.Writer) error {
	if len(args) == 0 {
		e.logger().Debug("collaborator disabled", "name", name)
		return nil
	}
	res, err := proc.Run(ctx, &proc.RunOpts{Args: args, Dir: e.Dir, Env: e.Vars, Output: out, Stderr: stderr})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger().Warn("collaborator failed", "name", name, "cmd", proc.String(args), "err", err)
		return nil
	}
	if res.ExitCode != 0 {
		e.logger().Warn("collaborator exited non-zero", "name", name, "code", res.ExitCode)
	} else {
		e.logger().Debug("collaborator done", "name", name, "duration", res.Duration)
	}
	return nil
}

// Reset runs the reset command and then waits for the settle time.
func (e *Env) Reset(ctx context.Context) error {
	if err := e.run(ctx, "reset", e.Commands.Reset, e.Console, nil); err != nil {
		return err
	}
	return sleep(ctx, e.Settle)
}

// MachineInfo records the machine-info command's output at path and then
// waits for the settle time.
func (e *Env) MachineInfo(ctx context.Context, path string) error {
	if len(e.Commands.MachineInfo) == 0 {
		return nil
	}
	if err := e.capture(ctx, "machine_info", e.Commands.MachineInfo, path); err != nil {
		return err
	}
	return sleep(ctx, e.Settle)
}

func (e *Env) ClearKernelLog(ctx context.Context) error {
	return e.run(ctx, "dmesg_clear", e.Commands.DmesgClear, nil, nil)
}

// DumpKernelLog writes a snapshot of the kernel log to path.
func (e *Env) DumpKernelLog(ctx context.Context, path string) error {
	if len(e.Commands.DmesgDump) == 0 {
		return nil
	}
	return e.capture(ctx, "dmesg_dump", e.Commands.DmesgDump, path)
}

// capture writes the command's stdout to path. Its stderr goes to Console.
func (e *Env) capture(ctx context.Context, name string, args []string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	stderr := e.Console
	if stderr == nil {
		stderr = io.Discard
	}
	runErr := e.run(ctx, name, args, f, stderr)
	if err := f.Close(); err != nil && runErr == nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return runErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
