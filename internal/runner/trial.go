package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/signalnine/repbench/internal/proc"
	"github.com/signalnine/repbench/internal/result"
)

// TimeoutMessage is the line appended to a log whose run was killed.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Terminated by script (TIMEOUT: %s sec)",
		strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64))
}

// RunTrial runs the run command until it completes or every attempt has
// timed out. Output goes to log{slot}; a timed-out attempt's artifacts are
// moved aside to their _timeout{attempt} names, so log{slot} exists
// afterwards only if the trial completed.
func (h *Harness) RunTrial(ctx context.Context, trial, slot int) (*result.TrialResult, error) {
	tr := &result.TrialResult{Trial: trial, Slot: slot}
	if err := h.Env.ClearKernelLog(ctx); err != nil {
		return nil, err
	}

	logPath := h.Layout.LogPath(slot)
	for attempt := 0; attempt < h.Attempts; attempt++ {
		res, err := h.runOnce(ctx, logPath)
		if err != nil {
			return nil, err
		}
		if !res.TimedOut {
			h.logger().Debug("run finished", "trial", trial, "attempt", attempt,
				"code", res.ExitCode, "duration", res.Duration)
			dmesgPath := h.Layout.DmesgPath(slot)
			if err := h.Env.DumpKernelLog(ctx, dmesgPath); err != nil {
				return nil, err
			}
			tr.Outcomes = append(tr.Outcomes, result.Success{
				Attempt:   attempt,
				ExitCode:  res.ExitCode,
				LogPath:   logPath,
				DmesgPath: dmesgPath,
			})
			return tr, nil
		}

		h.logger().Warn("run timed out", "trial", trial, "attempt", attempt, "timeout", h.Timeout)
		out, err := h.handleTimeout(ctx, slot, attempt)
		if err != nil {
			return nil, err
		}
		tr.Outcomes = append(tr.Outcomes, out)
	}
	return tr, nil
}

func (h *Harness) runOnce(ctx context.Context, logPath string) (*proc.RunResult, error) {
	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating log: %w", err)
	}
	res, runErr := proc.Run(ctx, &proc.RunOpts{
		Args:    h.RunCmd,
		Dir:     h.Dir,
		Env:     h.Vars,
		Timeout: h.Timeout,
		Output:  io.MultiWriter(f, h.stdout()),
	})
	if err := f.Close(); err != nil && runErr == nil {
		return nil, fmt.Errorf("closing log: %w", err)
	}
	if runErr != nil {
		return nil, fmt.Errorf("run command: %w", runErr)
	}
	return res, nil
}

// handleTimeout resets the environment, marks the partial log, and moves
// the attempt's artifacts out of the canonical paths.
func (h *Harness) handleTimeout(ctx context.Context, slot, attempt int) (result.TimedOut, error) {
	out := result.TimedOut{
		Attempt:   attempt,
		LogPath:   h.Layout.TimeoutLogPath(slot, attempt),
		DmesgPath: h.Layout.TimeoutDmesgPath(slot, attempt),
	}
	if err := h.Env.Reset(ctx); err != nil {
		return out, err
	}

	msg := TimeoutMessage(h.Timeout)
	logPath := h.Layout.LogPath(slot)
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return out, fmt.Errorf("opening log: %w", err)
	}
	_, err = fmt.Fprintln(f, msg)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return out, fmt.Errorf("appending timeout message: %w", err)
	}
	fmt.Fprintln(h.stdout(), msg)

	if err := os.Rename(logPath, out.LogPath); err != nil {
		return out, fmt.Errorf("moving timed-out log: %w", err)
	}
	if err := h.Env.DumpKernelLog(ctx, out.DmesgPath); err != nil {
		return out, err
	}
	if err := h.Env.ClearKernelLog(ctx); err != nil {
		return out, err
	}
	return out, nil
}
