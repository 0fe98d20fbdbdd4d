package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/signalnine/repbench/internal/config"
	"github.com/signalnine/repbench/internal/dedup"
	"github.com/signalnine/repbench/internal/logger"
	"github.com/signalnine/repbench/internal/proc"
	"github.com/signalnine/repbench/internal/result"
	"github.com/signalnine/repbench/internal/summary"
)

// Environment is what the harness needs from the machine around a trial.
// *sysenv.Env implements it.
type Environment interface {
	Reset(ctx context.Context) error
	MachineInfo(ctx context.Context, path string) error
	ClearKernelLog(ctx context.Context) error
	DumpKernelLog(ctx context.Context, path string) error
}

// Harness runs the trials of one session, one after another.
type Harness struct {
	Trials   int
	Attempts int
	Timeout  time.Duration
	BuildCmd []string
	RunCmd   []string
	Dir      string
	Vars     []string

	Layout *result.Layout
	Env    Environment
	// Stdout receives the program's output, progress lines and the summary.
	Stdout io.Writer

	log *log.Logger
}

func New(cfg *config.Config, env Environment, vars []string, stdout io.Writer) *Harness {
	return &Harness{
		Trials:   cfg.Trials,
		Attempts: cfg.Attempts,
		Timeout:  cfg.Timeout(),
		BuildCmd: cfg.Commands.Build,
		RunCmd:   cfg.Commands.Run,
		Dir:      cfg.WorkDir,
		Vars:     vars,
		Layout:   result.NewLayout(cfg.LogDir),
		Env:      env,
		Stdout:   stdout,
	}
}

func (h *Harness) logger() *log.Logger {
	if h.log == nil {
		h.log = logger.With("runner")
	}
	return h.log
}

func (h *Harness) stdout() io.Writer {
	if h.Stdout == nil {
		return io.Discard
	}
	return h.Stdout
}

// Run executes the whole session and returns the final summary, which has
// also been written to the summary file and printed. Any error aborts the
// session before a summary is written.
func (h *Harness) Run(ctx context.Context) (*summary.Summary, error) {
	if err := h.Layout.Prepare(); err != nil {
		return nil, err
	}
	if err := h.Env.MachineInfo(ctx, h.Layout.MachineInfoPath()); err != nil {
		return nil, err
	}
	if err := h.Build(ctx); err != nil {
		return nil, err
	}
	if err := h.Env.ClearKernelLog(ctx); err != nil {
		return nil, err
	}

	sum := summary.New()
	for trial := 0; trial < h.Trials; trial++ {
		fmt.Fprintf(h.stdout(), "Running trial %d/%d...\n", trial+1, h.Trials)
		if err := h.Env.Reset(ctx); err != nil {
			return nil, err
		}
		tr, err := h.RunTrial(ctx, trial, sum.Len())
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		if err := h.record(sum, tr); err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
	}

	if err := sum.Save(h.Layout.SummaryPath()); err != nil {
		return nil, err
	}
	if _, err := sum.WriteTo(h.stdout()); err != nil {
		return nil, err
	}
	return sum, nil
}

// Build runs the build command once. Its exit status does not stop the
// session.
func (h *Harness) Build(ctx context.Context) error {
	if len(h.BuildCmd) == 0 {
		return nil
	}
	res, err := proc.Run(ctx, &proc.RunOpts{
		Args:   h.BuildCmd,
		Dir:    h.Dir,
		Env:    h.Vars,
		Output: h.stdout(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.logger().Warn("build could not run", "cmd", proc.String(h.BuildCmd), "err", err)
		return nil
	}
	if res.ExitCode != 0 {
		h.logger().Warn("build exited non-zero", "code", res.ExitCode)
	}
	return nil
}

// record classifies the trial's canonical log against the existing bucket
// representatives and folds it into the summary. A duplicate log is
// removed once counted.
func (h *Harness) record(sum *summary.Summary, tr *result.TrialResult) error {
	newLog := h.Layout.LogPath(tr.Slot)
	reps := make([]string, sum.Len())
	for i := range reps {
		reps[i] = h.Layout.LogPath(i)
	}

	idx, matched, err := dedup.Classify(newLog, reps)
	if err != nil {
		return err
	}
	elapsed, err := dedup.ElapsedTime(newLog)
	if err != nil {
		return err
	}
	slot, err := sum.Record(idx, matched, elapsed)
	if err != nil {
		return err
	}

	status := "new"
	if matched {
		status = "duplicate"
		if err := os.Remove(newLog); err != nil {
			return fmt.Errorf("removing duplicate log: %w", err)
		}
	}
	last := "no attempts"
	if n := len(tr.Outcomes); n > 0 {
		last = tr.Outcomes[n-1].String()
	}
	fmt.Fprintf(h.stdout(), "  %s -> log%d (%s, time %s)\n", last, slot, status, elapsed)
	h.logger().Debug("trial recorded", "trial", tr.Trial, "bucket", slot, "matched", matched,
		"timeouts", tr.Timeouts())
	return nil
}
