package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalnine/repbench/internal/gitops"
	"github.com/signalnine/repbench/internal/logger"
	"github.com/signalnine/repbench/internal/report"
	"github.com/signalnine/repbench/internal/runner"
	"github.com/signalnine/repbench/internal/sysenv"
)

var (
	flagTrials  int
	flagTimeout int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build once, run every trial, and write the summary",
		Args:  cobra.NoArgs,
		RunE:  runSession,
	}
	cmd.Flags().IntVar(&flagTrials, "trials", 0, "override trial count")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "override per-attempt timeout in seconds")
	return cmd
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagTrials > 0 {
		cfg.Trials = flagTrials
	}
	if flagTimeout > 0 {
		cfg.TimeoutSeconds = flagTimeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	vars, err := cfg.Env()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Log directory: %s\n", cfg.LogDir)
	if rev, err := gitops.CurrentRevision(cfg.WorkDir); err == nil {
		fmt.Fprintf(out, "Source revision: %s\n", rev)
	} else {
		logger.Logger.Debug("work dir is not a git checkout", "dir", cfg.WorkDir, "err", err)
	}
	h := runner.New(cfg, sysenv.New(cfg, vars, out), vars, out)
	sum, err := h.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n--- Results ---")
	return report.Write(sum, "table", out)
}
