package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/repbench/internal/dedup"
	"github.com/signalnine/repbench/internal/result"
)

var (
	flagDir     string
	flagRaw     bool
	flagContext int
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <log-a> <log-b>",
		Short: "Show how two bucket logs differ",
		Long: "Compare two logs the way the harness does, ignoring lines that contain \"time:\" or \"used:\". " +
			"Arguments may be bucket numbers (0), log names (log0, log0_timeout1) or paths.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := flagDir
			if dir == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.LogDir
			}
			a, b := resolveLog(dir, args[0]), resolveLog(dir, args[1])
			d, err := dedup.Diff(a, b, flagRaw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !dedup.Changed(d) {
				fmt.Fprintf(out, "%s and %s are equivalent\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(out, "--- %s\n+++ %s\n", a, b)
			return dedup.WriteUnified(out, d, flagContext)
		},
	}
	cmd.Flags().StringVar(&flagDir, "dir", "", "log directory (default from config)")
	cmd.Flags().BoolVar(&flagRaw, "raw", false, "compare every line, including time: and used: lines")
	cmd.Flags().IntVar(&flagContext, "context", 3, "unchanged lines shown around changes; negative shows all")
	return cmd
}

// resolveLog maps a bucket number or artifact name to a path in dir.
// Anything containing a path separator is used as is.
func resolveLog(dir, arg string) string {
	if strings.ContainsRune(arg, filepath.Separator) {
		return arg
	}
	if n, err := strconv.Atoi(arg); err == nil {
		return result.NewLayout(dir).LogPath(n)
	}
	return filepath.Join(dir, arg)
}
