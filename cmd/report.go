package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/repbench/internal/report"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [log-dir]",
		Short: "Render the summary of a finished session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := logDir(args)
			if err != nil {
				return err
			}
			return report.Generate(dir, flagFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown)")
	return cmd
}

// logDir returns the directory named in args, or the configured one.
func logDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.LogDir, nil
}
