package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/repbench/internal/config"
	"github.com/signalnine/repbench/internal/logger"
)

var (
	cfgFile string
	verbose bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "repbench",
		Short: "Repeat a benchmark run and group identical outputs",
		Long: "repbench builds a program once, runs it repeatedly with a timeout, captures its output " +
			"and kernel log, and reports how often each distinct output occurred and how long it took.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Configure(cmd.ErrOrStderr(), verbose)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newRunCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newValidateCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(cfgFile)
}
