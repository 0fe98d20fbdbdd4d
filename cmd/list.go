package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/repbench/internal/result"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [log-dir]",
		Short: "List the artifacts of a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := logDir(args)
			if err != nil {
				return err
			}
			arts, err := result.NewLayout(dir).List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tSLOT\tATTEMPT\tSIZE")
			for _, a := range arts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", a.Name, a.Kind, orDash(a.Slot), orDash(a.Attempt), a.Size)
			}
			return tw.Flush()
		},
	}
}

func orDash(n int) string {
	if n < 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
