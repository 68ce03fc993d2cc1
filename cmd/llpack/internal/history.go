package internal

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goplus/llpack/internal/build"
)

var historyCmd = &cobra.Command{
	Use:   "history [project]",
	Short: "Show the successful builds in the working directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := build.LoadHistory(cfg.WorkDir)
		if err != nil {
			return fmt.Errorf("failed to load build history: %w", err)
		}
		var project string
		if len(args) == 1 {
			project = args[0]
		}
		return printHistory(cmd.OutOrStdout(), h, project)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

// printHistory lists the entries of h, newest first, optionally limited to
// one project.
func printHistory(w io.Writer, h *build.History, project string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tVERSION\tTARGET\tBUILT")
	for i := len(h.Entries) - 1; i >= 0; i-- {
		e := h.Entries[i]
		if project != "" && e.Project != project {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Project, e.Version, e.Target, e.BuildTime.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
