package internal

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/llpack/internal/build"
	"github.com/goplus/llpack/pkgs/buildsys"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List target formats per build system",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTargets(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

func printTargets(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILD SYSTEM\tTARGETS")
	for _, system := range buildsys.Systems {
		var targets []string
		for _, t := range build.Targets() {
			if build.Supported(system, t) {
				targets = append(targets, string(t))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", system, strings.Join(targets, " "))
	}
	return tw.Flush()
}
