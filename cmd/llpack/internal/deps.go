package internal

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var depsTarget string

var depsCmd = &cobra.Command{
	Use:   "deps [project...]",
	Short: "List missing build dependencies",
	Long:  `Deps checks the build dependencies of the selected projects for the target and lists the missing ones.`,
	RunE:  runDeps,
}

func init() {
	depsCmd.Flags().StringVarP(&depsTarget, "target", "t", "", "Target format (required)")
	depsCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	defs, err := loadProjects(args)
	if err != nil {
		return err
	}
	builder, err := newBuilder(depsTarget)
	if err != nil {
		return err
	}
	missing, err := builder.MissingDependencies(context.Background(), defs)
	if err != nil {
		return err
	}
	if printMissing(cmd.OutOrStdout(), missing) {
		return fmt.Errorf("missing build dependencies")
	}
	return nil
}

// printMissing prints one line per project and reports whether any
// dependency is missing.
func printMissing(w io.Writer, missing map[string][]string) bool {
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)

	found := false
	for _, name := range names {
		deps := missing[name]
		if len(deps) == 0 {
			color.New(color.FgGreen).Fprintf(w, "%s: ok\n", name)
			continue
		}
		found = true
		color.New(color.FgRed).Fprintf(w, "%s: missing %s\n", name, strings.Join(deps, " "))
	}
	return found
}
