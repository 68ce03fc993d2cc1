package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goplus/llpack/internal/build"
)

var (
	buildTarget       string
	buildDistribution string
	buildOSCProject   string
)

var buildCmd = &cobra.Command{
	Use:   "build [project...]",
	Short: "Build packages of projects",
	Long: `Build downloads every selected project and builds its package for the target
unless the package of the current version already exists. Packages of older
versions are removed afterwards.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildTarget, "target", "t", "", "Target format (required)")
	buildCmd.Flags().StringVar(&buildDistribution, "distribution", "", "Distribution of dpkg-source packages")
	buildCmd.Flags().StringVar(&buildOSCProject, "osc-project", "", "openSUSE build service project")
	buildCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildDistribution != "" {
		cfg.Distribution = buildDistribution
	}
	if buildOSCProject != "" {
		cfg.OSCProject = buildOSCProject
	}
	defs, err := loadProjects(args)
	if err != nil {
		return err
	}
	builder, err := newBuilder(buildTarget)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := builder.Build(ctx, defs)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return err
	}
	if !summary.OK() {
		return fmt.Errorf("failed to build: %s", strings.Join(summary.Failed, ", "))
	}
	return nil
}

func printSummary(w io.Writer, s *build.Summary) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	for _, line := range []struct {
		c     *color.Color
		label string
		names []string
	}{
		{green, "Built", s.Built},
		{yellow, "Skipped", s.Skipped},
		{red, "Failed", s.Failed},
	} {
		if len(line.names) == 0 {
			continue
		}
		line.c.Fprintf(w, "%-8s", line.label+":")
		fmt.Fprintf(w, " %s\n", strings.Join(line.names, ", "))
	}
}
