package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llpack/internal/build"
	"github.com/goplus/llpack/internal/config"
	"github.com/goplus/llpack/internal/project"
)

// cfg is parsed from the environment before any command runs. Flags that
// are set explicitly override it.
var cfg *config.Config

var (
	flagProjects  string
	flagWorkDir   string
	flagToolsPath string
	flagLogLevel  string
	flagPython    string
)

var rootCmd = &cobra.Command{
	Use:   "llpack",
	Short: "llpack packages upstream projects",
	Long: `llpack downloads upstream projects and turns them into distributable packages:
dpkg, dpkg-source, msi, osc, pkg, rpm, srpm or a plain source build.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagProjects, "projects", "", "Project definitions file (.yaml, .json or .hcl)")
	flags.StringVar(&flagWorkDir, "work-dir", "", "Directory receiving sources and packages")
	flags.StringVar(&flagToolsPath, "tools-path", "", "Installation directory holding data/")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&flagPython, "python", "", "Python interpreter running setup.py")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Parse(os.Environ())
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{flagProjects, &c.Projects},
		{flagWorkDir, &c.WorkDir},
		{flagToolsPath, &c.ToolsPath},
		{flagLogLevel, &c.LogLevel},
		{flagPython, &c.Python},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	level, err := config.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetOutputLevel(level)
	cfg = c
	return nil
}

// loadProjects loads the definitions file and selects the projects named in
// args, or every project when args is empty.
func loadProjects(args []string) ([]*project.Definition, error) {
	defs, err := project.Load(cfg.Projects)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	return project.Select(defs, args)
}

// parseTarget validates a target name.
func parseTarget(s string) (build.Target, error) {
	for _, t := range build.Targets() {
		if string(t) == s {
			return t, nil
		}
	}
	names := make([]string, 0, len(build.Targets()))
	for _, t := range build.Targets() {
		names = append(names, string(t))
	}
	return "", fmt.Errorf("unknown target %q, want one of: %s", s, strings.Join(names, ", "))
}

// newBuilder returns a builder for target configured from cfg.
func newBuilder(target string) (*build.Builder, error) {
	t, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	return build.NewBuilder(t, cfg.ToolsPath, build.WithConfig(cfg)), nil
}
