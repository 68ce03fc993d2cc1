// Package setuppy drives the setup.py commands of a Python source tree.
package setuppy

import (
	"context"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/pkgs/buildsys"
)

// DefaultPython is the interpreter used when none is configured.
const DefaultPython = "python"

// SetupPy runs "python setup.py <command>" inside SourceDir.
type SetupPy struct {
	SourceDir string
	Python    string

	runner  command.Runner
	env     map[string]string
	logPath string
	logged  bool
}

var _ buildsys.BuildSystem = (*SetupPy)(nil)

// New creates a setup.py helper for the tree at sourceDir.
func New(runner command.Runner, python, sourceDir string) *SetupPy {
	if python == "" {
		python = DefaultPython
	}
	return &SetupPy{
		SourceDir: sourceDir,
		Python:    python,
		runner:    runner,
		env:       map[string]string{},
	}
}

func (s *SetupPy) Env(key, value string) {
	if s.env == nil {
		s.env = map[string]string{}
	}
	s.env[key] = value
}

func (s *SetupPy) Log(path string, appending bool) {
	s.logPath = path
	s.logged = appending
}

// Configure is a no-op: setup.py has no configure step.
func (s *SetupPy) Configure(ctx context.Context, args ...string) error {
	return nil
}

// Build runs setup.py build.
func (s *SetupPy) Build(ctx context.Context, args ...string) error {
	return s.Run(ctx, append([]string{"build"}, args...)...)
}

// Install runs setup.py install, e.g. with --root and --install-data.
func (s *SetupPy) Install(ctx context.Context, args ...string) error {
	return s.Run(ctx, append([]string{"install"}, args...)...)
}

// BdistMSI builds a Windows installer into dist/.
func (s *SetupPy) BdistMSI(ctx context.Context) error {
	return s.Run(ctx, "bdist_msi")
}

// SpecFile writes dist/<setup name>.spec without building anything.
func (s *SetupPy) SpecFile(ctx context.Context) error {
	return s.Run(ctx, "bdist_rpm", "--spec-only")
}

// Run runs an arbitrary setup.py command.
func (s *SetupPy) Run(ctx context.Context, args ...string) error {
	c := &command.Cmd{
		Name:   s.Python,
		Args:   append([]string{"setup.py"}, args...),
		Dir:    s.SourceDir,
		Env:    s.env,
		Log:    s.logPath,
		Append: s.logged,
	}
	if s.logPath != "" {
		s.logged = true
	}
	return s.runner.Run(ctx, c)
}
