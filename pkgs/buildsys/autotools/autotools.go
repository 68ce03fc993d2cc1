package autotools

import (
	"context"
	"path/filepath"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/pkgs/buildsys"
)

// AutoTools runs the configure, make and make install steps of an Autotools
// source tree. Every step runs inside SourceDir.
type AutoTools struct {
	SourceDir string

	runner  command.Runner
	env     map[string]string
	logPath string
	logged  bool
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New creates an AutoTools helper for the tree at sourceDir.
func New(runner command.Runner, sourceDir string) *AutoTools {
	return &AutoTools{
		SourceDir: sourceDir,
		runner:    runner,
		env:       map[string]string{},
	}
}

func (a *AutoTools) Env(key, value string) {
	if a.env == nil {
		a.env = map[string]string{}
	}
	a.env[key] = value
}

func (a *AutoTools) Log(path string, appending bool) {
	a.logPath = path
	a.logged = appending
}

// Configure runs ./configure with args.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	return a.run(ctx, "./configure", args)
}

// Build runs make, or the provided command line.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return a.run(ctx, "make", nil)
	}
	return a.run(ctx, args[0], args[1:])
}

// Install runs make install with args appended, e.g. DESTDIR=/tmp/root.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	return a.run(ctx, "make", append([]string{"install"}, args...))
}

// DestDir returns the staging root below SourceDir that Install populates
// when called with DESTDIR=DestDir().
func (a *AutoTools) DestDir() string {
	abs, err := filepath.Abs(a.SourceDir)
	if err != nil {
		abs = a.SourceDir
	}
	return filepath.Join(abs, "tmp")
}

func (a *AutoTools) run(ctx context.Context, name string, args []string) error {
	c := &command.Cmd{
		Name:   name,
		Args:   args,
		Dir:    a.SourceDir,
		Env:    a.env,
		Log:    a.logPath,
		Append: a.logged,
	}
	if a.logPath != "" {
		a.logged = true
	}
	return a.runner.Run(ctx, c)
}
