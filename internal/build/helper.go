// Package build turns a downloaded source tree into a distributable package.
//
// A Helper implements the packaging lifecycle for one project and one target
// format. New selects the helper from a table keyed by the project's build
// system and the target; Builder drives the lifecycle over many projects.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/config"
	"github.com/goplus/llpack/internal/env"
	"github.com/goplus/llpack/internal/project"
	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys"
)

var (
	// ErrMissingMetadata means the source or host lacks information a
	// package needs, e.g. a version or packaging files.
	ErrMissingMetadata = errors.New("missing packaging metadata")

	// ErrToolNotFound means a required build tool is not installed.
	ErrToolNotFound = errors.New("build tool not found")
)

// LogFilename is written next to the extracted source directory.
const LogFilename = "build.log"

// Target names a packaging format.
type Target string

const (
	DPKG       Target = "dpkg"
	DPKGSource Target = "dpkg-source"
	MSI        Target = "msi"
	OSC        Target = "osc"
	PKG        Target = "pkg"
	RPM        Target = "rpm"
	Source     Target = "source"
	SRPM       Target = "srpm"
)

// Helper runs the packaging lifecycle of one project for one target.
type Helper interface {
	// CheckBuildDependencies returns the dependencies that are not met.
	CheckBuildDependencies(ctx context.Context) []string

	// CheckBuildRequired reports whether the package for the current
	// version is absent from the working directory.
	CheckBuildRequired(ctx context.Context, src source.Provider) bool

	// Build produces the package in the working directory.
	Build(ctx context.Context, src source.Provider) error

	// Clean removes packages of other versions.
	Clean(ctx context.Context, src source.Provider) error
}

type constructor func(b *base) (Helper, error)

var strategies = map[buildsys.System]map[Target]constructor{
	buildsys.ConfigureMake: {
		DPKG:       newDPKG,
		DPKGSource: newDPKGSource,
		MSI:        newConfigureMakeMSI,
		OSC:        newOSC,
		PKG:        newPKG,
		RPM:        newRPM,
		Source:     newSourceBuild,
		SRPM:       newSRPM,
	},
	buildsys.SetupPy: {
		DPKG:       newDPKG,
		DPKGSource: newDPKGSource,
		MSI:        newSetupPyMSI,
		OSC:        newOSC,
		PKG:        newPKG,
		RPM:        newRPM,
		Source:     newSourceBuild,
		SRPM:       newSRPM,
	},
}

// Targets lists every target format in a stable order.
func Targets() []Target {
	return []Target{DPKG, DPKGSource, MSI, OSC, PKG, RPM, Source, SRPM}
}

// Supported reports whether a helper exists for system and target.
func Supported(system buildsys.System, target Target) bool {
	_, ok := strategies[system][target]
	return ok
}

// New returns the helper for def and target. It returns nil and no error
// when the pair is not supported, and an error when the helper cannot be
// set up on this host.
func New(def *project.Definition, target Target, toolsPath string, opts ...Option) (Helper, error) {
	ctor, ok := strategies[def.BuildSystem][target]
	if !ok {
		return nil, nil
	}
	b := &base{
		def:       def,
		toolsPath: toolsPath,
		dataPath:  env.DataDir(toolsPath),
		options:   defaultOptions(),
	}
	for _, opt := range opts {
		opt(&b.options)
	}
	if b.machine == "" {
		b.machine = env.Machine()
	}
	h, err := ctor(b)
	if err != nil {
		return nil, fmt.Errorf("%s %s helper for %s: %w", def.BuildSystem, target, def.Name, err)
	}
	return h, nil
}

type options struct {
	runner       command.Runner
	workDir      string
	machine      string
	python       string
	distribution string
	oscProject   string
	toolchain    config.Toolchain
	rpmbuildPath string
	sdksPath     string
	windowsRoot  string
	cacheDir     string

	now func() time.Time
}

func defaultOptions() options {
	return options{
		runner:       command.New(),
		workDir:      ".",
		python:       "python",
		distribution: "trusty",
		oscProject:   "home:joachimmetz:testing",
		sdksPath:     "/Applications/Xcode.app/Contents/Developer/Platforms/MacOSX.platform/Developer/SDKs",
		windowsRoot:  `C:\`,
		now:          time.Now,
	}
}

// Option configures a helper.
type Option func(*options)

// WithRunner sets the command runner.
func WithRunner(r command.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithWorkDir sets the directory packages are built in. It defaults to ".".
func WithWorkDir(dir string) Option {
	return func(o *options) {
		o.workDir = dir
	}
}

// WithMachine overrides the host machine name, e.g. "x86_64".
func WithMachine(machine string) Option {
	return func(o *options) {
		o.machine = machine
	}
}

// WithPython sets the interpreter that runs setup.py.
func WithPython(python string) Option {
	return func(o *options) {
		o.python = python
	}
}

// WithDistribution sets the target distribution of source dpkg packages.
func WithDistribution(dist string) Option {
	return func(o *options) {
		o.distribution = dist
	}
}

// WithOSCProject sets the openSUSE build service project.
func WithOSCProject(project string) Option {
	return func(o *options) {
		o.oscProject = project
	}
}

// WithToolchain sets the Visual Studio environment of MSI builds.
func WithToolchain(t config.Toolchain) Option {
	return func(o *options) {
		o.toolchain = t
	}
}

// WithRPMBuildPath sets the rpmbuild top directory. It defaults to
// ~/rpmbuild.
func WithRPMBuildPath(dir string) Option {
	return func(o *options) {
		o.rpmbuildPath = dir
	}
}

// WithSDKsPath sets the directory holding the macOS SDKs.
func WithSDKsPath(dir string) Option {
	return func(o *options) {
		o.sdksPath = dir
	}
}

// WithWindowsRoot sets the system drive root searched for Windows tools.
func WithWindowsRoot(dir string) Option {
	return func(o *options) {
		o.windowsRoot = dir
	}
}

// WithCacheDir sets the directory holding the git repositories of git
// sourced projects. It defaults to the per-user cache directory.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithConfig applies the settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.workDir = cfg.WorkDir
		o.python = cfg.Python
		o.distribution = cfg.Distribution
		o.oscProject = cfg.OSCProject
		o.toolchain = cfg.Toolchain
		o.cacheDir = cfg.CacheDir
	}
}

// base holds what every helper shares and provides the default lifecycle.
type base struct {
	def       *project.Definition
	toolsPath string
	dataPath  string
	options
}

func (b *base) CheckBuildDependencies(ctx context.Context) []string {
	return slices.Clone(b.def.BuildDependencies)
}

func (b *base) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	return true
}

// path returns name inside the working directory.
func (b *base) path(name string) string {
	return filepath.Join(b.workDir, name)
}

func (b *base) exists(name string) bool {
	_, err := os.Stat(b.path(name))
	return err == nil
}

// fetch downloads and extracts the source and resolves its version.
func (b *base) fetch(ctx context.Context, src source.Provider) (archive, dir, version string, err error) {
	archive, err = src.Download(ctx)
	if err != nil {
		log.Errorf("Download of: %s failed: %v", src.ProjectName(), err)
		return "", "", "", err
	}
	version = projectVersion(ctx, src)
	dir, err = src.Create(ctx)
	if err != nil {
		log.Errorf("Extraction of source package: %s failed: %v", archive, err)
		return "", "", "", err
	}
	return archive, dir, version, nil
}

// projectVersion returns the version of src. An unknown version is
// formatted into the package names as an empty string.
func projectVersion(ctx context.Context, src source.Provider) string {
	version := src.ProjectVersion(ctx)
	if version == "" {
		log.Warnf("Unable to determine version of: %s", src.ProjectName())
	}
	return version
}

// run runs c and logs the rendered command when it fails.
func (b *base) run(ctx context.Context, c *command.Cmd) error {
	if err := b.runner.Run(ctx, c); err != nil {
		log.Errorf("Running: %q failed.", c.String())
		return err
	}
	return nil
}

// stepFailed logs a failed build system step. err names the rendered
// command.
func stepFailed(err error) error {
	log.Errorf("Running: %v", err)
	return err
}

// buildLog is the combined output of the commands of one build: the first
// command truncates it and later ones append.
type buildLog struct {
	path string
	used bool
}

func newBuildLog(sourceDir string) *buildLog {
	return &buildLog{path: filepath.Join(filepath.Dir(sourceDir), LogFilename)}
}

// cmd attaches the log to c.
func (l *buildLog) cmd(c *command.Cmd) *command.Cmd {
	c.Log, c.Append = l.path, l.used
	l.used = true
	return c
}

// attach directs the steps of bs to the log.
func (l *buildLog) attach(bs buildsys.BuildSystem) {
	bs.Log(l.path, l.used)
	l.used = true
}
