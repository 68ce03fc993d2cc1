package build

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/config"
	"github.com/goplus/llpack/internal/naming"
	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys/setuppy"
)

const (
	// pythonSuffix marks installers bound to the python version they were
	// built with.
	pythonSuffix = "-py2.7"

	zlibURL = "https://zlib.net/fossils/zlib-1.3.1.tar.gz"
)

// msiPrebuild runs the msi_prebuild script of the project inside dir.
func (b *base) msiPrebuild(ctx context.Context, dir string, l *buildLog) error {
	script := b.def.MSIPrebuild
	if script == "" {
		return nil
	}
	path, err := filepath.Abs(filepath.Join(b.dataPath, "msi_prebuild", script))
	if err != nil {
		return err
	}
	var c *command.Cmd
	switch filepath.Ext(script) {
	case ".ps1":
		c = &command.Cmd{Name: "powershell.exe", Args: []string{path}, Dir: dir}
	case ".py":
		c = &command.Cmd{Name: b.python, Args: []string{path}, Dir: dir}
	default:
		return fmt.Errorf("unsupported msi_prebuild script %q", script)
	}
	return b.run(ctx, l.cmd(c))
}

// moveMSI moves the single installer matching pattern into the working
// directory.
func (b *base) moveMSI(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) != 1 {
		log.Errorf("Unable to find MSI file: %s.", pattern)
		return fmt.Errorf("%w: expected one MSI file matching %s, found %d", ErrMissingMetadata, pattern, len(matches))
	}
	_, err = moveInto(matches[0], b.workDir)
	return err
}

// configureMakeMSI builds a Windows installer of the python bindings of a
// libyal style project with Visual Studio.
type configureMakeMSI struct {
	*base
	arch      string
	vs        config.VisualStudio
	converter string
}

func newConfigureMakeMSI(b *base) (Helper, error) {
	vs, ok := b.toolchain.VisualStudio()
	if !ok {
		return nil, fmt.Errorf("%w: unable to determine Visual Studio version", ErrToolNotFound)
	}
	m := &configureMakeMSI{base: b, arch: naming.MSIArch(b.machine), vs: vs}
	if vs.Version != "2008" {
		m.converter = filepath.Join(b.toolsPath, "tools", "msvscpp-convert.py")
		if _, err := os.Stat(m.converter); err != nil {
			return nil, fmt.Errorf("%w: unable to find msvscpp-convert.py", ErrToolNotFound)
		}
	}
	return m, nil
}

func (m *configureMakeMSI) filename(ctx context.Context, src source.Provider) string {
	return naming.MSIFilename(src.ProjectName()+"-python", naming.StripEpoch(src.ProjectVersion(ctx))+".1", m.arch, pythonSuffix)
}

// CheckBuildDependencies sets up the dependencies Visual Studio builds
// take from sibling source directories. libcrypto is provided by Windows.
func (m *configureMakeMSI) CheckBuildDependencies(ctx context.Context) []string {
	var missing []string
	for _, dep := range m.def.BuildDependencies {
		switch dep {
		case "zlib":
			if err := m.setupZlib(ctx); err != nil {
				log.Warnf("Unable to set up zlib: %v", err)
			}
		case "fuse", "zeromq":
			log.Warnf("Setting up %s is not supported, provide it next to the source directory", dep)
		case "libcrypto":
		default:
			missing = append(missing, dep)
		}
	}
	return missing
}

// setupZlib provides the zlib sources in <workDir>/zlib.
func (m *configureMakeMSI) setupZlib(ctx context.Context) error {
	target := m.path("zlib")
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	src := source.NewArchive("zlib", zlibURL, m.workDir)
	if _, err := src.Download(ctx); err != nil {
		log.Errorf("Download of: zlib failed: %v", err)
		return err
	}
	dir, err := src.Create(ctx)
	if err != nil {
		return err
	}
	return os.Rename(dir, target)
}

func (m *configureMakeMSI) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	return !m.exists(m.filename(ctx, src))
}

func (m *configureMakeMSI) Build(ctx context.Context, src source.Provider) error {
	archive, dir, _, err := m.fetch(ctx, src)
	if err != nil {
		return err
	}
	log.Infof("Building: %s with Visual Studio %s", archive, m.vs.Version)

	l := newBuildLog(dir)
	if err := m.applyPatches(ctx, dir, l, true); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, "setup.py")); err == nil {
		return m.buildSetupPy(ctx, dir, l)
	}
	return m.buildMSBuild(ctx, src, dir, l)
}

// buildSetupPy runs bdist_msi in dir and moves the installer into the
// working directory. An existing dist/ is not rebuilt; it must then hold
// the installer.
func (m *configureMakeMSI) buildSetupPy(ctx context.Context, dir string, l *buildLog) error {
	dist := filepath.Join(dir, "dist")
	if _, err := os.Stat(dist); err == nil {
		log.Warnf("Distribution directory already exists: %s", dist)
	} else {
		sp := setuppy.New(m.runner, m.python, dir)
		sp.Env("VS90COMNTOOLS", m.vs.Tools)
		l.attach(sp)
		if err := sp.BdistMSI(ctx); err != nil {
			return stepFailed(err)
		}
	}
	return m.moveMSI(filepath.Join(dist, "*.msi"))
}

func (m *configureMakeMSI) msbuild() (string, error) {
	var framework string
	switch m.vs.Version {
	case "2008":
		framework = "v3.5"
	case "2010", "2012", "2013", "2015", "2017":
		// MSBuild of .NET 3.5 does not read vs2010 solution files.
		framework = "v4.0.30319"
	}
	path := filepath.Join(m.windowsRoot, "Windows", "Microsoft.NET", "Framework", framework, "MSBuild.exe")
	if _, err := os.Stat(path); framework == "" || err != nil {
		log.Errorf("Unable to find MSBuild.exe")
		return "", fmt.Errorf("%w: MSBuild.exe", ErrToolNotFound)
	}
	return path, nil
}

// platform returns the MSBuild platform, defaulting to Win32.
func (m *configureMakeMSI) platform() (string, error) {
	platform := m.toolchain.MSBuildPlatform()
	if platform == "" || platform == "x86" {
		platform = "Win32"
	}
	if platform != "Win32" && platform != "x64" {
		return "", fmt.Errorf("unsupported build platform: %s", platform)
	}
	if m.vs.Version == "2008" && platform == "x64" {
		return "", errors.New("unsupported 64-bit build platform for vs2008")
	}
	return platform, nil
}

func (m *configureMakeMSI) buildMSBuild(ctx context.Context, src source.Provider, dir string, l *buildLog) error {
	msbuild, err := m.msbuild()
	if err != nil {
		return err
	}
	parent := filepath.Dir(dir)
	for _, dep := range []string{"zlib", "dokan"} {
		project := filepath.Join(dir, "msvscpp", dep, dep+".vcproj")
		if _, err := os.Stat(project); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(parent, dep)); err != nil {
			log.Errorf("Missing dependency: %s.", dep)
			return fmt.Errorf("%w: missing dependency %s", ErrMissingMetadata, dep)
		}
	}

	if m.converter != "" {
		if err := m.convertSolution(ctx, dir, l); err != nil {
			return err
		}
	}
	if err := setWinver(dir, m.winver()); err != nil {
		return err
	}
	platform, err := m.platform()
	if err != nil {
		return err
	}
	solution, err := m.solution(dir)
	if err != nil {
		return err
	}
	c := &command.Cmd{
		Name: msbuild,
		Args: []string{"/p:Configuration=Release", "/p:Platform=" + platform, "/noconsolelogger", "/fileLogger", "/maxcpucount", solution},
		Dir:  dir,
	}
	if err := m.run(ctx, l.cmd(c)); err != nil {
		return err
	}

	name := src.ProjectName()
	if len(name) > 3 {
		name = name[3:]
	}
	return m.buildSetupPy(ctx, filepath.Join(dir, "py"+name), l)
}

func (m *configureMakeMSI) solution(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "msvscpp", "*.sln"))
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		log.Errorf("Unable to find Visual Studio solution file")
		return "", fmt.Errorf("%w: no Visual Studio solution file in %s", ErrMissingMetadata, dir)
	}
	return matches[0], nil
}

// convertSolution converts the vs2008 solution to the detected version.
// setup.py expects the solution in msvscpp/, so the vs2008 files move to
// vs2008/.
func (m *configureMakeMSI) convertSolution(ctx context.Context, dir string, l *buildLog) error {
	if _, err := os.Stat(filepath.Join(dir, "vs2008")); err == nil {
		return nil
	}
	log.Infof("Converting Visual Studio solution and project files.")
	solution, err := m.solution(dir)
	if err != nil {
		return err
	}
	converter, err := filepath.Abs(m.converter)
	if err != nil {
		return err
	}
	c := &command.Cmd{Name: m.python, Args: []string{converter, "--to", m.vs.Version, solution}, Dir: dir}
	if err := m.run(ctx, l.cmd(c)); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(dir, "msvscpp"), filepath.Join(dir, "vs2008")); err != nil {
		return err
	}
	return os.Rename(filepath.Join(dir, "vs"+m.vs.Version), filepath.Join(dir, "msvscpp"))
}

// winver is 0x0501 (Windows XP) for vs2008 builds and 0x0600 (Windows
// Vista) otherwise, unless the project overrides it.
func (m *configureMakeMSI) winver() string {
	switch {
	case m.def.MSIWinver != "":
		return m.def.MSIWinver
	case m.vs.Version == "2008":
		return "0x0501"
	}
	return "0x0600"
}

// setWinver defines WINVER right after the "#define _CONFIG_" guard of
// common/config_winapi.h, or of common/config_msc.h when the former is
// absent.
func setWinver(dir, winver string) error {
	path := filepath.Join(dir, "common", "config_winapi.h")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, "common", "config_msc.h")
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("Missing Windows configuration header in: %s", dir)
		return nil
	} else if err != nil {
		return err
	}

	define := "#define WINVER " + winver
	var out []string
	inserted, guard := false, false
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if guard && !inserted {
			if !strings.HasPrefix(line, define) {
				out = append(out, define, "")
			}
			inserted = true
		} else if !inserted && strings.HasPrefix(line, "#define _CONFIG_") {
			guard = true
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0o644)
}

// Clean also removes the installers of the bindings published as
// py<name without "lib">, e.g. pyewf for libewf.
func (m *configureMakeMSI) Clean(ctx context.Context, src source.Provider) error {
	name := src.ProjectName()
	errs := []error{sweep(m.workDir, name+"-python-*.1."+m.arch+pythonSuffix+".msi", exactly(m.filename(ctx, src)))}
	if len(name) > 3 {
		py := "py" + name[3:]
		version := naming.StripEpoch(src.ProjectVersion(ctx))
		keep := exactly(naming.MSIFilename(py, version+".1", m.arch, pythonSuffix))
		errs = append(errs, sweep(m.workDir, py+"-*.1."+m.arch+pythonSuffix+".msi", keep))
	}
	return errors.Join(errs...)
}

// setupPyMSI builds a Windows installer with setup.py bdist_msi.
type setupPyMSI struct {
	*base
	arch string
}

func newSetupPyMSI(b *base) (Helper, error) {
	return &setupPyMSI{base: b, arch: naming.MSIArch(b.machine)}, nil
}

func (m *setupPyMSI) name(src source.Provider) string {
	if m.def.SetupName != "" {
		return m.def.SetupName
	}
	return src.ProjectName()
}

func (m *setupPyMSI) suffix() string {
	if m.def.ArchitectureDependent && !m.def.MSINoPythonSuffix {
		return pythonSuffix
	}
	return ""
}

func (m *setupPyMSI) filename(ctx context.Context, src source.Provider) string {
	version := naming.MSIVersion(naming.StripEpoch(src.ProjectVersion(ctx)) + m.def.MSIVersionSuffix)
	return naming.MSIFilename(m.name(src), version, m.arch, m.suffix())
}

// CheckBuildDependencies ignores sqlite, which python ships on Windows.
func (m *setupPyMSI) CheckBuildDependencies(ctx context.Context) []string {
	return slices.DeleteFunc(slices.Clone(m.def.BuildDependencies), func(dep string) bool {
		return dep == "sqlite"
	})
}

func (m *setupPyMSI) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	return !m.exists(m.filename(ctx, src))
}

func (m *setupPyMSI) Build(ctx context.Context, src source.Provider) error {
	archive, dir, _, err := m.fetch(ctx, src)
	if err != nil {
		return err
	}
	log.Infof("Building msi of: %s", archive)

	l := newBuildLog(dir)
	if err := m.applyPatches(ctx, dir, l, true); err != nil {
		return err
	}
	if err := m.msiPrebuild(ctx, dir, l); err != nil {
		return err
	}
	sp := setuppy.New(m.runner, m.python, dir)
	l.attach(sp)
	if err := sp.BdistMSI(ctx); err != nil {
		return stepFailed(err)
	}
	return m.moveMSI(filepath.Join(dir, "dist", m.name(src)+"-*.msi"))
}

func (m *setupPyMSI) Clean(ctx context.Context, src source.Provider) error {
	var errs []error
	for _, name := range []string{"build", "dist"} {
		errs = append(errs, removeIfExists(m.path(name)))
	}
	keep := exactly(m.filename(ctx, src))
	errs = append(errs, sweep(m.workDir, m.name(src)+"-*."+m.arch+m.suffix()+".msi", keep))
	return errors.Join(errs...)
}
