package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/llpack/internal/command/commandtest"
	"github.com/goplus/llpack/internal/config"
	"github.com/goplus/llpack/internal/project"
	"github.com/goplus/llpack/pkgs/buildsys"
)

// testOptions returns helper options that keep every command and file
// inside workDir.
func testOptions(workDir string, fake *commandtest.Fake) []Option {
	return []Option{
		WithRunner(fake),
		WithWorkDir(workDir),
		WithMachine("x86_64"),
		WithRPMBuildPath(filepath.Join(workDir, "rpmbuild")),
		WithSDKsPath(filepath.Join(workDir, "SDKs")),
		WithWindowsRoot(filepath.Join(workDir, "C")),
		WithToolchain(config.Toolchain{VS90COMNTOOLS: `C:\vs2008\Tools`}),
	}
}

func TestNewStrategyTable(t *testing.T) {
	want := map[Target]string{
		DPKG:       "*build.dpkg",
		DPKGSource: "*build.dpkg",
		OSC:        "*build.osc",
		PKG:        "*build.pkg",
		RPM:        "*build.rpm",
		Source:     "*build.sourceBuild",
		SRPM:       "*build.rpm",
	}
	msi := map[buildsys.System]string{
		buildsys.ConfigureMake: "*build.configureMakeMSI",
		buildsys.SetupPy:       "*build.setupPyMSI",
	}

	dir := t.TempDir()
	for _, system := range buildsys.Systems {
		for _, target := range Targets() {
			t.Run(fmt.Sprintf("%s/%s", system, target), func(t *testing.T) {
				def := &project.Definition{Name: "libexample", BuildSystem: system}
				h, err := New(def, target, dir, testOptions(dir, &commandtest.Fake{})...)
				require.NoError(t, err)
				require.NotNil(t, h)
				typ := want[target]
				if target == MSI {
					typ = msi[system]
				}
				assert.Equal(t, typ, fmt.Sprintf("%T", h))
				assert.True(t, Supported(system, target))
			})
		}
	}
}

func TestNewUnsupported(t *testing.T) {
	def := &project.Definition{Name: "libexample", BuildSystem: "cmake"}
	h, err := New(def, DPKG, t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, h)
	assert.False(t, Supported("cmake", DPKG))

	def.BuildSystem = buildsys.ConfigureMake
	h, err = New(def, Target("flatpak"), t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, h)
}

func TestNewMSIWithoutVisualStudio(t *testing.T) {
	dir := t.TempDir()
	def := &project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake}
	_, err := New(def, MSI, dir, WithRunner(&commandtest.Fake{}), WithWorkDir(dir))
	assert.ErrorIs(t, err, ErrToolNotFound)

	// Newer Visual Studio versions need the solution converter.
	_, err = New(def, MSI, dir, WithWorkDir(dir), WithToolchain(config.Toolchain{VS140COMNTOOLS: `C:\vs2015`}))
	assert.ErrorIs(t, err, ErrToolNotFound)

	require.NoError(t, touch(dir, "tools/msvscpp-convert.py"))
	h, err := New(def, MSI, dir, WithWorkDir(dir), WithToolchain(config.Toolchain{VS140COMNTOOLS: `C:\vs2015`}))
	require.NoError(t, err)
	assert.Equal(t, "2015", h.(*configureMakeMSI).vs.Version)
}

func TestWithConfig(t *testing.T) {
	cfg := &config.Config{
		WorkDir:      "/srv/build",
		Python:       "python3",
		Distribution: "xenial",
		OSCProject:   "home:example",
		CacheDir:     "/var/cache/llpack",
	}
	def := &project.Definition{Name: "example", BuildSystem: buildsys.SetupPy}
	h, err := New(def, DPKGSource, "/opt/llpack", WithConfig(cfg), WithMachine("i686"))
	require.NoError(t, err)

	d := h.(*dpkg)
	assert.Equal(t, "/srv/build", d.workDir)
	assert.Equal(t, "python3", d.python)
	assert.Equal(t, "xenial", d.distribution)
	assert.Equal(t, "home:example", d.oscProject)
	assert.Equal(t, "/var/cache/llpack", d.cacheDir)
	assert.Equal(t, filepath.Join("/opt/llpack", "data"), d.dataPath)
}

func TestFetchMissingVersion(t *testing.T) {
	dir := t.TempDir()
	def := &project.Definition{Name: "example", BuildSystem: buildsys.ConfigureMake}
	h, err := New(def, Source, dir, testOptions(dir, &commandtest.Fake{})...)
	require.NoError(t, err)

	src := newMockSource(dir, "example", "")
	_, srcDir, version, err := h.(*sourceBuild).fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "", version)
	assert.Equal(t, filepath.Join(dir, "example-"), srcDir)

	src = newMockSource(dir, "example", "1.0")
	src.downloadErr = errors.New("connection refused")
	_, _, _, err = h.(*sourceBuild).fetch(context.Background(), src)
	assert.EqualError(t, err, "connection refused")
}

func TestBuildLog(t *testing.T) {
	dir := t.TempDir()
	fake := &commandtest.Fake{}
	l := newBuildLog(filepath.Join(dir, "example-1.0"))
	assert.Equal(t, filepath.Join(dir, LogFilename), l.path)

	ctx := context.Background()
	require.NoError(t, fake.Run(ctx, l.cmd(newCmd("first"))))
	require.NoError(t, fake.Run(ctx, l.cmd(newCmd("second"))))
	assert.False(t, fake.Calls[0].Append)
	assert.True(t, fake.Calls[1].Append)

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	assert.Equal(t, "$ first\n$ second\n", string(data))
}
