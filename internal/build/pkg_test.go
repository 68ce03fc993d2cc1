package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/command/commandtest"
	"github.com/goplus/llpack/internal/project"
	"github.com/goplus/llpack/pkgs/buildsys"
)

func TestPKGBuildConfigureMake(t *testing.T) {
	def := &project.Definition{
		Name:                "libexample",
		BuildSystem:         buildsys.ConfigureMake,
		ConfigureOptions:    "--enable-python",
		PKGConfigureOptions: "--disable-python",
	}
	fake := &commandtest.Fake{}
	h, work := newTestHelper(t, def, PKG, fake)
	sdk := filepath.Join(work, "SDKs", "MacOSX10.9.sdk")
	require.NoError(t, os.MkdirAll(sdk, 0o755))
	fake.OnRun = func(c *command.Cmd) error {
		if c.Name == "hdiutil" {
			return touch(work, "libexample-20240101.dmg")
		}
		return nil
	}

	ctx := context.Background()
	src := newMockSource(work, "libexample", "20240101")
	src.files = map[string]string{"README": "readme", "licenses/LICENSE.zlib": "zlib", "NEWS.txt": "news"}
	require.True(t, h.CheckBuildRequired(ctx, src))
	require.NoError(t, h.Build(ctx, src))

	dir := filepath.Join(work, "libexample-20240101")
	root := filepath.Join(dir, "tmp")
	assert.Equal(t, []string{
		"./configure --prefix=/usr/local --disable-dependency-tracking --disable-python",
		"make",
		"make install DESTDIR=" + root,
		"/usr/bin/pkgbuild --root " + root + "/ --identifier com.example.libexample --version 20240101 --ownership recommended libexample-20240101.pkg",
		"hdiutil create libexample-20240101.dmg -srcfolder libexample-20240101.pkg -fs HFS+",
	}, fake.Commands())
	assert.Equal(t, "-isysroot "+sdk, fake.Calls[0].Env["CFLAGS"])
	assert.Equal(t, "-Wl,-syslibroot,"+sdk, fake.Calls[0].Env["LDFLAGS"])
	assert.Equal(t, work, fake.Calls[3].Dir)

	docDir := filepath.Join(root, "usr", "local", "share", "doc", "libexample")
	for _, f := range []string{"README", "NEWS.txt", "LICENSE.zlib"} {
		assert.True(t, exists(filepath.Join(docDir, f)), f)
	}
	assert.False(t, h.CheckBuildRequired(ctx, src))
}

func TestPKGBuildSetupPy(t *testing.T) {
	def := &project.Definition{Name: "example", BuildSystem: buildsys.SetupPy}
	fake := &commandtest.Fake{}
	h, work := newTestHelper(t, def, PKG, fake)
	fake.OnRun = func(c *command.Cmd) error {
		if len(c.Args) > 2 && c.Args[1] == "install" {
			root := strings.TrimPrefix(c.Args[2], "--root=")
			return os.MkdirAll(filepath.Join(root, "Library", "Python", "example-1.0.egg-info"), 0o755)
		}
		return nil
	}

	src := newMockSource(work, "example", "1.0")
	src.files = map[string]string{"LICENSE": "license"}
	require.NoError(t, h.Build(context.Background(), src))

	root := filepath.Join(work, "example-1.0", "tmp")
	cmds := fake.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, "python setup.py build", cmds[0])
	assert.Equal(t, "python setup.py install --root="+root+" --install-data=/usr/local", cmds[1])
	assert.True(t, strings.HasPrefix(cmds[2], "/usr/bin/pkgbuild "))
	assert.True(t, exists(filepath.Join(root, "Library", "Python", "example-1.0.egg-info", "LICENSE")))
}

func TestPKGExistingPackage(t *testing.T) {
	def := &project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake}
	fake := &commandtest.Fake{}
	h, work := newTestHelper(t, def, PKG, fake)
	require.NoError(t, touch(work, "libexample-20240101.pkg"))

	require.NoError(t, h.Build(context.Background(), newMockSource(work, "libexample", "20240101")))
	assert.Equal(t, []string{"hdiutil create libexample-20240101.dmg -srcfolder libexample-20240101.pkg -fs HFS+"}, fake.Commands())
}

func TestPKGEpochVersion(t *testing.T) {
	def := &project.Definition{Name: "example", BuildSystem: buildsys.SetupPy}
	h, work := newTestHelper(t, def, PKG, &commandtest.Fake{})
	require.NoError(t, touch(work, "example-2.0.dmg", "example-2.0.pkg", "example-1.0.dmg"))

	ctx := context.Background()
	src := newMockSource(work, "example", "1!2.0")
	assert.False(t, h.CheckBuildRequired(ctx, src))
	require.NoError(t, h.Clean(ctx, src))
	assert.True(t, exists(filepath.Join(work, "example-2.0.dmg")))
	assert.True(t, exists(filepath.Join(work, "example-2.0.pkg")))
	assert.False(t, exists(filepath.Join(work, "example-1.0.dmg")))
}

func TestPKGClean(t *testing.T) {
	def := &project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake}
	h, work := newTestHelper(t, def, PKG, &commandtest.Fake{})
	require.NoError(t, touch(work,
		"libexample-20240101.dmg", "libexample-20240101.pkg",
		"libexample-20230101.dmg", "libexample-20230101.pkg",
	))

	require.NoError(t, h.Clean(context.Background(), newMockSource(work, "libexample", "20240101")))
	assert.True(t, exists(filepath.Join(work, "libexample-20240101.dmg")))
	assert.True(t, exists(filepath.Join(work, "libexample-20240101.pkg")))
	assert.False(t, exists(filepath.Join(work, "libexample-20230101.dmg")))
	assert.False(t, exists(filepath.Join(work, "libexample-20230101.pkg")))
}
