package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/command/commandtest"
	"github.com/goplus/llpack/internal/project"
	"github.com/goplus/llpack/pkgs/buildsys"
)

const bdistSpec = `%define name example
%define version 20240101
%define unmangled_version 20240101
%define release 1

Summary: Example
Name: %{name}
Version: %{version}
Release: %{release}
Source0: %{name}-%{unmangled_version}.tar.gz
License: Apache

%description
Example project.

%prep
%setup -n %{name}-%{unmangled_version}

%files -f INSTALLED_FILES
%defattr(-,root,root)
`

// writeSpecOnBdist makes the fake create dist/<name>.spec when setup.py
// bdist_rpm runs.
func writeSpecOnBdist(name string, next func(c *command.Cmd) error) func(c *command.Cmd) error {
	return func(c *command.Cmd) error {
		if len(c.Args) > 1 && c.Args[0] == "setup.py" && c.Args[1] == "bdist_rpm" {
			if err := os.MkdirAll(filepath.Join(c.Dir, "dist"), 0o755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(c.Dir, "dist", name+".spec"), []byte(bdistSpec), 0o644)
		}
		if next != nil {
			return next(c)
		}
		return nil
	}
}

func TestRPMBuildConfigureMake(t *testing.T) {
	def := &project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake, Patches: []string{"fix.patch"}}
	fake := &commandtest.Fake{}
	h, work := newTestHelper(t, def, RPM, fake)
	addPatch(t, h, "fix.patch")
	top := filepath.Join(work, "rpmbuild")
	fake.OnRun = func(c *command.Cmd) error {
		if c.Name == "rpmbuild" {
			return touch(filepath.Join(top, "RPMS", "x86_64"),
				"libexample-20240101-1.x86_64.rpm",
				"libexample-devel-20240101-1.x86_64.rpm")
		}
		return nil
	}

	ctx := context.Background()
	src := newMockSource(work, "libexample", "20240101")
	require.True(t, h.CheckBuildRequired(ctx, src))
	require.NoError(t, touch(top, "BUILD/libexample-20240101/Makefile"))
	require.NoError(t, h.Build(ctx, src))

	require.Equal(t, []string{"rpmbuild -tb " + filepath.Join(work, "libexample-20240101.tar.gz")}, fake.Commands())
	assert.Equal(t, work, fake.Calls[0].Dir)
	assert.True(t, exists(filepath.Join(top, "SOURCES", "fix.patch")))
	assert.True(t, exists(filepath.Join(work, "libexample-20240101-1.x86_64.rpm")))
	assert.True(t, exists(filepath.Join(work, "libexample-devel-20240101-1.x86_64.rpm")))
	assert.False(t, exists(filepath.Join(top, "BUILD", "libexample-20240101")))
	assert.False(t, h.CheckBuildRequired(ctx, src))
}

func TestSRPMBuildConfigureMake(t *testing.T) {
	def := &project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake}
	fake := &commandtest.Fake{}
	h, work := newTestHelper(t, def, SRPM, fake)
	top := filepath.Join(work, "rpmbuild")
	fake.OnRun = func(c *command.Cmd) error {
		return touch(filepath.Join(top, "SRPMS"), "libexample-20240101-1.src.rpm")
	}

	ctx := context.Background()
	src := newMockSource(work, "libexample", "20240101")
	require.NoError(t, h.Build(ctx, src))
	assert.Equal(t, []string{"rpmbuild -ts " + filepath.Join(work, "libexample-20240101.tar.gz")}, fake.Commands())
	assert.True(t, exists(filepath.Join(work, "libexample-20240101-1.src.rpm")))
	assert.False(t, h.CheckBuildRequired(ctx, src))
}

func TestRPMBuildSetupPy(t *testing.T) {
	def := &project.Definition{Name: "example", BuildSystem: buildsys.SetupPy, Maintainer: "Joe Dev <joe@example.com>"}
	fake := &commandtest.Fake{}
	h, work := newTestHelper(t, def, RPM, fake)
	top := filepath.Join(work, "rpmbuild")
	fake.OnRun = writeSpecOnBdist("example", func(c *command.Cmd) error {
		if c.Name == "rpmbuild" {
			return touch(filepath.Join(top, "RPMS", "noarch"),
				"example-20240101-1.noarch.rpm",
				"python3-example-20240101-1.noarch.rpm")
		}
		return nil
	})

	ctx := context.Background()
	src := newMockSource(work, "example", "20240101")
	src.files = map[string]string{"setup.py": "", "README": "", "LICENSE": ""}
	require.NoError(t, h.Build(ctx, src))

	srcDir := filepath.Join(work, "example-20240101")
	assert.Equal(t, []string{
		"python setup.py bdist_rpm --spec-only",
		"rpmbuild -bb SPECS/example.spec",
	}, fake.Commands())
	assert.Equal(t, srcDir, fake.Calls[0].Dir)
	assert.Equal(t, top, fake.Calls[1].Dir)
	assert.True(t, fake.Calls[1].Append)

	spec, err := os.ReadFile(filepath.Join(top, "SPECS", "example.spec"))
	require.NoError(t, err)
	assert.Contains(t, string(spec), "BuildRequires: python-setuptools\n%description")
	assert.Contains(t, string(spec), "%files -f INSTALLED_FILES\n%license LICENSE\n%doc README\n")
	assert.Contains(t, string(spec), "Joe Dev <joe@example.com> 20240101-1")

	assert.True(t, exists(filepath.Join(top, "SOURCES", "example-20240101.tar.gz")))
	assert.True(t, exists(filepath.Join(work, "example-20240101-1.noarch.rpm")))
	assert.True(t, exists(filepath.Join(work, "python3-example-20240101-1.noarch.rpm")))
}

func TestRPMBuildMissingSpec(t *testing.T) {
	def := &project.Definition{Name: "example", BuildSystem: buildsys.SetupPy}
	h, work := newTestHelper(t, def, RPM, &commandtest.Fake{})
	err := h.Build(context.Background(), newMockSource(work, "example", "20240101"))
	assert.ErrorIs(t, err, ErrMissingMetadata)
}

func TestRPMNames(t *testing.T) {
	tests := []struct {
		def     project.Definition
		version string
		want    string
	}{
		{project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake}, "20240101", "libexample-20240101-1.x86_64.rpm"},
		{project.Definition{Name: "example", BuildSystem: buildsys.SetupPy}, "1!2.0-rc1", "example-2.0_rc1-1.noarch.rpm"},
		{project.Definition{Name: "example", BuildSystem: buildsys.SetupPy, SetupName: "Example"}, "2.0", "Example-2.0-1.noarch.rpm"},
		{project.Definition{Name: "bencode", BuildSystem: buildsys.SetupPy, SetupName: "bencode.py", RPMIgnoreSetupName: true}, "2.0", "bencode-2.0-1.noarch.rpm"},
		{project.Definition{Name: "example", BuildSystem: buildsys.SetupPy, RPMName: "python-example", ArchitectureDependent: true}, "2.0", "python-example-2.0-1.x86_64.rpm"},
	}
	for _, tt := range tests {
		h, work := newTestHelper(t, &tt.def, RPM, &commandtest.Fake{})
		r := h.(*rpm)
		name, version := r.names(context.Background(), newMockSource(work, tt.def.Name, tt.version))
		assert.Equal(t, tt.want, r.artifact(name, version))
	}
}

func TestRPMCheckBuildDependencies(t *testing.T) {
	def := &project.Definition{Name: "example", BuildSystem: buildsys.SetupPy, BuildDependencies: []string{"pytest-runner"}}
	fake := &commandtest.Fake{Fail: []string{"rpm -qi python3-pytest-runner"}}
	h, _ := newTestHelper(t, def, RPM, fake)
	assert.Equal(t, []string{"python3-pytest-runner"}, h.CheckBuildDependencies(context.Background()))
}

func TestRPMClean(t *testing.T) {
	def := &project.Definition{Name: "libexample", BuildSystem: buildsys.ConfigureMake}
	h, work := newTestHelper(t, def, RPM, &commandtest.Fake{})
	top := filepath.Join(work, "rpmbuild")
	require.NoError(t, touch(work,
		"libexample-20240101-1.x86_64.rpm",
		"libexample-devel-20240101-1.x86_64.rpm",
		"libexample-20230101-1.x86_64.rpm",
		"libexample-tools-20230101-1.x86_64.rpm",
	))
	require.NoError(t, touch(top,
		"RPMS/x86_64/libexample-20230101-1.x86_64.rpm",
		"BUILD/libexample-20230101/Makefile",
		"BUILD/libexample-20240101/Makefile",
	))

	require.NoError(t, h.Clean(context.Background(), newMockSource(work, "libexample", "20240101")))
	assert.True(t, exists(filepath.Join(work, "libexample-20240101-1.x86_64.rpm")))
	assert.True(t, exists(filepath.Join(work, "libexample-devel-20240101-1.x86_64.rpm")))
	assert.False(t, exists(filepath.Join(work, "libexample-20230101-1.x86_64.rpm")))
	assert.False(t, exists(filepath.Join(work, "libexample-tools-20230101-1.x86_64.rpm")))
	assert.False(t, exists(filepath.Join(top, "RPMS", "x86_64", "libexample-20230101-1.x86_64.rpm")))
	assert.False(t, exists(filepath.Join(top, "BUILD", "libexample-20230101")))
	assert.True(t, exists(filepath.Join(top, "BUILD", "libexample-20240101")))
}
