package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripEpoch(t *testing.T) {
	assert.Equal(t, "2.0", StripEpoch("1!2.0"))
	assert.Equal(t, "2.0", StripEpoch("2.0"))
	assert.Equal(t, "", StripEpoch(""))
}

func TestMSIVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.2.3.4", "1.2.3"},
		{"1.2.3-4", "1.2.3"},
		{"5", "5.1"},
		{"20170101", "20170101.1"},
		{"1.2.3", "1.2.3"},
		{"1.2-rc1-2", "1.2-rc1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MSIVersion(tt.in), "MSIVersion(%q)", tt.in)
	}
}

func TestRPMVersion(t *testing.T) {
	assert.Equal(t, "2.0_1", RPMVersion("1!2.0-1"))
	assert.Equal(t, "20170101", RPMVersion("20170101"))
}

func TestArch(t *testing.T) {
	tests := []struct {
		machine, dpkg, msi string
	}{
		{"i686", "i386", "win32"},
		{"x86_64", "amd64", "win-amd64"},
		{"AMD64", "amd64", "win-amd64"},
		{"x86", "x86", "win32"},
		{"aarch64", "aarch64", "aarch64"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.dpkg, DPKGArch(tt.machine), "DPKGArch(%q)", tt.machine)
		assert.Equal(t, tt.msi, MSIArch(tt.machine), "MSIArch(%q)", tt.machine)
	}
}

func TestPythonPackageName(t *testing.T) {
	assert.Equal(t, "python-dfvfs", PythonPackageName("dfvfs"))
	assert.Equal(t, "python-dfvfs", PythonPackageName("python-dfvfs"))
	assert.Equal(t, "python3-dfvfs", Python3PackageName("python-dfvfs"))
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "foo_1.0-1_amd64.deb", DebFilename("foo", "1.0", "amd64"))
	assert.Equal(t, "foo_1.0-1ppa1~trusty_source.changes", ChangesFilename("foo", "1.0", "ppa1", "trusty", "source"))
	assert.Equal(t, "foo_1.0.orig.tar.gz", OrigSourceFilename("foo", "1.0"))
	assert.Equal(t, "foo-1.0.win32-py2.7.msi", MSIFilename("foo", "1.0", "win32", "-py2.7"))
	assert.Equal(t, "foo-1.0.pkg", PKGFilename("foo", "1.0"))
	assert.Equal(t, "foo-1.0.dmg", DMGFilename("foo", "1.0"))
	assert.Equal(t, "foo-1.0-1.x86_64.rpm", RPMFilename("foo", "1.0", "x86_64"))
	assert.Equal(t, "foo-1.0-1.src.rpm", SRPMFilename("foo", "1.0"))
	assert.Equal(t, "foo-1.0.tar.gz", SourceTarball("foo", "1.0"))
}

func TestPackages(t *testing.T) {
	assert.Equal(t, []string{"zlib1g-dev"}, DPKGPackages("zlib"))
	assert.Equal(t, []string{"python-six"}, DPKGPackages("python-six"))
	assert.Equal(t, []string{"python2-pytest-runner", "python3-pytest-runner"}, RPMPackages("pytest-runner"))
	assert.Equal(t, []string{"openssl-devel"}, RPMPackages("libcrypto"))

	// Callers may append to the result without touching the table.
	got := RPMPackages("pytest-runner")
	got[0] = "changed"
	assert.Equal(t, "python2-pytest-runner", RPMPackages("pytest-runner")[0])
}
