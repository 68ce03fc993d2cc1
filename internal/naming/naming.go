// Package naming holds the per-format rules that turn a project name, version
// and host architecture into package filenames.
//
// Every packaging strategy derives the artifact it builds, the artifact it
// tests for and the artifacts it cleans up from the functions in this
// package, so the three can never disagree.
package naming

import (
	"fmt"
	"strings"
)

// setuptools marks a version epoch with a "N!" prefix. Package formats have
// their own epoch syntax, so the prefix is dropped from filenames.
const epochPrefix = "1!"

// StripEpoch removes a setuptools "1!" epoch prefix.
func StripEpoch(version string) string {
	return strings.TrimPrefix(version, epochPrefix)
}

// MSIVersion rewrites version into a form Windows Installer accepts.
//
// A single number gets ".1" appended, a four segment version loses its last
// segment and otherwise anything after the last "-" is dropped.
func MSIVersion(version string) string {
	switch {
	case !strings.Contains(version, "."):
		return version + ".1"
	case len(strings.Split(version, ".")) == 4:
		return version[:strings.LastIndex(version, ".")]
	case strings.Contains(version, "-"):
		return version[:strings.LastIndex(version, "-")]
	}
	return version
}

// RPMVersion strips the epoch and replaces "-", which RPM reserves as the
// version-release separator.
func RPMVersion(version string) string {
	return strings.ReplaceAll(StripEpoch(version), "-", "_")
}

// DPKGArch maps a host machine name onto a Debian architecture.
func DPKGArch(machine string) string {
	switch machine {
	case "i686":
		return "i386"
	case "x86_64", "AMD64":
		return "amd64"
	}
	return machine
}

// MSIArch maps a host machine name onto the platform tag used in MSI names.
func MSIArch(machine string) string {
	switch machine {
	case "i686", "i386", "x86":
		return "win32"
	case "x86_64", "AMD64":
		return "win-amd64"
	}
	return machine
}

// PythonPackageName prefixes name with "python-" unless it already has it.
func PythonPackageName(name string) string {
	if strings.HasPrefix(name, "python-") {
		return name
	}
	return "python-" + name
}

// Python3PackageName returns the python3 variant of a python- package name.
func Python3PackageName(name string) string {
	return "python3-" + strings.TrimPrefix(name, "python-")
}

// DebFilename is the binary package: {name}_{version}-1_{arch}.deb.
func DebFilename(name, version, arch string) string {
	return fmt.Sprintf("%s_%s-1_%s.deb", name, version, arch)
}

// ChangesFilename is the source package upload description:
// {name}_{version}-1{suffix}~{distribution}_{arch}.changes.
func ChangesFilename(name, version, suffix, distribution, arch string) string {
	return fmt.Sprintf("%s_%s-1%s~%s_%s.changes", name, version, suffix, distribution, arch)
}

// OrigSourceFilename is the pristine upstream tarball dpkg tools expect.
func OrigSourceFilename(name, version string) string {
	return fmt.Sprintf("%s_%s.orig.tar.gz", name, version)
}

// MSIFilename is {name}-{version}.{arch}{pySuffix}.msi.
func MSIFilename(name, version, arch, pySuffix string) string {
	return fmt.Sprintf("%s-%s.%s%s.msi", name, version, arch, pySuffix)
}

// PKGFilename is the macOS installer package.
func PKGFilename(name, version string) string {
	return fmt.Sprintf("%s-%s.pkg", name, version)
}

// DMGFilename is the macOS disk image wrapping the installer package.
func DMGFilename(name, version string) string {
	return fmt.Sprintf("%s-%s.dmg", name, version)
}

// RPMFilename is {name}-{version}-1.{arch}.rpm.
func RPMFilename(name, version, arch string) string {
	return fmt.Sprintf("%s-%s-1.%s.rpm", name, version, arch)
}

// SRPMFilename is {name}-{version}-1.src.rpm.
func SRPMFilename(name, version string) string {
	return fmt.Sprintf("%s-%s-1.src.rpm", name, version)
}

// SourceTarball is the upstream tarball name rpmbuild and osc expect.
func SourceTarball(name, version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", name, version)
}
