package naming

import "slices"

// DPKGToolchain lists the packages a Debian host needs to build anything.
var DPKGToolchain = []string{
	"autoconf",
	"automake",
	"autopoint",
	"autotools-dev",
	"build-essential",
	"byacc",
	"debhelper",
	"devscripts",
	"dh-autoreconf",
	"dpkg-dev",
	"fakeroot",
	"flex",
	"gettext",
	"git",
	"libtool",
	"python-all",
	"python-all-dev",
	"python-setuptools",
	"python3-all",
	"python3-all-dev",
	"python3-setuptools",
	"quilt",
}

// RPMToolchain lists the packages an RPM host needs to build anything.
var RPMToolchain = []string{
	"autoconf",
	"automake",
	"binutils",
	"byacc",
	"flex",
	"gcc",
	"gcc-c++",
	"gettext-devel",
	"git",
	"libtool",
	"make",
	"pkgconf",
	"python2-dateutil",
	"python2-devel",
	"python2-setuptools",
	"python2-test",
	"python3-dateutil",
	"python3-devel",
	"python3-setuptools",
	"python3-test",
	"rpm-build",
}

var dpkgPackages = map[string][]string{
	"bzip2":     {"libbz2-dev"},
	"fuse":      {"libfuse-dev"},
	"libcrypto": {"libssl-dev"},
	"sqlite":    {"libsqlite3-dev"},
	"zeromq":    {"libzmq3-dev"},
	"zlib":      {"zlib1g-dev"},
}

var rpmPackages = map[string][]string{
	"bzip2":         {"bzip2-devel"},
	"fuse":          {"fuse-devel"},
	"libcrypto":     {"openssl-devel"},
	"pytest-runner": {"python2-pytest-runner", "python3-pytest-runner"},
	"sqlite":        {"sqlite-devel"},
	"zeromq":        {"libzmq3-devel"},
	"zlib":          {"zlib-devel"},
}

// DPKGPackages returns the Debian packages providing a generic dependency.
// Unknown dependencies are returned unchanged.
func DPKGPackages(dependency string) []string {
	return lookup(dpkgPackages, dependency)
}

// RPMPackages returns the RPM packages providing a generic dependency.
// Unknown dependencies are returned unchanged.
func RPMPackages(dependency string) []string {
	return lookup(rpmPackages, dependency)
}

func lookup(table map[string][]string, dependency string) []string {
	if names, ok := table[dependency]; ok {
		return slices.Clone(names)
	}
	return []string{dependency}
}
