package build

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/qiniu/x/log"
)

// sweep removes the entries of dir matching the glob pattern unless keep
// matches their base name. Directories are removed with their contents.
func sweep(dir, pattern string, keep *regexp.Regexp) error {
	return sweepFunc(dir, pattern, keep, os.RemoveAll)
}

// sweepFunc is sweep with a custom remove operation.
func sweepFunc(dir, pattern string, keep *regexp.Regexp, remove func(path string) error) error {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range matches {
		if keep != nil && keep.MatchString(filepath.Base(path)) {
			continue
		}
		log.Infof("Removing: %s", path)
		if err := remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sweepMatching removes the entries of dir whose base name matches match
// and not keep. It stands in for glob patterns that need character classes
// such as [-_], which filepath.Match rejects.
func sweepMatching(dir string, match, keep *regexp.Regexp) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if !match.MatchString(name) || (keep != nil && keep.MatchString(name)) {
			continue
		}
		path := filepath.Join(dir, name)
		log.Infof("Removing: %s", path)
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dpkgMatch matches any version of the dpkg outputs of name ending with
// the given release tail, e.g. name_1.0-1 followed by tail.
func dpkgMatch(name, tail string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(name) + "[-_].*-[1-9]" + regexp.QuoteMeta(tail) + `\.`)
}

// exactly returns a pattern matching name and nothing else.
func exactly(name string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(name) + "$")
}

// dpkgKeep matches the files dpkg tools produce for name at version, e.g.
// name_version-1_amd64.deb or name-dbg_version-1_amd64.deb.
func dpkgKeep(name, version string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(name) + "[-_](?:[^_]*_)?" + regexp.QuoteMeta(version) + "-")
}

// rpmKeep matches the RPMs of name at version for arch, including
// sub-packages such as name-devel-version-1.arch.rpm.
func rpmKeep(name, version, arch string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(name) + "-(?:.*-)?" + regexp.QuoteMeta(version) + `-1\.` + regexp.QuoteMeta(arch) + `\.rpm$`)
}
