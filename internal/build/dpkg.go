package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/naming"
	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys"
)

// dpkg builds binary (.deb) or source (.changes) Debian packages.
type dpkg struct {
	*base
	source bool

	arch         string
	distribution string
	suffix       string

	prepScript string
	postScript string
}

func newDPKG(b *base) (Helper, error) {
	d := &dpkg{
		base:       b,
		arch:       naming.DPKGArch(b.machine),
		prepScript: "prep-dpkg.sh",
		postScript: "post-dpkg.sh",
	}
	if b.def.BuildSystem == buildsys.SetupPy && !b.def.ArchitectureDependent {
		d.arch = "all"
	}
	return d, nil
}

func newDPKGSource(b *base) (Helper, error) {
	return &dpkg{
		base:         b,
		source:       true,
		arch:         "source",
		distribution: b.options.distribution,
		suffix:       "ppa1",
		prepScript:   "prep-dpkg-source.sh",
		postScript:   "post-dpkg-source.sh",
	}, nil
}

// names returns the filename safe package name and version.
func (d *dpkg) names(ctx context.Context, src source.Provider) (string, string) {
	name, version := src.ProjectName(), src.ProjectVersion(ctx)
	if d.def.BuildSystem != buildsys.SetupPy {
		return name, version
	}
	override := d.def.DPKGName
	if d.source {
		override = d.def.DPKGSourceName
	}
	if override != "" {
		name = override
	} else {
		name = naming.PythonPackageName(name)
	}
	return name, naming.StripEpoch(version)
}

// origName returns the upstream tarball name dpkg-buildpackage expects.
func (d *dpkg) origName(src source.Provider, version string) string {
	name := src.ProjectName()
	if d.def.DPKGSourceName != "" {
		name = d.def.DPKGSourceName
	}
	return naming.OrigSourceFilename(name, version)
}

func (d *dpkg) artifact(name, version string) string {
	if d.source {
		return naming.ChangesFilename(name, version, d.suffix, d.distribution, d.arch)
	}
	return naming.DebFilename(name, version, d.arch)
}

func (d *dpkg) CheckBuildDependencies(ctx context.Context) []string {
	var missing []string
	for _, pkg := range naming.DPKGToolchain {
		if !d.installed(ctx, pkg) {
			missing = append(missing, pkg)
		}
	}
	for _, dep := range d.def.BuildDependencies {
		for _, pkg := range naming.DPKGPackages(dep) {
			if !d.installed(ctx, pkg) {
				missing = append(missing, pkg)
			}
			d.def.AddDPKGBuildDependency(pkg)
		}
	}
	return missing
}

func (d *dpkg) installed(ctx context.Context, pkg string) bool {
	_, err := d.runner.Output(ctx, &command.Cmd{Name: "dpkg-query", Args: []string{"-s", pkg}})
	return err == nil
}

func (d *dpkg) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	name, version := d.names(ctx, src)
	return !d.exists(d.artifact(name, version))
}

func (d *dpkg) Build(ctx context.Context, src source.Provider) error {
	archive, dir, _, err := d.fetch(ctx, src)
	if err != nil {
		return err
	}
	name, version := d.names(ctx, src)

	if err := d.createOrig(archive, d.origName(src, version)); err != nil {
		return err
	}
	if d.source {
		log.Infof("Building source deb of: %s", archive)
	} else {
		log.Infof("Building deb of: %s", archive)
	}

	l := newBuildLog(dir)
	if err := d.applyPatches(ctx, dir, l, false); err != nil {
		return err
	}
	if err := d.createPackagingFiles(dir, name, version); err != nil {
		return err
	}
	if err := removeIfExists(filepath.Join(dir, "tmp")); err != nil {
		return err
	}

	if err := d.script(ctx, d.prepScript, dir, name, version, l); err != nil {
		return err
	}
	c := &command.Cmd{Name: "dpkg-buildpackage", Args: []string{"-uc", "-us", "-rfakeroot"}, Dir: dir}
	if d.source {
		c = &command.Cmd{Name: "debuild", Args: []string{"-S", "-sa"}, Dir: dir}
	}
	if err := d.run(ctx, l.cmd(c)); err != nil {
		return err
	}
	return d.script(ctx, d.postScript, dir, name, version, l)
}

// createOrig writes the .orig.tar.gz next to the downloaded archive unless
// it already exists. Other archive formats are repacked.
func (d *dpkg) createOrig(archive, orig string) error {
	if d.exists(orig) {
		return nil
	}
	dst := d.path(orig)
	if strings.HasSuffix(archive, ".tar.gz") || strings.HasSuffix(archive, ".tgz") {
		return copyFile(archive, dst)
	}
	if err := source.RepackTarGz(archive, dst); err != nil {
		return fmt.Errorf("repack %s: %w", archive, err)
	}
	return nil
}

// createPackagingFiles recreates debian/ from the packaging files shipped
// in dpkg/ or config/dpkg/, or generates it.
func (d *dpkg) createPackagingFiles(dir, name, version string) error {
	debian := filepath.Join(dir, "debian")
	if err := removeIfExists(debian); err != nil {
		return err
	}

	shipped := filepath.Join(dir, "dpkg")
	if _, err := os.Stat(shipped); err != nil {
		shipped = filepath.Join(dir, "config", "dpkg")
	}
	if _, err := os.Stat(shipped); err == nil {
		if err := os.CopyFS(debian, os.DirFS(shipped)); err != nil {
			return err
		}
	} else if err := d.writeDebianFiles(dir, name, version); err != nil {
		return err
	}

	if _, err := os.Stat(debian); err != nil {
		log.Errorf("Missing debian sub directory in: %s", dir)
		return fmt.Errorf("%w: no debian directory in %s", ErrMissingMetadata, dir)
	}
	return nil
}

// script runs a prep or post script from the working directory when it
// exists, passing the package coordinates as arguments.
func (d *dpkg) script(ctx context.Context, script, dir, name, version string, l *buildLog) error {
	path := d.path(script)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	c := &command.Cmd{
		Name: "sh",
		Args: []string{abs, name, version, d.suffix, d.distribution, d.arch},
		Dir:  dir,
	}
	return d.run(ctx, l.cmd(c))
}

func (d *dpkg) Clean(ctx context.Context, src source.Provider) error {
	name, version := d.names(ctx, src)

	origBase := src.ProjectName()
	if d.def.DPKGSourceName != "" {
		origBase = d.def.DPKGSourceName
	}
	errs := []error{sweep(d.workDir, origBase+"_*.orig.tar.gz", exactly(d.origName(src, version)))}

	names := []string{name}
	if !d.source && d.def.BuildSystem == buildsys.SetupPy && !d.def.IsPython2Only() {
		names = append(names, naming.Python3PackageName(name))
	}
	for _, n := range names {
		keep := dpkgKeep(n, version)
		if d.source {
			errs = append(errs,
				sweepMatching(d.workDir, dpkgMatch(n, d.suffix+"~"+d.distribution+"_"+d.arch), keep),
				sweepMatching(d.workDir, dpkgMatch(n, d.suffix+"~"+d.distribution), keep))
			continue
		}
		errs = append(errs,
			sweepMatching(d.workDir, dpkgMatch(n, "_"+d.arch), keep),
			sweepMatching(d.workDir, dpkgMatch(n, ""), keep))
	}
	return errors.Join(errs...)
}
