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

// rpm builds binary or source RPMs with rpmbuild.
type rpm struct {
	*base
	source bool
	arch   string
	top    string
}

func newRPM(b *base) (Helper, error) {
	r, err := newRPMHelper(b)
	if err != nil {
		return nil, err
	}
	if b.def.BuildSystem == buildsys.SetupPy && !b.def.ArchitectureDependent {
		r.arch = "noarch"
	}
	return r, nil
}

func newSRPM(b *base) (Helper, error) {
	r, err := newRPMHelper(b)
	if err != nil {
		return nil, err
	}
	r.source = true
	r.arch = "src"
	return r, nil
}

func newRPMHelper(b *base) (*rpm, error) {
	top := b.rpmbuildPath
	if top == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("rpmbuild directory: %w", err)
		}
		top = filepath.Join(home, "rpmbuild")
	}
	return &rpm{base: b, arch: b.machine, top: top}, nil
}

// names returns the filename safe package name and version.
func (r *rpm) names(ctx context.Context, src source.Provider) (string, string) {
	name := src.ProjectName()
	switch {
	case r.def.RPMName != "":
		name = r.def.RPMName
	case r.def.SetupName != "" && !r.def.RPMIgnoreSetupName:
		name = r.def.SetupName
	}
	return name, naming.RPMVersion(src.ProjectVersion(ctx))
}

func (r *rpm) artifact(name, version string) string {
	if r.source {
		return naming.SRPMFilename(name, version)
	}
	return naming.RPMFilename(name, version, r.arch)
}

// outputDir is where rpmbuild writes the packages.
func (r *rpm) outputDir() string {
	if r.source {
		return filepath.Join(r.top, "SRPMS")
	}
	return filepath.Join(r.top, "RPMS", r.arch)
}

func (r *rpm) CheckBuildDependencies(ctx context.Context) []string {
	var missing []string
	for _, pkg := range naming.RPMToolchain {
		if !r.installed(ctx, pkg) {
			missing = append(missing, pkg)
		}
	}
	for _, dep := range r.def.BuildDependencies {
		for _, pkg := range naming.RPMPackages(dep) {
			if !r.installed(ctx, pkg) {
				missing = append(missing, pkg)
			}
		}
	}
	return missing
}

func (r *rpm) installed(ctx context.Context, pkg string) bool {
	_, err := r.runner.Output(ctx, &command.Cmd{Name: "rpm", Args: []string{"-qi", pkg}})
	return err == nil
}

func (r *rpm) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	name, version := r.names(ctx, src)
	return !r.exists(r.artifact(name, version))
}

func (r *rpm) Build(ctx context.Context, src source.Provider) error {
	archive, err := src.Download(ctx)
	if err != nil {
		log.Errorf("Download of: %s failed: %v", src.ProjectName(), err)
		return err
	}
	if r.source {
		log.Infof("Building source rpm of: %s", archive)
	} else {
		log.Infof("Building rpm of: %s", archive)
	}
	if err := r.createDirs(); err != nil {
		return err
	}
	// rpmbuild looks up the patches a spec file lists in SOURCES.
	for _, file := range r.patchFiles() {
		if err := copyFile(file, filepath.Join(r.top, "SOURCES", filepath.Base(file))); err != nil {
			return err
		}
	}

	name, version := r.names(ctx, src)
	if version == "" {
		log.Warnf("Unable to determine version of: %s", src.ProjectName())
	}
	if r.def.BuildSystem == buildsys.SetupPy {
		err = r.buildSpec(ctx, src, archive, name, version)
	} else {
		err = r.buildTarball(ctx, archive, name, version)
	}
	if err != nil {
		return err
	}

	pattern := name + "-*" + version + "-1." + r.arch + ".rpm"
	if r.def.BuildSystem == buildsys.SetupPy && !r.source {
		if _, err := moveInto(filepath.Join(r.outputDir(), "python*-"+pattern), r.workDir); err != nil {
			return err
		}
	}
	if _, err := moveInto(filepath.Join(r.outputDir(), pattern), r.workDir); err != nil {
		return err
	}
	if !r.source {
		buildDir := filepath.Join(r.top, "BUILD", name+"-"+version)
		log.Infof("Removing: %s", buildDir)
		if err := os.RemoveAll(buildDir); err != nil {
			log.Warnf("Unable to remove: %s", buildDir)
		}
	}
	return nil
}

func (r *rpm) createDirs() error {
	for _, dir := range []string{"SOURCES", "SPECS"} {
		if err := os.MkdirAll(filepath.Join(r.top, dir), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// buildTarball runs rpmbuild on a tarball that carries its own spec file.
// rpmbuild wants the tarball named <name>-<version>.tar.gz, so the archive
// is renamed for the duration of the build.
func (r *rpm) buildTarball(ctx context.Context, archive, name, version string) (err error) {
	tarball := r.path(naming.SourceTarball(name, version))
	if archive != tarball {
		if err := os.Rename(archive, tarball); err != nil {
			return err
		}
		defer func() {
			if rerr := os.Rename(tarball, archive); err == nil {
				err = rerr
			}
		}()
	}
	flag := "-tb"
	if r.source {
		flag = "-ts"
	}
	abs, err := filepath.Abs(tarball)
	if err != nil {
		return err
	}
	l := &buildLog{path: r.path(LogFilename)}
	return r.run(ctx, l.cmd(&command.Cmd{Name: "rpmbuild", Args: []string{flag, abs}, Dir: r.workDir}))
}

// buildSpec generates a spec file with setup.py and runs rpmbuild on it.
func (r *rpm) buildSpec(ctx context.Context, src source.Provider, archive, name, version string) error {
	sources := filepath.Join(r.top, "SOURCES", filepath.Base(archive))
	if _, err := os.Stat(sources); err != nil {
		if err := copyFile(archive, sources); err != nil {
			return err
		}
	}
	dir, err := src.Create(ctx)
	if err != nil {
		log.Errorf("Extraction of source package: %s failed: %v", archive, err)
		return err
	}
	l := newBuildLog(dir)
	generated, err := r.setupPySpec(ctx, src, dir, l)
	if err != nil {
		log.Errorf("Unable to generate rpm spec file.")
		return err
	}

	edit := r.specEditFor(dir, name, version, filepath.Base(archive))
	for _, file := range r.patchFiles() {
		edit.Patches = append(edit.Patches, filepath.Base(file))
	}
	spec := filepath.Join("SPECS", strings.TrimPrefix(name, "python-")+".spec")
	if err := rewriteSpec(generated, filepath.Join(r.top, spec), edit); err != nil {
		return err
	}

	flag := "-bb"
	if r.source {
		flag = "-bs"
	}
	return r.run(ctx, l.cmd(&command.Cmd{Name: "rpmbuild", Args: []string{flag, spec}, Dir: r.top}))
}

func (r *rpm) Clean(ctx context.Context, src source.Provider) error {
	name, version := r.names(ctx, src)
	var errs []error
	if r.def.BuildSystem == buildsys.SetupPy && !r.source {
		for _, dir := range []string{"build", "dist"} {
			errs = append(errs, removeIfExists(r.path(dir)))
		}
	}
	if !r.source {
		errs = append(errs, sweep(filepath.Join(r.top, "BUILD"), name+"-*", exactly(name+"-"+version)))
	}
	keep := rpmKeep(name, version, r.arch)
	pattern := name + "-*-1." + r.arch + ".rpm"
	errs = append(errs,
		sweep(r.workDir, pattern, keep),
		sweep(r.outputDir(), pattern, keep))
	return errors.Join(errs...)
}
