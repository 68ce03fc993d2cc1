package build

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/naming"
	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys"
)

// oscPackageMeta is the package metadata osc meta pkg expects on stdin.
type oscPackageMeta struct {
	XMLName     xml.Name `xml:"package"`
	Name        string   `xml:"name,attr"`
	Project     string   `xml:"project,attr"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
}

// osc submits the source tarball and spec file of a project to an openSUSE
// build service project checkout.
type osc struct {
	*base
	log *buildLog
}

func newOSC(b *base) (Helper, error) {
	return &osc{base: b, log: &buildLog{path: b.path(LogFilename)}}, nil
}

func (o *osc) projectDir() string {
	return o.path(o.oscProject)
}

func (o *osc) packageDir(src source.Provider) string {
	return filepath.Join(o.projectDir(), src.ProjectName())
}

func (o *osc) tarball(ctx context.Context, src source.Provider) string {
	return naming.SourceTarball(src.ProjectName(), naming.StripEpoch(src.ProjectVersion(ctx)))
}

// CheckBuildDependencies returns nothing: the build service resolves the
// dependencies.
func (o *osc) CheckBuildDependencies(ctx context.Context) []string {
	return nil
}

func (o *osc) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	_, err := os.Stat(filepath.Join(o.packageDir(src), o.tarball(ctx, src)))
	return err != nil
}

func (o *osc) command(ctx context.Context, dir string, args ...string) error {
	c := &command.Cmd{Name: "osc", Args: append([]string{"-q"}, args...), Dir: dir}
	return o.run(ctx, o.log.cmd(c))
}

// prepare checks out or updates the project and creates the package.
func (o *osc) prepare(ctx context.Context, src source.Provider) error {
	if _, err := os.Stat(o.projectDir()); err != nil {
		if err := o.command(ctx, o.workDir, "checkout", o.oscProject); err != nil {
			return err
		}
	} else if err := o.command(ctx, o.projectDir(), "update"); err != nil {
		return err
	}

	if _, err := os.Stat(o.packageDir(src)); err == nil {
		return nil
	}
	name := src.ProjectName()
	meta, err := xml.MarshalIndent(oscPackageMeta{
		Name:        name,
		Project:     o.oscProject,
		Title:       name,
		Description: name,
	}, "", "  ")
	if err != nil {
		return err
	}
	c := &command.Cmd{
		Name:  "osc",
		Args:  []string{"-q", "meta", "pkg", "-F", "-", o.oscProject, name},
		Dir:   o.projectDir(),
		Stdin: bytes.NewReader(append(meta, '\n')),
	}
	if err := o.run(ctx, o.log.cmd(c)); err != nil {
		return err
	}
	return o.command(ctx, o.projectDir(), "update")
}

// add copies file into the package directory and schedules it for
// addition unless it is tracked already.
func (o *osc) add(ctx context.Context, src source.Provider, file, name string) error {
	dst := filepath.Join(o.packageDir(src), name)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := copyFile(file, dst); err != nil {
		return err
	}
	return o.command(ctx, o.projectDir(), "add", filepath.Join(src.ProjectName(), name))
}

// addPatches ships the project patches with the package; the spec file
// applies them on the build service.
func (o *osc) addPatches(ctx context.Context, src source.Provider) error {
	for _, file := range o.patchFiles() {
		if err := o.add(ctx, src, file, filepath.Base(file)); err != nil {
			return err
		}
	}
	return nil
}

func (o *osc) Build(ctx context.Context, src source.Provider) error {
	archive, err := src.Download(ctx)
	if err != nil {
		log.Errorf("Download of: %s failed: %v", src.ProjectName(), err)
		return err
	}
	version := projectVersion(ctx, src)
	log.Infof("Preparing osc build of: %s", archive)

	if err := o.prepare(ctx, src); err != nil {
		return err
	}
	if err := o.add(ctx, src, archive, o.tarball(ctx, src)); err != nil {
		return err
	}
	if err := o.addPatches(ctx, src); err != nil {
		return err
	}

	if o.def.BuildSystem == buildsys.SetupPy {
		err = o.setupPySpecFile(ctx, src, version)
	} else {
		err = o.extractSpecFile(ctx, src, version)
	}
	if err != nil {
		return err
	}
	return o.command(ctx, o.packageDir(src), "commit", "-n")
}

// extractSpecFile writes the spec file shipped in the tarball of a
// configure_make project to the package directory.
func (o *osc) extractSpecFile(ctx context.Context, src source.Provider, version string) error {
	name := src.ProjectName()
	specName := name + ".spec"
	specPath := filepath.Join(o.packageDir(src), specName)
	_, statErr := os.Stat(specPath)

	c := &command.Cmd{
		Name: "tar",
		Args: []string{"xfO", o.tarball(ctx, src), name + "-" + version + "/" + specName},
		Dir:  o.packageDir(src),
	}
	out, err := o.runner.Output(ctx, c)
	if err != nil {
		log.Errorf("Running: %q failed.", c.String())
		return err
	}
	if err := os.WriteFile(specPath, []byte(out), 0o644); err != nil {
		return err
	}
	if statErr != nil {
		return o.command(ctx, o.projectDir(), "add", filepath.Join(name, specName))
	}
	return nil
}

// setupPySpecFile generates the spec file of a setup_py project with
// setup.py and rewrites it for the build service.
func (o *osc) setupPySpecFile(ctx context.Context, src source.Provider, version string) error {
	dir, err := src.Create(ctx)
	if err != nil {
		log.Errorf("Extraction of source package: %s failed: %v", src.ProjectName(), err)
		return err
	}
	l := newBuildLog(dir)
	generated, err := o.setupPySpec(ctx, src, dir, l)
	if err != nil {
		return err
	}

	name := src.ProjectName()
	if !o.def.OSCKeepPythonPrefix {
		name = strings.TrimPrefix(name, "python-")
	}
	specName := name + ".spec"
	specPath := filepath.Join(o.packageDir(src), specName)
	_, statErr := os.Stat(specPath)

	edit := o.specEditFor(dir, name, naming.RPMVersion(version), o.tarball(ctx, src))
	for _, file := range o.patchFiles() {
		edit.Patches = append(edit.Patches, filepath.Base(file))
	}
	if err := rewriteSpec(generated, specPath, edit); err != nil {
		return err
	}
	if statErr != nil {
		return o.command(ctx, o.projectDir(), "add", filepath.Join(src.ProjectName(), specName))
	}
	return nil
}

// Clean schedules the tarballs of other versions for removal.
func (o *osc) Clean(ctx context.Context, src source.Provider) error {
	dir := o.packageDir(src)
	keep := exactly(o.tarball(ctx, src))
	return sweepFunc(dir, src.ProjectName()+"-*.tar.gz", keep, func(path string) error {
		return o.command(ctx, dir, "remove", filepath.Base(path))
	})
}
