package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/naming"
	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/buildsys/autotools"
	"github.com/goplus/llpack/pkgs/buildsys/setuppy"
)

const pkgbuild = "/usr/bin/pkgbuild"

var (
	pkgDocFiles = []string{
		"AUTHORS", "AUTHORS.txt", "COPYING", "COPYING.txt", "LICENSE", "LICENSE.txt",
		"NEWS", "NEWS.txt", "README", "README.md", "README.txt",
	}
	pkgLicenseFiles = []string{"COPYING", "LICENSE", "LICENSE.TXT", "LICENSE.txt"}
	sdkVersions     = []string{"10.7", "10.8", "10.9", "10.10", "10.11", "10.12"}
)

// pkg builds a macOS installer package and wraps it in a disk image.
type pkg struct {
	*base
}

func newPKG(b *base) (Helper, error) {
	return &pkg{base: b}, nil
}

// CheckBuildDependencies returns nothing: macOS hosts are expected to carry
// the Xcode command line tools.
func (p *pkg) CheckBuildDependencies(ctx context.Context) []string {
	return nil
}

// version is the project version used in the pkg and dmg names.
func (p *pkg) version(ctx context.Context, src source.Provider) string {
	return naming.StripEpoch(src.ProjectVersion(ctx))
}

func (p *pkg) CheckBuildRequired(ctx context.Context, src source.Provider) bool {
	return !p.exists(naming.DMGFilename(src.ProjectName(), p.version(ctx, src)))
}

func (p *pkg) Build(ctx context.Context, src source.Provider) error {
	archive, dir, _, err := p.fetch(ctx, src)
	if err != nil {
		return err
	}
	version := p.version(ctx, src)
	log.Infof("Building pkg of: %s", archive)

	name := src.ProjectName()
	pkgName := naming.PKGFilename(name, version)
	l := newBuildLog(dir)
	if !p.exists(pkgName) {
		if err := p.applyPatches(ctx, dir, l, false); err != nil {
			return err
		}
		if p.def.BuildSystem == buildsys.SetupPy {
			err = p.installSetupPy(ctx, dir, l)
		} else {
			err = p.installConfigureMake(ctx, name, dir, l)
		}
		if err != nil {
			return err
		}
		root, err := filepath.Abs(filepath.Join(dir, "tmp"))
		if err != nil {
			return err
		}
		c := &command.Cmd{
			Name: pkgbuild,
			Args: []string{
				"--root", root + "/",
				"--identifier", src.ProjectIdentifier(),
				"--version", version,
				"--ownership", "recommended",
				pkgName,
			},
			Dir: p.workDir,
		}
		if err := p.run(ctx, l.cmd(c)); err != nil {
			return err
		}
	}
	c := &command.Cmd{
		Name: "hdiutil",
		Args: []string{"create", naming.DMGFilename(name, version), "-srcfolder", pkgName, "-fs", "HFS+"},
		Dir:  p.workDir,
	}
	return p.run(ctx, l.cmd(c))
}

// sdk returns the first macOS SDK found, or "".
func (p *pkg) sdk() string {
	for _, v := range sdkVersions {
		path := filepath.Join(p.sdksPath, "MacOSX"+v+".sdk")
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// installConfigureMake builds into <dir>/tmp with the /usr/local prefix
// and adds the documentation.
func (p *pkg) installConfigureMake(ctx context.Context, name, dir string, l *buildLog) error {
	at := autotools.New(p.runner, dir)
	l.attach(at)

	args := []string{"--prefix=/usr/local"}
	if sdk := p.sdk(); sdk != "" {
		at.Env("CFLAGS", "-isysroot "+sdk)
		at.Env("LDFLAGS", "-Wl,-syslibroot,"+sdk)
		args = append(args, "--disable-dependency-tracking")
	}
	opts, err := p.def.ConfigureArgs(true)
	if err != nil {
		return err
	}
	if err := at.Configure(ctx, append(args, opts...)...); err != nil {
		return stepFailed(err)
	}
	if err := at.Build(ctx); err != nil {
		return stepFailed(err)
	}
	if err := at.Install(ctx, "DESTDIR="+at.DestDir()); err != nil {
		return stepFailed(err)
	}

	docDir := filepath.Join(dir, "tmp", "usr", "local", "share", "doc", name)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return err
	}
	var docs []string
	for _, f := range pkgDocFiles {
		docs = append(docs, filepath.Join(dir, f))
	}
	licenses, err := filepath.Glob(filepath.Join(dir, "licenses", "*"))
	if err != nil {
		return err
	}
	for _, doc := range append(docs, licenses...) {
		if info, err := os.Stat(doc); err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := copyFile(doc, filepath.Join(docDir, filepath.Base(doc))); err != nil {
			return err
		}
	}
	return nil
}

// installSetupPy installs into <dir>/tmp and copies the license into the
// egg-info directories.
func (p *pkg) installSetupPy(ctx context.Context, dir string, l *buildLog) error {
	sp := setuppy.New(p.runner, p.python, dir)
	l.attach(sp)
	if err := sp.Build(ctx); err != nil {
		return stepFailed(err)
	}
	root, err := filepath.Abs(filepath.Join(dir, "tmp"))
	if err != nil {
		return err
	}
	if err := sp.Install(ctx, "--root="+root, "--install-data=/usr/local"); err != nil {
		return stepFailed(err)
	}

	var errs []error
	for _, license := range pkgLicenseFiles {
		path := filepath.Join(dir, license)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(walked string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && filepath.Ext(walked) == ".egg-info" {
				return copyFile(path, filepath.Join(walked, license))
			}
			return nil
		})
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *pkg) Clean(ctx context.Context, src source.Provider) error {
	name, version := src.ProjectName(), p.version(ctx, src)
	return errors.Join(
		sweep(p.workDir, name+"-*.dmg", exactly(naming.DMGFilename(name, version))),
		sweep(p.workDir, name+"-*.pkg", exactly(naming.PKGFilename(name, version))),
	)
}
