package build

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/llpack/internal/source"
	"github.com/goplus/llpack/pkgs/buildsys/setuppy"
)

var (
	specDocFiles     = []string{"CHANGES", "CHANGES.txt", "CHANGES.TXT", "README", "README.md", "README.txt", "README.TXT"}
	specLicenseFiles = []string{"COPYING", "LICENSE", "LICENSE.txt", "LICENSE.TXT"}
)

// specEdit describes how a spec file written by setup.py bdist_rpm is
// adapted before rpmbuild or osc consume it.
type specEdit struct {
	Name    string
	Version string
	// Source is the file name of the upstream tarball.
	Source string

	BuildRequires []string
	Patches       []string
	Docs          []string
	Licenses      []string

	Maintainer string
	Date       time.Time
}

// setupPySpec runs setup.py bdist_rpm --spec-only in dir and returns the
// path of the generated spec.
func (b *base) setupPySpec(ctx context.Context, src source.Provider, dir string, l *buildLog) (string, error) {
	sp := setuppy.New(b.runner, b.python, dir)
	l.attach(sp)
	if err := sp.SpecFile(ctx); err != nil {
		return "", stepFailed(err)
	}
	name := src.ProjectName()
	if b.def.SetupName != "" {
		name = b.def.SetupName
	}
	path := filepath.Join(dir, "dist", name+".spec")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: setup.py did not write %s", ErrMissingMetadata, path)
	}
	return path, nil
}

// specEditFor collects the documentation present in dir.
func (b *base) specEditFor(dir, name, version, tarball string) specEdit {
	e := specEdit{
		Name:          name,
		Version:       version,
		Source:        tarball,
		BuildRequires: []string{"python-setuptools"},
		Maintainer:    b.def.Maintainer,
		Date:          b.now(),
	}
	if e.Maintainer == "" {
		e.Maintainer = defaultMaintainer
	}
	for _, f := range specDocFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
			e.Docs = append(e.Docs, f)
		}
	}
	for _, f := range specLicenseFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
			e.Licenses = append(e.Licenses, f)
		}
	}
	return e
}

// rewriteSpec writes the spec at in, adapted by e, to out.
func rewriteSpec(in, out string, e specEdit) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	lines, err := e.apply(string(data))
	if err != nil {
		return fmt.Errorf("rewrite %s: %w", in, err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func (e specEdit) apply(spec string) ([]string, error) {
	var out []string
	requires, changelog := false, false
	sc := bufio.NewScanner(strings.NewReader(spec))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		switch {
		case strings.HasPrefix(line, "%define name "):
			line = "%define name " + e.Name
		case strings.HasPrefix(line, "%define version "):
			line = "%define version " + e.Version
		case strings.HasPrefix(line, "%define release "):
			line = "%define release 1"
		case strings.HasPrefix(line, "Source0:"):
			line = "Source0: " + e.Source
		case strings.HasPrefix(line, "%description") && !requires:
			for _, r := range e.BuildRequires {
				out = append(out, "BuildRequires: "+r)
			}
			requires = true
		case strings.HasPrefix(line, "%changelog"):
			changelog = true
		}
		out = append(out, line)
		if strings.HasPrefix(line, "Source0:") {
			for i, p := range e.Patches {
				out = append(out, fmt.Sprintf("Patch%d: %s", i, p))
			}
		}
		if strings.HasPrefix(line, "%setup") {
			for i := range e.Patches {
				out = append(out, fmt.Sprintf("%%patch%d -p1", i))
			}
		}
		if strings.HasPrefix(line, "%files") {
			for _, l := range e.Licenses {
				out = append(out, "%license "+l)
			}
			for _, d := range e.Docs {
				out = append(out, "%doc "+d)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !requires {
		return nil, fmt.Errorf("%w: spec has no %%description section", ErrMissingMetadata)
	}
	if !changelog {
		out = append(out, "",
			"%changelog",
			fmt.Sprintf("* %s %s %s-1", e.Date.Format("Mon Jan 02 2006"), e.Maintainer, e.Version),
			"- Auto-generated")
	}
	return out, nil
}
