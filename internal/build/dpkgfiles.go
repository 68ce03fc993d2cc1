package build

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/goplus/llpack/internal/naming"
	"github.com/goplus/llpack/pkgs/buildsys"
)

const defaultMaintainer = "llpack maintainers <llpack@localhost>"

// debianData feeds the debian/ templates.
type debianData struct {
	Source       string
	Packages     []debianPackage
	Version      string
	Distribution string
	Maintainer   string
	Homepage     string
	Description  string
	License      string
	BuildDepends string
	Date         string
	SetupPy      bool
	Python3      bool
}

type debianPackage struct {
	Name         string
	Architecture string
	Depends      string
}

var debianTemplates = map[string]*template.Template{
	"changelog": template.Must(template.New("changelog").Parse(`{{.Source}} ({{.Version}}) {{.Distribution}}; urgency=low

  * Auto-generated

 -- {{.Maintainer}}  {{.Date}}
`)),
	"compat": template.Must(template.New("compat").Parse("9\n")),
	"control": template.Must(template.New("control").Parse(`Source: {{.Source}}
Section: {{if .SetupPy}}python{{else}}libs{{end}}
Priority: extra
Maintainer: {{.Maintainer}}
Build-Depends: {{.BuildDepends}}
Standards-Version: 3.9.5
{{- if .Homepage}}
Homepage: {{.Homepage}}
{{- end}}
{{range .Packages}}
Package: {{.Name}}
Architecture: {{.Architecture}}
Depends: {{.Depends}}
Description: {{$.Description}}
{{end -}}
`)),
	"copyright": template.Must(template.New("copyright").Parse(`Format: http://www.debian.org/doc/packaging-manuals/copyright-format/1.0/
Upstream-Name: {{.Source}}
{{- if .Homepage}}
Source: {{.Homepage}}
{{- end}}

Files: *
License: {{if .License}}{{.License}}{{else}}unknown{{end}}
`)),
	"rules": template.Must(template.New("rules").Parse(`#!/usr/bin/make -f

%:
{{- if .SetupPy}}
	dh $@ --buildsystem=pybuild --with {{if .Python3}}python2,python3{{else}}python2{{end}}
{{- else}}
	dh $@ --with autoreconf
{{- end}}
`)),
	"source/format": template.Must(template.New("format").Parse("1.0\n")),
}

// writeDebianFiles generates a debian/ directory below sourceDir for
// projects that do not ship their own packaging files.
func (d *dpkg) writeDebianFiles(sourceDir, name, version string) error {
	data := d.debianData(name, version)
	for file, tmpl := range debianTemplates {
		path := filepath.Join(sourceDir, "debian", filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		var sb strings.Builder
		if err := tmpl.Execute(&sb, data); err != nil {
			return err
		}
		mode := os.FileMode(0o644)
		if file == "rules" {
			mode = 0o755
		}
		if err := os.WriteFile(path, []byte(sb.String()), mode); err != nil {
			return err
		}
	}
	return nil
}

func (d *dpkg) debianData(name, version string) debianData {
	def := d.def
	data := debianData{
		Source:       name,
		Version:      version + "-1" + d.suffix,
		Distribution: d.distribution,
		Maintainer:   def.Maintainer,
		Homepage:     def.Homepage,
		Description:  def.Description,
		License:      def.License,
		Date:         d.now().Format(time.RFC1123Z),
		SetupPy:      def.BuildSystem == buildsys.SetupPy,
	}
	if d.distribution != "" {
		data.Version += "~" + d.distribution
	} else {
		data.Distribution = "unstable"
	}
	if data.Maintainer == "" {
		data.Maintainer = defaultMaintainer
	}
	if data.Description == "" {
		data.Description = name
	}

	arch := "any"
	if data.SetupPy && !def.ArchitectureDependent {
		arch = "all"
	}
	depends := []string{"debhelper (>= 9)"}
	if data.SetupPy {
		data.Python3 = !def.IsPython2Only()
		depends = append(depends, "dh-python", "python-all", "python-setuptools")
		if data.Python3 {
			depends = append(depends, "python3-all", "python3-setuptools")
		}
		py := naming.PythonPackageName(def.Name)
		if def.DPKGName != "" {
			py = def.DPKGName
		}
		data.Packages = append(data.Packages, debianPackage{Name: py, Architecture: arch, Depends: "${python:Depends}, ${misc:Depends}"})
		if data.Python3 {
			data.Packages = append(data.Packages, debianPackage{Name: naming.Python3PackageName(py), Architecture: arch, Depends: "${python3:Depends}, ${misc:Depends}"})
		}
	} else {
		depends = append(depends, "dh-autoreconf", "pkg-config")
		data.Packages = append(data.Packages, debianPackage{Name: name, Architecture: arch, Depends: "${shlibs:Depends}, ${misc:Depends}"})
	}
	depends = append(depends, def.DPKGBuildDependencies...)
	data.BuildDepends = strings.Join(depends, ", ")
	return data
}
