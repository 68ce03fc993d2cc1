package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"sigs.k8s.io/yaml"

	"github.com/goplus/llpack/pkgs/buildsys"
)

// File is the YAML/JSON layout of a projects file.
type File struct {
	Projects []*Definition `json:"projects"`
}

// hclFile is the HCL layout: one project block per definition.
type hclFile struct {
	Projects []*hclProject `hcl:"project,block"`
	Remain   hcl.Body      `hcl:",remain"`
}

type hclProject struct {
	Name        string `hcl:"name,label"`
	BuildSystem string `hcl:"build_system"`

	BuildDependencies     []string `hcl:"build_dependencies,optional"`
	DPKGBuildDependencies []string `hcl:"dpkg_build_dependencies,optional"`
	Patches               []string `hcl:"patches,optional"`
	ConfigureOptions      string   `hcl:"configure_options,optional"`
	PKGConfigureOptions   string   `hcl:"pkg_configure_options,optional"`
	ArchitectureDependent bool     `hcl:"architecture_dependent,optional"`
	MSIPrebuild           string   `hcl:"msi_prebuild,optional"`
	BuildOptions          []string `hcl:"build_options,optional"`

	DPKGName       string `hcl:"dpkg_name,optional"`
	DPKGSourceName string `hcl:"dpkg_source_name,optional"`
	SetupName      string `hcl:"setup_name,optional"`
	RPMName        string `hcl:"rpm_name,optional"`

	Maintainer  string `hcl:"maintainer,optional"`
	Homepage    string `hcl:"homepage,optional"`
	Description string `hcl:"description,optional"`
	License     string `hcl:"license,optional"`

	DownloadURL string `hcl:"download_url,optional"`
	GitURL      string `hcl:"git_url,optional"`

	MSIVersionSuffix    string `hcl:"msi_version_suffix,optional"`
	MSINoPythonSuffix   bool   `hcl:"msi_no_python_suffix,optional"`
	MSIWinver           string `hcl:"msi_winver,optional"`
	RPMIgnoreSetupName  bool   `hcl:"rpm_ignore_setup_name,optional"`
	OSCKeepPythonPrefix bool   `hcl:"osc_keep_python_prefix,optional"`
}

func (p *hclProject) definition() *Definition {
	return &Definition{
		Name:                  p.Name,
		BuildSystem:           buildsys.System(p.BuildSystem),
		BuildDependencies:     p.BuildDependencies,
		DPKGBuildDependencies: p.DPKGBuildDependencies,
		Patches:               p.Patches,
		ConfigureOptions:      p.ConfigureOptions,
		PKGConfigureOptions:   p.PKGConfigureOptions,
		ArchitectureDependent: p.ArchitectureDependent,
		MSIPrebuild:           p.MSIPrebuild,
		BuildOptions:          p.BuildOptions,
		DPKGName:              p.DPKGName,
		DPKGSourceName:        p.DPKGSourceName,
		SetupName:             p.SetupName,
		RPMName:               p.RPMName,
		Maintainer:            p.Maintainer,
		Homepage:              p.Homepage,
		Description:           p.Description,
		License:               p.License,
		DownloadURL:           p.DownloadURL,
		GitURL:                p.GitURL,
		MSIVersionSuffix:      p.MSIVersionSuffix,
		MSINoPythonSuffix:     p.MSINoPythonSuffix,
		MSIWinver:             p.MSIWinver,
		RPMIgnoreSetupName:    p.RPMIgnoreSetupName,
		OSCKeepPythonPrefix:   p.OSCKeepPythonPrefix,
	}
}

// Load reads project definitions from path. The format follows the file
// extension: .yaml, .yml and .json are decoded as YAML, .hcl as HCL.
// Definitions are returned in file order.
func Load(path string) ([]*Definition, error) {
	var (
		defs []*Definition
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		defs, err = loadYAML(path)
	case ".hcl":
		defs, err = loadHCL(path)
	default:
		return nil, fmt.Errorf("%s: unsupported projects file extension %q", path, ext)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%s: duplicate project %q", path, d.Name)
		}
		seen[d.Name] = true
	}
	return defs, nil
}

func loadYAML(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Projects, nil
}

func loadHCL(path string) ([]*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	defs := make([]*Definition, 0, len(root.Projects))
	for _, p := range root.Projects {
		defs = append(defs, p.definition())
	}
	return defs, nil
}

// Select returns the definitions named in names, in the order given. An
// empty names list selects every definition.
func Select(defs []*Definition, names []string) ([]*Definition, error) {
	if len(names) == 0 {
		return defs, nil
	}
	byName := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	var (
		out     []*Definition
		missing []string
	)
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, d)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown projects: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
