// Package project describes the upstream projects llpack knows how to
// package and loads their definitions from YAML, JSON or HCL files.
package project

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/goplus/llpack/pkgs/buildsys"
)

// BuildOptionPython2Only marks a setup_py project without a python3 build.
const BuildOptionPython2Only = "python2_only"

// Definition is the read-only description of one project.
//
// DPKGBuildDependencies is the only field written after loading: dpkg
// dependency checks append the resolved Debian names so the generated
// debian/control lists them.
type Definition struct {
	Name        string          `json:"name"`
	BuildSystem buildsys.System `json:"build_system"`

	BuildDependencies     []string `json:"build_dependencies,omitempty"`
	DPKGBuildDependencies []string `json:"dpkg_build_dependencies,omitempty"`
	Patches               []string `json:"patches,omitempty"`
	ConfigureOptions      string   `json:"configure_options,omitempty"`
	PKGConfigureOptions   string   `json:"pkg_configure_options,omitempty"`
	ArchitectureDependent bool     `json:"architecture_dependent,omitempty"`
	MSIPrebuild           string   `json:"msi_prebuild,omitempty"`
	BuildOptions          []string `json:"build_options,omitempty"`

	DPKGName       string `json:"dpkg_name,omitempty"`
	DPKGSourceName string `json:"dpkg_source_name,omitempty"`
	SetupName      string `json:"setup_name,omitempty"`
	RPMName        string `json:"rpm_name,omitempty"`

	Maintainer  string `json:"maintainer,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`

	DownloadURL string `json:"download_url,omitempty"`
	GitURL      string `json:"git_url,omitempty"`

	// MSIVersionSuffix is appended to the version in MSI filenames of
	// setup_py projects whose installer reports an extra version segment.
	MSIVersionSuffix string `json:"msi_version_suffix,omitempty"`
	// MSINoPythonSuffix drops "-py2.7" from MSI filenames of architecture
	// dependent projects whose installer is nevertheless version neutral.
	MSINoPythonSuffix bool `json:"msi_no_python_suffix,omitempty"`
	// MSIWinver overrides the WINVER value written into the Windows config
	// header of configure_make projects.
	MSIWinver string `json:"msi_winver,omitempty"`
	// RPMIgnoreSetupName keeps the project name in RPM filenames even when
	// SetupName is set.
	RPMIgnoreSetupName bool `json:"rpm_ignore_setup_name,omitempty"`
	// OSCKeepPythonPrefix keeps a "python-" prefix in the OSC spec name.
	OSCKeepPythonPrefix bool `json:"osc_keep_python_prefix,omitempty"`
}

// HasBuildOption reports whether option is listed in BuildOptions.
func (d *Definition) HasBuildOption(option string) bool {
	return slices.Contains(d.BuildOptions, option)
}

// IsPython2Only reports whether the project only builds for python2.
func (d *Definition) IsPython2Only() bool {
	return d.HasBuildOption(BuildOptionPython2Only)
}

// ConfigureArgs splits ConfigureOptions into arguments. With forPKG set,
// PKGConfigureOptions takes precedence when present.
func (d *Definition) ConfigureArgs(forPKG bool) ([]string, error) {
	options := d.ConfigureOptions
	if forPKG && d.PKGConfigureOptions != "" {
		options = d.PKGConfigureOptions
	}
	args, err := shellquote.Split(options)
	if err != nil {
		return nil, fmt.Errorf("%s: configure options: %w", d.Name, err)
	}
	return args, nil
}

// AddDPKGBuildDependency records a resolved Debian build dependency once.
func (d *Definition) AddDPKGBuildDependency(name string) {
	if !slices.Contains(d.DPKGBuildDependencies, name) {
		d.DPKGBuildDependencies = append(d.DPKGBuildDependencies, name)
	}
}

// Validate checks the fields every strategy relies on.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if _, err := buildsys.Parse(string(d.BuildSystem)); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	if _, err := d.ConfigureArgs(true); err != nil {
		return err
	}
	return nil
}
