package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/llpack/pkgs/buildsys"
)

func wantDefinitions() []*Definition {
	return []*Definition{
		{
			Name:                  "libyal",
			BuildSystem:           buildsys.ConfigureMake,
			BuildDependencies:     []string{"zlib", "fuse"},
			Patches:               []string{"libyal-winver.patch"},
			ConfigureOptions:      "--enable-python --with-zlib=no",
			PKGConfigureOptions:   "--disable-python",
			ArchitectureDependent: true,
			Maintainer:            "Joe Dev <joe@example.com>",
			Homepage:              "https://github.com/libyal/libyal",
			Description:           "Library and tools for testing",
			DownloadURL:           "https://example.com/libyal-20170101.tar.gz",
		},
		{
			Name:             "dfvfs",
			BuildSystem:      buildsys.SetupPy,
			SetupName:        "dfvfs",
			MSIVersionSuffix: ".1",
			BuildOptions:     []string{"python2_only"},
		},
	}
}

func TestLoad(t *testing.T) {
	for _, file := range []string{"projects.yaml", "projects.hcl"} {
		t.Run(file, func(t *testing.T) {
			defs, err := Load(filepath.Join("testdata", file))
			require.NoError(t, err)
			if diff := cmp.Diff(wantDefinitions(), defs); diff != "" {
				t.Fatalf("Load mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, file, content, wantErr string
	}{
		{"extension", "projects.ini", "", "unsupported projects file extension"},
		{"missing name", "p.yaml", "projects:\n- build_system: setup_py\n", "project name is required"},
		{"unknown system", "p.yaml", "projects:\n- name: a\n  build_system: cmake\n", "unknown build system"},
		{"duplicate", "p.yaml", "projects:\n- name: a\n  build_system: setup_py\n- name: a\n  build_system: setup_py\n", "duplicate project"},
		{"unknown field", "p.yaml", "projects:\n- name: a\n  build_system: setup_py\n  colour: red\n", "colour"},
		{"bad quoting", "p.yaml", "projects:\n- name: a\n  build_system: configure_make\n  configure_options: \"'unterminated\"\n", "configure options"},
		{"hcl syntax", "p.hcl", "project \"a\" {\n", "failed to parse HCL file"},
		{"hcl missing attr", "p.hcl", "project \"a\" {}\n", "failed to decode HCL file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigureArgs(t *testing.T) {
	d := &Definition{Name: "a", ConfigureOptions: `--with-foo="a b" --enable-x`}
	args, err := d.ConfigureArgs(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"--with-foo=a b", "--enable-x"}, args)

	args, err = d.ConfigureArgs(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"--with-foo=a b", "--enable-x"}, args)

	d.PKGConfigureOptions = "--disable-python"
	args, err = d.ConfigureArgs(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"--disable-python"}, args)
}

func TestDefinitionHelpers(t *testing.T) {
	d := &Definition{Name: "a", BuildOptions: []string{"python2_only"}}
	assert.True(t, d.IsPython2Only())
	assert.False(t, d.HasBuildOption("other"))

	d.AddDPKGBuildDependency("zlib1g-dev")
	d.AddDPKGBuildDependency("zlib1g-dev")
	assert.Equal(t, []string{"zlib1g-dev"}, d.DPKGBuildDependencies)
}

func TestSelect(t *testing.T) {
	defs := wantDefinitions()
	got, err := Select(defs, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = Select(defs, []string{"dfvfs"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dfvfs", got[0].Name)

	_, err = Select(defs, []string{"zzz", "aaa"})
	assert.EqualError(t, err, "unknown projects: aaa, zzz")
}
