// Package config parses llpack settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/qiniu/x/log"
)

// Config holds the application configuration.
type Config struct {
	// ToolsPath is the llpack installation directory holding data/.
	ToolsPath string `env:"LLPACK_TOOLS_PATH" envDefault:"."`
	// WorkDir receives downloads, extracted sources and built packages.
	WorkDir string `env:"LLPACK_WORK_DIR" envDefault:"."`
	// Projects is the project definitions file.
	Projects string `env:"LLPACK_PROJECTS" envDefault:"projects.yaml"`
	// CacheDir holds the git repositories of git sourced projects. Empty
	// means the per-user cache directory.
	CacheDir string `env:"LLPACK_CACHE_DIR"`

	LogLevel     string `env:"LLPACK_LOG_LEVEL" envDefault:"info"`
	Distribution string `env:"LLPACK_DISTRIBUTION" envDefault:"trusty"`
	OSCProject   string `env:"LLPACK_OSC_PROJECT" envDefault:"home:joachimmetz:testing"`
	Python       string `env:"LLPACK_PYTHON" envDefault:"python"`

	Toolchain Toolchain
}

// Toolchain holds the Visual Studio environment of an MSI build host.
type Toolchain struct {
	VS150COMNTOOLS string `env:"VS150COMNTOOLS"`
	VS140COMNTOOLS string `env:"VS140COMNTOOLS"`
	VS120COMNTOOLS string `env:"VS120COMNTOOLS"`
	VS110COMNTOOLS string `env:"VS110COMNTOOLS"`
	VS100COMNTOOLS string `env:"VS100COMNTOOLS"`
	VS90COMNTOOLS  string `env:"VS90COMNTOOLS"`
	VCINSTALLDIR   string `env:"VCINSTALLDIR"`

	Platform  string `env:"Platform"`
	TargetCPU string `env:"TARGET_CPU"`
}

// VisualStudio is one detected Visual Studio installation.
type VisualStudio struct {
	// Version is a release year such as "2015", or "python" for the Visual
	// C++ compiler for Python.
	Version string
	// Var is the environment variable the version was detected from.
	Var string
	// Tools is the value of Var.
	Tools string
}

// VisualStudio returns the newest installation advertised by the
// environment.
func (t *Toolchain) VisualStudio() (VisualStudio, bool) {
	for _, vs := range []VisualStudio{
		{"2017", "VS150COMNTOOLS", t.VS150COMNTOOLS},
		{"2015", "VS140COMNTOOLS", t.VS140COMNTOOLS},
		{"2013", "VS120COMNTOOLS", t.VS120COMNTOOLS},
		{"2012", "VS110COMNTOOLS", t.VS110COMNTOOLS},
		{"2010", "VS100COMNTOOLS", t.VS100COMNTOOLS},
		{"2008", "VS90COMNTOOLS", t.VS90COMNTOOLS},
		{"python", "VCINSTALLDIR", t.VCINSTALLDIR},
	} {
		if vs.Tools != "" {
			return vs, true
		}
	}
	return VisualStudio{}, false
}

// MSBuildPlatform returns the requested MSBuild platform, Platform taking
// precedence over TARGET_CPU.
func (t *Toolchain) MSBuildPlatform() string {
	if t.Platform != "" {
		return t.Platform
	}
	return t.TargetCPU
}

// Parse parses the application configuration from the environment variables.
func Parse(environ []string) (*Config, error) {
	var cfg Config

	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return nil, err
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseLevel maps a level name onto a log output level.
func ParseLevel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.Ldebug, nil
	case "info", "":
		return log.Linfo, nil
	case "warn", "warning":
		return log.Lwarn, nil
	case "error":
		return log.Lerror, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
