package buildsys

import (
	"context"
	"fmt"
)

// System names the build system a project declares.
type System string

const (
	ConfigureMake System = "configure_make"
	SetupPy       System = "setup_py"
)

// Systems lists every known build system.
var Systems = []System{ConfigureMake, SetupPy}

// Parse validates a build system name.
func Parse(s string) (System, error) {
	for _, sys := range Systems {
		if string(sys) == s {
			return sys, nil
		}
	}
	return "", fmt.Errorf("unknown build system %q", s)
}

func (s System) String() string {
	return string(s)
}

// BuildSystem captures the shared build steps of a source tree (Autotools,
// setup.py). Packaging strategies drive the steps; implementations add their
// own extras.
type BuildSystem interface {
	// Environment helper.
	Env(key, val string)

	// Log directs the combined output of every step to path. The first step
	// truncates the file unless appending is set, later steps append.
	Log(path string, appending bool)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error
}
