package env

import (
	"os"
	"path/filepath"
	"runtime"
)

// CacheDir returns the per-user directory where llpack keeps the git
// repositories of project sources. The directory is created on first use.
func CacheDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(userCacheDir, ".llpack")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// DataDir returns the data directory below the tools path. It holds patches,
// msi_prebuild scripts and packaging templates.
func DataDir(toolsPath string) string {
	return filepath.Join(toolsPath, "data")
}

// Machine returns the host machine name in the form the host reports it,
// e.g. "x86_64" or "i686" on Unix and "AMD64" or "x86" on Windows.
func Machine() string {
	if m := machine(); m != "" {
		return m
	}
	return goarchMachine(runtime.GOARCH)
}

func goarchMachine(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	}
	return goarch
}
