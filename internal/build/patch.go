package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/goplus/llpack/internal/command"
)

// windowsPatchPaths are the common install locations of patch.exe relative
// to the system drive.
var windowsPatchPaths = [][]string{
	{"GnuWin", "bin", "patch.exe"},
	{"GnuWin32", "bin", "patch.exe"},
	{"Program Files (x86)", "GnuWin", "bin", "patch.exe"},
	{"Program Files (x86)", "GnuWin32", "bin", "patch.exe"},
	{"ProgramData", "chocolatey", "bin", "patch.exe"},
}

// patchTool locates the patch executable. On Windows hosts the common
// install locations are searched instead of PATH.
func (b *base) patchTool(windows bool) (string, error) {
	if windows {
		for _, elems := range windowsPatchPaths {
			path := filepath.Join(append([]string{b.windowsRoot}, elems...)...)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		log.Errorf("Unable to find patch.exe")
		return "", fmt.Errorf("%w: patch.exe", ErrToolNotFound)
	}
	path, err := b.runner.LookPath("patch")
	if err != nil {
		log.Errorf("Unable to find patch")
		return "", fmt.Errorf("%w: patch", ErrToolNotFound)
	}
	return path, nil
}

// patchFiles returns the project patches present in <data>/patches. Missing
// patch files are skipped with a warning.
func (b *base) patchFiles() []string {
	var files []string
	for _, name := range b.def.Patches {
		file := filepath.Join(b.dataPath, "patches", name)
		if _, err := os.Stat(file); err != nil {
			log.Warnf("Missing patch file: %s", file)
			continue
		}
		files = append(files, file)
	}
	return files
}

// applyPatches applies the project patches inside sourceDir.
func (b *base) applyPatches(ctx context.Context, sourceDir string, l *buildLog, windows bool) error {
	if len(b.def.Patches) == 0 {
		return nil
	}
	tool, err := b.patchTool(windows)
	if err != nil {
		return err
	}
	for _, file := range b.patchFiles() {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		c := &command.Cmd{Name: tool, Args: []string{"--force", "--binary", "--input", abs}, Dir: sourceDir}
		if err := b.run(ctx, l.cmd(c)); err != nil {
			return err
		}
	}
	return nil
}
