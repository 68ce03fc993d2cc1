package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/llpack/internal/command"
	"github.com/goplus/llpack/internal/source"
)

// mockSource implements source.Provider over a working directory.
type mockSource struct {
	name    string
	version string
	workDir string

	// files are written into the source directory by Create.
	files map[string]string

	downloadErr error
}

var _ source.Provider = (*mockSource)(nil)

func newMockSource(workDir, name, version string) *mockSource {
	return &mockSource{name: name, version: version, workDir: workDir}
}

func (m *mockSource) ProjectName() string {
	return m.name
}

func (m *mockSource) ProjectIdentifier() string {
	return "com.example." + m.name
}

func (m *mockSource) ProjectVersion(ctx context.Context) string {
	return m.version
}

func (m *mockSource) Download(ctx context.Context) (string, error) {
	if m.downloadErr != nil {
		return "", m.downloadErr
	}
	path := filepath.Join(m.workDir, m.name+"-"+m.version+".tar.gz")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, []byte("archive"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (m *mockSource) Create(ctx context.Context) (string, error) {
	if _, err := m.Download(ctx); err != nil {
		return "", err
	}
	dir := filepath.Join(m.workDir, m.name+"-"+m.version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	for name, content := range m.files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// touch creates empty files relative to dir.
func touch(dir string, names ...string) error {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// exists reports whether path is present.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newCmd(name string, args ...string) *command.Cmd {
	return &command.Cmd{Name: name, Args: args}
}
